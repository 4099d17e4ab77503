// Package export handles importing and exporting catalog entries in various formats.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

// Source provides the entries to export
type Source interface {
	ListEntries(ctx context.Context, q api.ListQuery) ([]models.Entry, error)
}

// ExportData represents the complete export data structure
type ExportData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Source     string           `json:"source"`
	Sort       catalog.SortKey  `json:"sort,omitempty"`
	Filters    catalog.Criteria `json:"filters,omitempty"`
	Entries    []models.Entry   `json:"modelos"`
}

// ExportOptions configures the export behavior. Entries go through the
// same filter and sort pipeline as the list command.
type ExportOptions struct {
	Criteria catalog.Criteria
	Sort     catalog.SortKey
	Saved    []string
	Engine   *catalog.Engine
}

func (o ExportOptions) engine() *catalog.Engine {
	if o.Engine != nil {
		return o.Engine
	}
	return catalog.NewEngine(zap.NewNop())
}

// selectEntries fetches every entry and applies the filters and ordering
func selectEntries(ctx context.Context, source Source, options ExportOptions) ([]models.Entry, error) {
	entries, err := source.ListEntries(ctx, api.ListQuery{})
	if err != nil {
		return nil, err
	}
	engine := options.engine()
	return engine.Sort(engine.Filter(entries, options.Criteria), options.Sort, options.Saved), nil
}

// ExportJSON exports entries to JSON format
func ExportJSON(ctx context.Context, source Source, writer io.Writer, options ExportOptions) error {
	entries, err := selectEntries(ctx, source, options)
	if err != nil {
		return err
	}

	data := ExportData{
		Version:    "1",
		ExportedAt: time.Now().UTC(),
		Source:     "modelos",
		Sort:       options.Sort,
		Filters:    options.Criteria.Active(),
		Entries:    entries,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
