package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// listSeparator joins multi-valued fields inside a single CSV cell
const listSeparator = ";"

var csvHeader = []string{
	"id",
	"titulo",
	"descricao",
	"formato",
	"disciplina",
	"data",
	"link",
	"imagem",
	"categorias",
	"tags",
	"curso",
	"area",
	"tecnologia",
	"acessibilidade",
}

// ExportCSV exports entries to CSV format
func ExportCSV(ctx context.Context, source Source, writer io.Writer, options ExportOptions) error {
	entries, err := selectEntries(ctx, source, options)
	if err != nil {
		return err
	}

	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			e.Title,
			e.Description,
			e.Format,
			e.Discipline,
			e.DateLabel,
			e.Link,
			e.Image,
			strings.Join(e.Categories, listSeparator),
			strings.Join(e.Tags, listSeparator),
			strings.Join(e.Course, listSeparator),
			strings.Join(e.Area, listSeparator),
			strings.Join(e.Technology, listSeparator),
			strings.Join(e.Accessibility, listSeparator),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
