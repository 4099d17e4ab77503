package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

// ImportResult tracks the outcome of an import operation
type ImportResult struct {
	Added   int
	Updated int
	Skipped int
	Failed  int
	Errors  []ImportError
}

// ImportError represents a single import failure
type ImportError struct {
	Line    int
	Message string
}

// ImportOptions configures the import behavior
type ImportOptions struct {
	Format         string // json, csv, or auto
	DryRun         bool
	SkipDuplicates bool
	AddTags        []string
}

// Target receives imported entries
type Target interface {
	Source
	CreateEntry(ctx context.Context, entry *models.EntryCreate) (*models.Entry, error)
	UpdateEntry(ctx context.Context, id string, update *models.EntryUpdate) (*models.Entry, error)
}

// DetectFormat determines the import format from the file extension
func DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "json"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}

// ImportEntries imports entries from a file. Entries whose title matches an
// existing one (ignoring case and accents) update it, or are skipped with
// SkipDuplicates.
func ImportEntries(ctx context.Context, target Target, filename string, options ImportOptions) (*ImportResult, error) {
	format := options.Format
	if format == "" || format == "auto" {
		format = DetectFormat(filename)
		if format == "" {
			return nil, fmt.Errorf("cannot detect format from file extension. Use --format flag")
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []importRecord
	switch format {
	case "json":
		records, err = readJSON(file)
	case "csv":
		records, err = readCSV(file)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	existing, err := target.ListEntries(ctx, api.ListQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing entries: %w", err)
	}
	byTitle := make(map[string]string, len(existing))
	for _, e := range existing {
		byTitle[catalog.Normalize(e.Title)] = e.ID
	}

	result := &ImportResult{}
	for _, rec := range records {
		if rec.parseErr != "" {
			result.fail(rec.line, rec.parseErr)
			continue
		}
		importOne(ctx, target, rec, byTitle, options, result)
	}
	return result, nil
}

type importRecord struct {
	line     int
	entry    models.EntryCreate
	parseErr string
}

func (r *ImportResult) fail(line int, msg string) {
	r.Failed++
	r.Errors = append(r.Errors, ImportError{Line: line, Message: msg})
}

func importOne(ctx context.Context, target Target, rec importRecord, byTitle map[string]string, options ImportOptions, result *ImportResult) {
	entry := rec.entry
	if len(options.AddTags) > 0 {
		entry.Tags = append(append([]string{}, entry.Tags...), options.AddTags...)
	}

	if err := models.Validate(&entry); err != nil {
		result.fail(rec.line, err.Error())
		return
	}

	key := catalog.Normalize(entry.Title)
	existingID, exists := byTitle[key]

	if exists && options.SkipDuplicates {
		result.Skipped++
		return
	}

	if options.DryRun {
		if exists {
			result.Updated++
		} else {
			result.Added++
		}
		return
	}

	if exists {
		if _, err := target.UpdateEntry(ctx, existingID, updateFromCreate(&entry)); err != nil {
			result.fail(rec.line, fmt.Sprintf("Failed to update: %v", err))
			return
		}
		result.Updated++
		return
	}

	created, err := target.CreateEntry(ctx, &entry)
	if err != nil {
		result.fail(rec.line, fmt.Sprintf("Failed to create: %v", err))
		return
	}
	// later rows with the same title update this one
	byTitle[key] = created.ID
	result.Added++
}

func updateFromCreate(c *models.EntryCreate) *models.EntryUpdate {
	return &models.EntryUpdate{
		Title:         &c.Title,
		Description:   &c.Description,
		Format:        &c.Format,
		Discipline:    &c.Discipline,
		DateLabel:     &c.DateLabel,
		Link:          &c.Link,
		Categories:    &c.Categories,
		Tags:          &c.Tags,
		Course:        &c.Course,
		Area:          &c.Area,
		Technology:    &c.Technology,
		Accessibility: &c.Accessibility,
	}
}

// readJSON reads entries from an ExportData document
func readJSON(reader io.Reader) ([]importRecord, error) {
	var data ExportData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	records := make([]importRecord, len(data.Entries))
	for i, e := range data.Entries {
		records[i] = importRecord{
			line: i + 1,
			entry: models.EntryCreate{
				Title:         e.Title,
				Description:   e.Description,
				Format:        e.Format,
				Discipline:    e.Discipline,
				DateLabel:     e.DateLabel,
				Link:          e.Link,
				Categories:    e.Categories,
				Tags:          e.Tags,
				Course:        e.Course,
				Area:          e.Area,
				Technology:    e.Technology,
				Accessibility: e.Accessibility,
			},
		}
	}
	return records, nil
}

// readCSV reads entries from a CSV file with a header row
func readCSV(reader io.Reader) ([]importRecord, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, name := range header {
		colMap[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var records []importRecord
	lineNum := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			records = append(records, importRecord{line: lineNum, parseErr: fmt.Sprintf("Failed to parse CSV: %v", err)})
			continue
		}

		field := func(name string) string {
			return getCSVField(record, colMap, name)
		}
		records = append(records, importRecord{
			line: lineNum,
			entry: models.EntryCreate{
				Title:         field("titulo"),
				Description:   field("descricao"),
				Format:        field("formato"),
				Discipline:    field("disciplina"),
				DateLabel:     field("data"),
				Link:          field("link"),
				Categories:    splitList(field("categorias")),
				Tags:          splitList(field("tags")),
				Course:        splitList(field("curso")),
				Area:          splitList(field("area")),
				Technology:    splitList(field("tecnologia")),
				Accessibility: splitList(field("acessibilidade")),
			},
		})
	}
	return records, nil
}

// getCSVField safely retrieves a field from a CSV record
func getCSVField(record []string, colMap map[string]int, fieldName string) string {
	if idx, ok := colMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
