package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/export"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries",
	Long: `Export catalog entries to JSON, CSV, HTML or PDF.

Filters and sort work as in 'modelosctl list', without paging.

Examples:
  modelosctl export > modelos.json
  modelosctl export -f csv -o modelos.csv --area Biologia
  modelosctl export -f pdf -o catalogo.pdf --sort alfabetica`,
	RunE: runExport,
}

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a timestamped backup of all entries",
	Long: `Create a timestamped JSON backup of all entries.

The backup file is saved with a timestamp in the filename:
  modelos-backup-2026-01-22T103000.json

Restore it with 'modelosctl import'.

Examples:
  modelosctl backup
  modelosctl backup -o ~/backups/
  modelosctl backup --prefix catalogo`,
	RunE: runBackup,
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a file",
	Long: `Import entries from a JSON export or a CSV file.

Format is auto-detected from file extension. Entries whose title matches an
existing entry (ignoring case and accents) update it.

Examples:
  modelosctl import modelos.json
  modelosctl import planilha.csv --add-tags importado
  modelosctl import modelos.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportFormat string
	exportOutput string
	exportSort   string
	exportFilter *filterFlags

	backupOutput string
	backupPrefix string

	importFormat         string
	importDryRun         bool
	importSkipDuplicates bool
	importAddTags        []string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, csv, html, pdf")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportSort, "sort", "s", "", sortUsage())
	exportFilter = addFilterFlags(exportCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", ".", "output directory")
	backupCmd.Flags().StringVar(&backupPrefix, "prefix", "modelos-backup", "filename prefix")

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "auto", "input format: json, csv (default: auto-detect)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would be imported without making changes")
	importCmd.Flags().BoolVar(&importSkipDuplicates, "skip-duplicates", false, "skip entries whose title already exists (default: update them)")
	importCmd.Flags().StringSliceVarP(&importAddTags, "add-tags", "T", []string{}, "add these tags to all imported entries")
}

type exportFunc func(ctx context.Context, source export.Source, writer io.Writer, options export.ExportOptions) error

var exporters = map[string]exportFunc{
	"json": export.ExportJSON,
	"csv":  export.ExportCSV,
	"html": export.ExportHTML,
	"pdf":  export.ExportPDF,
}

func runExport(cmd *cobra.Command, args []string) error {
	exportTo, ok := exporters[exportFormat]
	if !ok {
		return fmt.Errorf("invalid export format '%s'. Valid formats: json, csv, html, pdf", exportFormat)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	engine := a.engine()
	sortKey, err := parseSort(exportSort, engine.DefaultSort())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	options := export.ExportOptions{
		Criteria: exportFilter.criteria(),
		Sort:     sortKey,
		Engine:   engine,
	}
	if sortKey.NeedsSaved() {
		if err := a.requireSession(); err != nil {
			return err
		}
		if options.Saved, err = a.client.GetSaved(ctx); err != nil {
			return err
		}
	}

	var writer io.Writer = os.Stdout
	if exportOutput != "" {
		file, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = file.Close() }()
		writer = file
	}

	source := a.listSource()
	defer func() { _ = source.Close() }()

	if err := exportTo(ctx, source, writer, options); err != nil {
		if exportOutput != "" {
			_ = os.Remove(exportOutput)
		}
		return err
	}

	if exportOutput != "" {
		fmt.Fprintf(os.Stderr, "Exported entries to %s\n", exportOutput)
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	timestamp := time.Now().Format("2006-01-02T150405")
	filename := fmt.Sprintf("%s-%s.json", backupPrefix, timestamp)
	fullPath := filepath.Join(backupOutput, filename)

	if err := os.MkdirAll(backupOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// a backup bypasses the list cache
	options := export.ExportOptions{Sort: catalog.SortOldest, Engine: a.engine()}
	if err := export.ExportJSON(cmd.Context(), a.client, file, options); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to export entries: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]string{"file": fullPath})
	}
	fmt.Fprintf(os.Stderr, "Backup created: %s\n", fullPath)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	filename := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !importDryRun {
		if err := a.requireSession(); err != nil {
			return err
		}
	}

	options := export.ImportOptions{
		Format:         importFormat,
		DryRun:         importDryRun,
		SkipDuplicates: importSkipDuplicates,
		AddTags:        importAddTags,
	}

	if !jsonOutput {
		if importDryRun {
			fmt.Fprintln(os.Stderr, "Dry run - no changes will be made")
		}
		fmt.Fprintln(os.Stderr, "Importing entries...")
	}

	ctx := cmd.Context()
	result, err := export.ImportEntries(ctx, a.client, filename, options)
	if err != nil {
		return err
	}
	if !importDryRun && result.Added+result.Updated > 0 {
		a.invalidateLists(ctx)
	}

	if jsonOutput {
		return outputImportJSON(result)
	}
	displayImportResult(result)
	return nil
}

func outputImportJSON(result *export.ImportResult) error {
	output := map[string]interface{}{
		"added":   result.Added,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}

	if len(result.Errors) > 0 {
		errors := make([]map[string]interface{}, len(result.Errors))
		for i, e := range result.Errors {
			errors[i] = map[string]interface{}{
				"line":    e.Line,
				"message": e.Message,
			}
		}
		output["errors"] = errors
	}

	return outputJSON(output)
}

func displayImportResult(result *export.ImportResult) {
	if result.Added > 0 {
		fmt.Fprintf(os.Stderr, "  ✓ %d new entries added\n", result.Added)
	}
	if result.Updated > 0 {
		fmt.Fprintf(os.Stderr, "  ✓ %d existing entries updated\n", result.Updated)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(os.Stderr, "  ⊘ %d skipped (--skip-duplicates)\n", result.Skipped)
	}
	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "  ✗ %d failed (see errors below)\n", result.Failed)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(os.Stderr, "\nErrors:")
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  Line %d: %s\n", e.Line, e.Message)
		}
	}
}
