package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

type pdfColumn struct {
	header string
	width  float64
	value  func(e entryRow) string
}

type entryRow struct {
	title, format, area, date string
}

var pdfColumns = []pdfColumn{
	{"Título", 90, func(r entryRow) string { return r.title }},
	{"Formato", 30, func(r entryRow) string { return r.format }},
	{"Área", 40, func(r entryRow) string { return r.area }},
	{"Data", 30, func(r entryRow) string { return r.date }},
}

// ExportPDF renders entries into a tabular A4 PDF
func ExportPDF(ctx context.Context, source Source, writer io.Writer, options ExportOptions) error {
	entries, err := selectEntries(ctx, source, options)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 8, tr(col.header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			writeHeader()
		}
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "MODELOS", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%d modelos", len(entries))), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	writeHeader()

	for _, e := range entries {
		row := entryRow{
			title:  e.Title,
			format: e.Format,
			area:   strings.Join(e.Area, ", "),
			date:   e.DateLabel,
		}
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, tr(truncate(col.value(row), int(col.width/1.8))), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(writer); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// truncate shortens s to at most n runes so it fits its cell
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
