package export

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
)

// ExportHTML exports entries as a standalone HTML catalog page
func ExportHTML(ctx context.Context, source Source, writer io.Writer, options ExportOptions) error {
	entries, err := selectEntries(ctx, source, options)
	if err != nil {
		return err
	}

	header := "<!DOCTYPE html>\n" +
		"<html lang=\"pt-BR\">\n" +
		"<head>\n<meta charset=\"UTF-8\">\n<title>Modelos</title>\n</head>\n" +
		"<body>\n<h1>Modelos</h1>\n"
	if _, err := io.WriteString(writer, header); err != nil {
		return fmt.Errorf("failed to write HTML header: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "<p>%d modelos</p>\n<dl>\n", len(entries)); err != nil {
		return fmt.Errorf("failed to write HTML list start: %w", err)
	}

	for _, e := range entries {
		title := html.EscapeString(e.Title)
		if e.Link != "" {
			title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(e.Link), title)
		}
		if _, err := fmt.Fprintf(writer, "  <dt>%s</dt>\n", title); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}

		meta := joinNonEmpty(" · ", e.Format, e.Discipline, e.DateLabel, strings.Join(e.Area, ", "))
		if meta != "" {
			if _, err := fmt.Fprintf(writer, "  <dd class=\"meta\">%s</dd>\n", html.EscapeString(meta)); err != nil {
				return fmt.Errorf("failed to write entry metadata: %w", err)
			}
		}

		if e.Description != "" {
			if _, err := fmt.Fprintf(writer, "  <dd>%s</dd>\n", html.EscapeString(e.Description)); err != nil {
				return fmt.Errorf("failed to write description: %w", err)
			}
		}

		if len(e.Tags) > 0 {
			if _, err := fmt.Fprintf(writer, "  <dd class=\"tags\">%s</dd>\n", html.EscapeString(strings.Join(e.Tags, ", "))); err != nil {
				return fmt.Errorf("failed to write tags: %w", err)
			}
		}
	}

	if _, err := io.WriteString(writer, "</dl>\n</body>\n</html>\n"); err != nil {
		return fmt.Errorf("failed to write HTML footer: %w", err)
	}

	return nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
