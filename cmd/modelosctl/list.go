package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/browse"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/config"
	"github.com/rodstewart/modelosctl/internal/models"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Browse the catalog",
	Long: `Filter, sort and page through the Modelos catalog.

Filters ignore case and accents and combine with AND. Placeholder values
such as "todos" or "selecione..." are ignored.

Examples:
  modelosctl list
  modelosctl list -q celula --area Biologia
  modelosctl list --formato 3D --sort alfabetica --page 2
  modelosctl list --data "este mes" --view list
  modelosctl list --sort salvos-recentes`,
	RunE: runList,
}

var (
	listFilter   *filterFlags
	listSort     string
	listPage     int
	listPageSize int
	listView     string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listFilter = addFilterFlags(listCmd)
	listCmd.Flags().StringVarP(&listSort, "sort", "s", "", sortUsage())
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "entries per page (default: config, reduced on narrow terminals)")
	listCmd.Flags().StringVar(&listView, "view", "", "layout: grid or list (default: config)")
}

func sortUsage() string {
	return "sort order: " + sortNames()
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	layout := listView
	if layout == "" {
		layout = a.cfg.View
	}
	if layout != config.ViewGrid && layout != config.ViewList {
		return fmt.Errorf("invalid view '%s'. Valid views: grid, list", layout)
	}

	engine := a.engine()
	sortKey, err := parseSort(listSort, engine.DefaultSort())
	if err != nil {
		return err
	}
	if sortKey.NeedsSaved() {
		if err := a.requireSession(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	source := a.listSource()
	defer func() { _ = source.Close() }()

	entries, err := browse.NewLoader(source, a.log).Load(ctx, api.ListQuery{})
	if err != nil {
		return err
	}

	width := terminalWidth()
	view := browse.NewView(engine, pageSizeFor(listPageSize, a.cfg.PageSize, width), a.cfg.WindowSize)
	if sortKey.NeedsSaved() {
		saved, err := a.client.GetSaved(ctx)
		if err != nil {
			return err
		}
		view.SetSaved(saved)
	}
	view.SetCriteria(listFilter.criteria())
	view.SetSort(sortKey)
	view.SetEntries(entries)
	view.GoTo(listPage)
	if state := view.State(); state.Page != listPage && state.TotalPages > 0 {
		fmt.Fprintf(os.Stderr, "Page %d is out of range (1-%d), showing page %d\n", listPage, state.TotalPages, state.Page)
	}

	page := view.Page()
	if jsonOutput {
		return outputJSON(page)
	}

	if len(page.Entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	if layout == config.ViewList {
		renderList(page.Entries)
	} else {
		renderGrid(page.Entries, columnsForWidth(width))
	}
	renderFooter(page.Pagination)
	return nil
}

// terminalWidth returns the stdout width, or 0 when it is not a terminal
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// pageSizeFor picks the page size: an explicit flag wins, otherwise the
// configured size, shrunk to fit narrow terminals
func pageSizeFor(flag, configured, width int) int {
	if flag > 0 {
		return flag
	}
	if width > 0 {
		if fit := browse.PageSizeForWidth(width); fit < configured {
			return fit
		}
	}
	return configured
}

func columnsForWidth(width int) int {
	switch {
	case width <= 0:
		return 3
	case width < 80:
		return 1
	case width < 120:
		return 2
	default:
		return 3
	}
}

func renderList(entries []models.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tFORMAT\tAREA\tDATE")
	fmt.Fprintln(w, "--\t-----\t------\t----\t----")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			truncate(e.Title, 50),
			e.Format,
			truncate(strings.Join(e.Area, ", "), 30),
			e.DateLabel,
		)
	}
	_ = w.Flush()
}

// renderGrid prints entries as cards, columns per row
func renderGrid(entries []models.Entry, columns int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	for start := 0; start < len(entries); start += columns {
		row := entries[start:min(start+columns, len(entries))]
		line := func(field func(models.Entry) string) {
			cells := make([]string, len(row))
			for i, e := range row {
				cells[i] = field(e)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
		}
		line(func(e models.Entry) string { return "[" + e.ID + "] " + truncate(e.Title, 32) })
		line(func(e models.Entry) string { return joinNonEmpty(" · ", e.Format, e.DateLabel) })
		line(func(e models.Entry) string { return truncate(strings.Join(e.Area, ", "), 36) })
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func renderFooter(p catalog.Pagination) {
	links := make([]string, len(p.Window))
	for i, n := range p.Window {
		if n == p.Page {
			links[i] = "[" + strconv.Itoa(n) + "]"
		} else {
			links[i] = strconv.Itoa(n)
		}
	}
	fmt.Printf("\nPage %d of %d (%d entries)  %s\n", p.Page, p.TotalPages, p.TotalItems, strings.Join(links, " "))
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
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
