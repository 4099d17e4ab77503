package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/browse"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List classification values with entry counts",
	Long: `List the values of a classification field with the number of entries
carrying each one. The values are the ones accepted by the matching
'list' filter.

Examples:
  modelosctl tags
  modelosctl tags --field area
  modelosctl tags --field formato --sort count
  modelosctl tags --json`,
	RunE: runTags,
}

var (
	tagsField string
	tagsSort  string
)

// facetFields maps a filter key to the entry values it matches against
var facetFields = map[string]func(models.Entry) []string{
	catalog.KeyTags:          func(e models.Entry) []string { return e.Tags },
	catalog.KeyArea:          func(e models.Entry) []string { return e.Area },
	catalog.KeyCourse:        func(e models.Entry) []string { return e.Course },
	catalog.KeyCategories:    func(e models.Entry) []string { return e.Categories },
	catalog.KeyTechnology:    func(e models.Entry) []string { return e.Technology },
	catalog.KeyAccessibility: func(e models.Entry) []string { return e.Accessibility },
	catalog.KeyDiscipline:    func(e models.Entry) []string { return []string{e.Discipline} },
	catalog.KeyFormat:        func(e models.Entry) []string { return []string{e.Format} },
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().StringVar(&tagsField, "field", catalog.KeyTags, "field to count: "+facetNames())
	tagsCmd.Flags().StringVarP(&tagsSort, "sort", "s", "name", "Sort by: name, count")
}

// facetCount is one value of a classification field
type facetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func runTags(cmd *cobra.Command, args []string) error {
	field, ok := facetFields[tagsField]
	if !ok {
		return fmt.Errorf("invalid field '%s'. Valid fields: %s", tagsField, facetNames())
	}
	if tagsSort != "name" && tagsSort != "count" {
		return fmt.Errorf("invalid sort option: %s (use 'name' or 'count')", tagsSort)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	source := a.listSource()
	defer func() { _ = source.Close() }()

	entries, err := browse.NewLoader(source, a.log).Load(cmd.Context(), api.ListQuery{})
	if err != nil {
		return err
	}

	counts := countFacets(entries, field)
	if tagsSort == "count" {
		sort.SliceStable(counts, func(i, j int) bool {
			return counts[i].Count > counts[j].Count
		})
	}

	if jsonOutput {
		return outputJSON(counts)
	}
	if len(counts) == 0 {
		fmt.Println("No values found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tCOUNT")
	fmt.Fprintln(w, "-----\t-----")
	for _, f := range counts {
		fmt.Fprintf(w, "%s\t%d\n", f.Name, f.Count)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d values\n", len(counts))
	return nil
}

// countFacets groups values that are equal after normalization, so each
// group matches the same filter. The first spelling seen names the group.
// An entry counts once per group. Result is ordered by normalized name.
func countFacets(entries []models.Entry, field func(models.Entry) []string) []facetCount {
	index := make(map[string]int)
	var counts []facetCount
	var keys []string
	for _, e := range entries {
		seen := make(map[string]bool)
		for _, v := range field(e) {
			key := catalog.Normalize(v)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			i, ok := index[key]
			if !ok {
				i = len(counts)
				index[key] = i
				counts = append(counts, facetCount{Name: strings.TrimSpace(v)})
				keys = append(keys, key)
			}
			counts[i].Count++
		}
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

	out := make([]facetCount, len(order))
	for i, idx := range order {
		out[i] = counts[idx]
	}
	return out
}

func facetNames() string {
	names := make([]string, 0, len(facetFields))
	for k := range facetFields {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
