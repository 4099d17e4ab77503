package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/catalog"
)

var filterUsage = map[string]string{
	catalog.KeySearch:        "free-text search over title, description and classification",
	catalog.KeyTags:          "tag (substring match)",
	catalog.KeyArea:          "knowledge area",
	catalog.KeyCourse:        "course",
	catalog.KeyCategories:    "category",
	catalog.KeyType:          "type (matches categories)",
	catalog.KeyTechnology:    "technology",
	catalog.KeyAccessibility: "accessibility resource",
	catalog.KeyDiscipline:    "discipline",
	catalog.KeyFormat:        "format",
	catalog.KeyDate:          "date window: 'este ano', 'este mes' or 'esta semana'",
}

// filterFlags binds one string flag per filter key
type filterFlags struct {
	values map[string]*string
}

func addFilterFlags(cmd *cobra.Command) *filterFlags {
	f := &filterFlags{values: make(map[string]*string, len(catalog.Keys))}
	for _, key := range catalog.Keys {
		v := new(string)
		f.values[key] = v
		if key == catalog.KeySearch {
			cmd.Flags().StringVarP(v, key, "q", "", filterUsage[key])
			continue
		}
		cmd.Flags().StringVar(v, key, "", filterUsage[key])
	}
	return f
}

func (f *filterFlags) criteria() catalog.Criteria {
	c := catalog.Criteria{}
	for key, v := range f.values {
		if *v != "" {
			c[key] = *v
		}
	}
	return c
}

func (f *filterFlags) reset() {
	for _, v := range f.values {
		*v = ""
	}
}

// parseSort validates a --sort value; empty means fallback
func parseSort(raw string, fallback catalog.SortKey) (catalog.SortKey, error) {
	if raw == "" {
		return fallback, nil
	}
	key := catalog.SortKey(raw)
	if !key.Valid() {
		return "", fmt.Errorf("invalid sort '%s'. Valid values: %s", raw, sortNames())
	}
	return key, nil
}

func sortNames() string {
	names := make([]string, len(catalog.SortKeys))
	for i, k := range catalog.SortKeys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
