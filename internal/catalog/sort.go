package catalog

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rodstewart/modelosctl/internal/models"
)

// SortKey selects how entries are ordered.
type SortKey string

// Supported sort keys.
const (
	SortAlphabetical SortKey = "alfabetica"
	SortNewest       SortKey = "recentes"
	SortOldest       SortKey = "antigos"
	SortSavedRecent  SortKey = "salvos-recentes"
	SortSavedOldest  SortKey = "salvos-antigos"
)

// DefaultSort is the ordering applied wherever no sort key has been chosen.
const DefaultSort = SortNewest

// SortKeys lists every supported sort key.
var SortKeys = []SortKey{SortAlphabetical, SortNewest, SortOldest, SortSavedRecent, SortSavedOldest}

// Valid reports whether k is a supported sort key.
func (k SortKey) Valid() bool {
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// NeedsSaved reports whether ordering by k requires the bookmark order.
func (k SortKey) NeedsSaved() bool {
	return k == SortSavedRecent || k == SortSavedOldest
}

// Sort returns a new slice holding entries ordered by key. saved lists the
// bookmarked entry IDs, oldest bookmark first; it is only consulted by the
// salvos-* keys. An empty key falls back to the engine default.
func (e *Engine) Sort(entries []models.Entry, key SortKey, saved []string) []models.Entry {
	out := make([]models.Entry, len(entries))
	copy(out, entries)

	if key == "" {
		key = e.defaultSort
	}
	if !key.Valid() {
		e.log.Warn("unknown sort key, using default", zap.String("key", string(key)), zap.String("default", string(e.defaultSort)))
		key = e.defaultSort
	}

	titles := newTitleCollator()

	switch key {
	case SortAlphabetical:
		sort.SliceStable(out, func(i, j int) bool {
			return titles.less(out[i].Title, out[j].Title)
		})
	case SortNewest, SortOldest:
		e.sortByDate(out, key == SortNewest, titles)
	case SortSavedRecent, SortSavedOldest:
		sortBySaved(out, saved, key == SortSavedRecent)
	}
	return out
}

func (e *Engine) sortByDate(out []models.Entry, newestFirst bool, titles *titleCollator) {
	loc := e.now().Location()

	type keyed struct {
		entry models.Entry
		ts    int64
		ok    bool
	}
	items := make([]keyed, len(out))
	for i, entry := range out {
		items[i].entry = entry
		if t, ok := ParseDateLabelLenient(entry.DateLabel, loc); ok {
			items[i].ts = t.Unix()
			items[i].ok = true
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if newestFirst && a.ok != b.ok {
			// unparsable dates always trail the newest-first listing
			return a.ok
		}
		if a.ts != b.ts {
			if newestFirst {
				return a.ts > b.ts
			}
			return a.ts < b.ts
		}
		return titles.less(a.entry.Title, b.entry.Title)
	})

	for i := range items {
		out[i] = items[i].entry
	}
}

func sortBySaved(out []models.Entry, saved []string, mostRecentFirst bool) {
	position := make(map[string]int, len(saved))
	for i, id := range saved {
		position[id] = i
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, iok := position[out[i].ID]
		pj, jok := position[out[j].ID]
		switch {
		case iok && jok:
			if mostRecentFirst {
				return pi > pj
			}
			return pi < pj
		case iok != jok:
			return iok
		default:
			return false
		}
	})
}

// titleCollator compares titles the way a Brazilian Portuguese reader
// expects, ignoring case. A collator is not safe for concurrent use, so one
// is built per Sort call.
type titleCollator struct {
	c *collate.Collator
}

func newTitleCollator() *titleCollator {
	return &titleCollator{c: collate.New(language.BrazilianPortuguese, collate.IgnoreCase)}
}

func (t *titleCollator) less(a, b string) bool {
	return t.c.CompareString(a, b) < 0
}

// CompareTitles compares two titles under pt-BR case-insensitive collation.
func CompareTitles(a, b string) int {
	return newTitleCollator().c.CompareString(a, b)
}
