package catalog

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/models"
)

// Criteria maps a filter key to the single value selected for it. Empty
// values, placeholder values and absent keys impose no constraint.
type Criteria map[string]string

// Filter keys understood by the engine.
const (
	KeySearch        = "search"
	KeyTags          = "tags"
	KeyArea          = "area"
	KeyCourse        = "curso"
	KeyCategories    = "categorias"
	KeyType          = "tipo"
	KeyTechnology    = "tecnologia"
	KeyAccessibility = "acessibilidade"
	KeyDiscipline    = "disciplina"
	KeyFormat        = "formato"
	KeyDate          = "data"
)

// Keys lists every supported filter key.
var Keys = []string{
	KeySearch, KeyTags, KeyArea, KeyCourse, KeyCategories, KeyType,
	KeyTechnology, KeyAccessibility, KeyDiscipline, KeyFormat, KeyDate,
}

// placeholder values shown by selects before the user picks something
var placeholders = map[string]struct{}{
	"todos":        {},
	"todas":        {},
	"selecione":    {},
	"selecione...": {},
	"qualquer":     {},
}

// IsPlaceholder reports whether v means "no constraint".
func IsPlaceholder(v string) bool {
	n := Normalize(v)
	if n == "" {
		return true
	}
	_, ok := placeholders[n]
	return ok
}

// constrains reports whether value under key narrows the result. Search and
// tags are free text, so only a blank value leaves them open.
func constrains(key, value string) bool {
	switch key {
	case KeySearch, KeyTags:
		return Normalize(value) != ""
	default:
		return !IsPlaceholder(value)
	}
}

// Active returns the criteria that actually constrain the result, with
// values left as given.
func (c Criteria) Active() Criteria {
	out := make(Criteria, len(c))
	for k, v := range c {
		if constrains(k, v) {
			out[k] = v
		}
	}
	return out
}

type predicate func(models.Entry) bool

// Filter returns the entries satisfying every active criterion, preserving
// their relative order. Unknown keys are logged and ignored.
func (e *Engine) Filter(entries []models.Entry, criteria Criteria) []models.Entry {
	preds := e.compile(criteria)

	out := make([]models.Entry, 0, len(entries))
	for _, entry := range entries {
		if matchesAll(entry, preds) {
			out = append(out, entry)
		}
	}
	return out
}

func matchesAll(entry models.Entry, preds []predicate) bool {
	for _, p := range preds {
		if !p(entry) {
			return false
		}
	}
	return true
}

func (e *Engine) compile(criteria Criteria) []predicate {
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := e.now()
	var preds []predicate
	for _, key := range keys {
		raw := criteria[key]
		if !constrains(key, raw) {
			continue
		}
		value := Normalize(raw)

		switch key {
		case KeySearch:
			preds = append(preds, func(entry models.Entry) bool {
				return strings.Contains(searchText(entry), value)
			})
		case KeyTags:
			preds = append(preds, func(entry models.Entry) bool {
				for _, tag := range entry.Tags {
					if strings.Contains(Normalize(tag), value) {
						return true
					}
				}
				return false
			})
		case KeyArea:
			preds = append(preds, anyEqual(value, func(entry models.Entry) []string { return entry.Area }))
		case KeyCourse:
			preds = append(preds, anyEqual(value, func(entry models.Entry) []string { return entry.Course }))
		case KeyCategories, KeyType:
			preds = append(preds, anyEqual(value, func(entry models.Entry) []string { return entry.Categories }))
		case KeyTechnology:
			preds = append(preds, anyEqual(value, func(entry models.Entry) []string { return entry.Technology }))
		case KeyAccessibility:
			preds = append(preds, anyEqual(value, func(entry models.Entry) []string { return entry.Accessibility }))
		case KeyDiscipline:
			preds = append(preds, func(entry models.Entry) bool {
				return normalizedEqual(entry.Discipline, value)
			})
		case KeyFormat:
			preds = append(preds, func(entry models.Entry) bool {
				return normalizedEqual(entry.Format, value)
			})
		case KeyDate:
			if !isKnownWindow(value) {
				e.log.Warn("ignoring unknown date window", zap.String("value", raw))
				continue
			}
			preds = append(preds, func(entry models.Entry) bool {
				d, ok := ParseDateLabel(entry.DateLabel, now.Location())
				return ok && inWindow(d, now, value)
			})
		default:
			e.log.Warn("ignoring unknown filter key", zap.String("key", key), zap.String("value", raw))
		}
	}
	return preds
}

func anyEqual(value string, field func(models.Entry) []string) predicate {
	return func(entry models.Entry) bool {
		for _, v := range field(entry) {
			if normalizedEqual(v, value) {
				return true
			}
		}
		return false
	}
}

// searchText is the normalized text the "search" criterion is matched against.
func searchText(entry models.Entry) string {
	parts := []string{entry.Title, entry.Description}
	parts = append(parts, entry.Course...)
	parts = append(parts, entry.Area...)
	parts = append(parts, entry.Technology...)
	parts = append(parts, entry.Categories...)
	parts = append(parts, entry.Tags...)
	return Normalize(strings.Join(parts, " "))
}
