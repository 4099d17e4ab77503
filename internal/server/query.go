package server

import (
	"net/url"

	"github.com/gorilla/schema"

	"github.com/rodstewart/modelosctl/internal/catalog"
)

// ResultsQuery is the query string accepted by GET /api/modelos
type ResultsQuery struct {
	Search        string `schema:"search"`
	Tags          string `schema:"tags"`
	Area          string `schema:"area"`
	Course        string `schema:"curso"`
	Categories    string `schema:"categorias"`
	Type          string `schema:"tipo"`
	Technology    string `schema:"tecnologia"`
	Accessibility string `schema:"acessibilidade"`
	Discipline    string `schema:"disciplina"`
	Format        string `schema:"formato"`
	Date          string `schema:"data"`

	Sort     string `schema:"sort"`
	Page     int    `schema:"page,default:1"`
	PageSize int    `schema:"size"`
}

const maxPageSize = 100

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// ParseResultsQuery decodes values. Page sizes are clamped to
// [1, maxPageSize]; zero means the server default.
func ParseResultsQuery(values url.Values) (*ResultsQuery, error) {
	q := &ResultsQuery{}
	if err := decoder.Decode(q, values); err != nil {
		return nil, err
	}
	if q.PageSize < 0 {
		q.PageSize = 0
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q, nil
}

// Criteria converts the filter fields to catalog criteria
func (q *ResultsQuery) Criteria() catalog.Criteria {
	c := catalog.Criteria{}
	set := func(key, value string) {
		if value != "" {
			c[key] = value
		}
	}
	set(catalog.KeySearch, q.Search)
	set(catalog.KeyTags, q.Tags)
	set(catalog.KeyArea, q.Area)
	set(catalog.KeyCourse, q.Course)
	set(catalog.KeyCategories, q.Categories)
	set(catalog.KeyType, q.Type)
	set(catalog.KeyTechnology, q.Technology)
	set(catalog.KeyAccessibility, q.Accessibility)
	set(catalog.KeyDiscipline, q.Discipline)
	set(catalog.KeyFormat, q.Format)
	set(catalog.KeyDate, q.Date)
	return c
}
