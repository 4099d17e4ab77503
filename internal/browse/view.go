// Package browse wires the catalog pipeline into result views: it owns the
// criteria, sort key and page state a user manipulates, and loads the
// underlying entries.
package browse

import (
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

// Page is one rendered page of results
type Page struct {
	Entries    []models.Entry     `json:"results"`
	Pagination catalog.Pagination `json:"pagination"`
	Sort       catalog.SortKey    `json:"sort"`
	Criteria   catalog.Criteria   `json:"filters"`
}

// Request describes a one-shot run of the pipeline
type Request struct {
	Criteria   catalog.Criteria
	Sort       catalog.SortKey
	Saved      []string
	Page       int
	PageSize   int
	WindowSize int
}

// Run filters, sorts and paginates entries. A page outside the result
// range yields the first page.
func Run(engine *catalog.Engine, entries []models.Entry, req Request) Page {
	results := engine.Sort(engine.Filter(entries, req.Criteria), req.Sort, req.Saved)
	sortKey := req.Sort
	if !sortKey.Valid() {
		sortKey = engine.DefaultSort()
	}

	state := catalog.NewPaginationWithWindow(len(results), req.PageSize, req.WindowSize)
	state = catalog.GoTo(req.Page, state)

	return Page{
		Entries:    catalog.Slice(results, state),
		Pagination: state,
		Sort:       sortKey,
		Criteria:   req.Criteria.Active(),
	}
}

// View is the state behind one results screen. Every mutation re-runs the
// pipeline and reconciles the page so it stays in range.
type View struct {
	engine   *catalog.Engine
	all      []models.Entry
	criteria catalog.Criteria
	sort     catalog.SortKey
	saved    []string

	results []models.Entry
	state   catalog.Pagination
}

// NewView creates an empty view
func NewView(engine *catalog.Engine, pageSize, windowSize int) *View {
	return &View{
		engine:   engine,
		criteria: catalog.Criteria{},
		sort:     engine.DefaultSort(),
		results:  []models.Entry{},
		state:    catalog.NewPaginationWithWindow(0, pageSize, windowSize),
	}
}

// SetEntries replaces the underlying list, e.g. after a reload
func (v *View) SetEntries(entries []models.Entry) {
	v.all = entries
	v.refresh()
}

// SetCriterion sets or clears (empty value) a single filter
func (v *View) SetCriterion(key, value string) {
	if value == "" {
		delete(v.criteria, key)
	} else {
		v.criteria[key] = value
	}
	v.refresh()
}

// SetCriteria replaces every filter at once
func (v *View) SetCriteria(c catalog.Criteria) {
	v.criteria = catalog.Criteria{}
	for k, val := range c {
		v.criteria[k] = val
	}
	v.refresh()
}

// ClearCriteria removes every filter
func (v *View) ClearCriteria() {
	v.criteria = catalog.Criteria{}
	v.refresh()
}

// SetSort changes the ordering. Invalid keys fall back to the default.
func (v *View) SetSort(key catalog.SortKey) {
	if !key.Valid() {
		key = v.engine.DefaultSort()
	}
	v.sort = key
	v.refresh()
}

// SetSaved replaces the bookmark order used by the saved-* sorts
func (v *View) SetSaved(ids []string) {
	v.saved = ids
	v.refresh()
}

// SetPageSize changes the page size, keeping the current page in range
func (v *View) SetPageSize(size int) {
	if size < 1 || size == v.state.PageSize {
		return
	}
	v.state.PageSize = size
	v.state = catalog.Reconcile(len(v.results), v.state)
}

// GoTo moves to page; out-of-range pages are ignored
func (v *View) GoTo(page int) {
	v.state = catalog.GoTo(page, v.state)
}

// Next moves one page forward if possible
func (v *View) Next() {
	v.GoTo(v.state.Page + 1)
}

// Previous moves one page back if possible
func (v *View) Previous() {
	v.GoTo(v.state.Page - 1)
}

// Results returns the full filtered and sorted list
func (v *View) Results() []models.Entry {
	return v.results
}

// State returns the pagination state
func (v *View) State() catalog.Pagination {
	return v.state
}

// Sort returns the active sort key
func (v *View) Sort() catalog.SortKey {
	return v.sort
}

// Page returns the entries of the current page
func (v *View) Page() Page {
	return Page{
		Entries:    catalog.Slice(v.results, v.state),
		Pagination: v.state,
		Sort:       v.sort,
		Criteria:   v.criteria.Active(),
	}
}

func (v *View) refresh() {
	v.results = v.engine.Sort(v.engine.Filter(v.all, v.criteria), v.sort, v.saved)
	v.state = catalog.Reconcile(len(v.results), v.state)
}

// PageSizeForWidth picks a page size for a terminal of the given width.
// Unknown widths (<= 0) get the full size.
func PageSizeForWidth(width int) int {
	switch {
	case width <= 0:
		return 9
	case width < 80:
		return 4
	case width < 120:
		return 6
	default:
		return 9
	}
}
