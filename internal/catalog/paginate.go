package catalog

// DefaultWindowSize is the number of page links shown around the current page.
const DefaultWindowSize = 5

// Pagination is the page-navigation state of a results view. It is always
// recomputed from scratch, so TotalPages and Window cannot drift from
// TotalItems.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int   `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	WindowSize int   `json:"-"`
	Window     []int `json:"window"`
}

// NewPagination returns the state for the first page of totalItems items.
func NewPagination(totalItems, pageSize int) Pagination {
	return NewPaginationWithWindow(totalItems, pageSize, DefaultWindowSize)
}

// NewPaginationWithWindow is NewPagination with an explicit window size.
func NewPaginationWithWindow(totalItems, pageSize, windowSize int) Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	if totalItems < 0 {
		totalItems = 0
	}
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	total := totalPages(totalItems, pageSize)
	return Pagination{
		Page:       1,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: total,
		WindowSize: windowSize,
		Window:     PageWindow(1, total, windowSize),
	}
}

// GoTo moves to page. Pages outside [1, TotalPages] leave the state unchanged.
func GoTo(page int, state Pagination) Pagination {
	if page < 1 || page > state.TotalPages {
		return state
	}
	next := state
	next.Page = page
	next.Window = PageWindow(page, state.TotalPages, state.windowSize())
	return next
}

// Reconcile recomputes the state after the underlying list changed length,
// clamping the current page into range.
func Reconcile(totalItems int, state Pagination) Pagination {
	next := NewPaginationWithWindow(totalItems, state.PageSize, state.windowSize())
	page := state.Page
	if page > next.TotalPages {
		page = next.TotalPages
	}
	if page < 1 {
		page = 1
	}
	next.Page = page
	next.Window = PageWindow(page, next.TotalPages, next.WindowSize)
	return next
}

// PageWindow returns the page numbers to render as navigation controls:
// every page when total <= windowSize, otherwise windowSize pages centered
// on current and shifted to stay inside [1, total].
func PageWindow(current, total, windowSize int) []int {
	if total <= 0 {
		return []int{}
	}
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	if total <= windowSize {
		return seq(1, total)
	}

	start := current - windowSize/2
	if start < 1 {
		start = 1
	}
	end := start + windowSize - 1
	if end > total {
		end = total
		start = end - windowSize + 1
	}
	return seq(start, end)
}

// Slice returns the items on the state's current page. The result shares
// storage with items but is capped, so appending to it never overwrites the
// next page.
func Slice[T any](items []T, state Pagination) []T {
	if state.PageSize < 1 || state.Page < 1 {
		return []T{}
	}
	start := (state.Page - 1) * state.PageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + state.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}

// HasPrevious reports whether a page precedes the current one.
func (p Pagination) HasPrevious() bool {
	return p.Page > 1
}

// HasNext reports whether a page follows the current one.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

func (p Pagination) windowSize() int {
	if p.WindowSize < 1 {
		return DefaultWindowSize
	}
	return p.WindowSize
}

func totalPages(totalItems, pageSize int) int {
	if totalItems == 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
