package browse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
)

func newEngine(t *testing.T) *catalog.Engine {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	return catalog.NewEngine(zaptest.NewLogger(t), catalog.WithClock(func() time.Time { return now }))
}

func sampleEntries(n int) []models.Entry {
	out := make([]models.Entry, n)
	for i := range out {
		format := "Vídeo"
		if i%2 == 1 {
			format = "3D"
		}
		out[i] = models.Entry{
			ID:        fmt.Sprint(i + 1),
			Title:     fmt.Sprintf("Modelo %02d", i+1),
			Format:    format,
			DateLabel: fmt.Sprintf("2024-01-%02d", i+1),
		}
	}
	return out
}

func ids(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestRun(t *testing.T) {
	engine := newEngine(t)
	page := Run(engine, sampleEntries(23), Request{
		Sort:     catalog.SortAlphabetical,
		Page:     3,
		PageSize: 9,
	})

	assert.Equal(t, 3, page.Pagination.Page)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 23, page.Pagination.TotalItems)
	assert.Equal(t, []string{"19", "20", "21", "22", "23"}, ids(page.Entries))
	assert.Equal(t, catalog.SortAlphabetical, page.Sort)
}

func TestRun_FilterAndDefaults(t *testing.T) {
	engine := newEngine(t)
	page := Run(engine, sampleEntries(10), Request{
		Criteria: catalog.Criteria{"formato": "3d", "area": "Todas"},
		Sort:     "bogus",
		Page:     99,
		PageSize: 3,
	})

	assert.Equal(t, 1, page.Pagination.Page, "out-of-range page falls back to the first")
	assert.Equal(t, 5, page.Pagination.TotalItems)
	assert.Equal(t, catalog.SortNewest, page.Sort)
	assert.Equal(t, []string{"10", "8", "6"}, ids(page.Entries))
	assert.Equal(t, catalog.Criteria{"formato": "3d"}, page.Criteria)
}

func TestView_ReconcileAfterFilter(t *testing.T) {
	engine := newEngine(t)
	v := NewView(engine, 9, 5)
	v.SetSort(catalog.SortOldest)
	v.SetEntries(sampleEntries(23))

	v.GoTo(3)
	require.Equal(t, 3, v.State().Page)
	assert.Len(t, v.Page().Entries, 5)

	v.SetCriterion("search", "modelo 1")
	// "Modelo 10" through "Modelo 19" match
	assert.Equal(t, 10, v.State().TotalItems)
	assert.Equal(t, 2, v.State().Page, "page clamped to the new last page")

	v.SetCriterion("search", "modelo 01")
	assert.Equal(t, 1, v.State().Page)
	assert.Equal(t, []string{"1"}, ids(v.Page().Entries))

	v.SetCriterion("search", "")
	assert.Equal(t, 23, v.State().TotalItems)
	assert.Equal(t, 1, v.State().Page)
}

func TestView_Navigation(t *testing.T) {
	v := NewView(newEngine(t), 4, 5)
	v.SetEntries(sampleEntries(10))

	v.Previous()
	assert.Equal(t, 1, v.State().Page)

	v.Next()
	v.Next()
	assert.Equal(t, 3, v.State().Page)
	v.Next()
	assert.Equal(t, 3, v.State().Page, "next on last page is ignored")

	v.GoTo(0)
	assert.Equal(t, 3, v.State().Page)

	v.SetPageSize(9)
	assert.Equal(t, 2, v.State().TotalPages)
	assert.Equal(t, 2, v.State().Page)
}

func TestView_SavedSort(t *testing.T) {
	v := NewView(newEngine(t), 9, 5)
	v.SetEntries(sampleEntries(5))
	v.SetSaved([]string{"4", "2"})
	v.SetSort(catalog.SortSavedRecent)

	got := ids(v.Results())
	assert.Equal(t, []string{"2", "4"}, got[:2])
	assert.Equal(t, catalog.SortSavedRecent, v.Sort())

	v.SetSort("nope")
	assert.Equal(t, catalog.SortNewest, v.Sort())
}

func TestView_SetCriteriaCopies(t *testing.T) {
	v := NewView(newEngine(t), 9, 5)
	v.SetEntries(sampleEntries(4))

	c := catalog.Criteria{"formato": "Vídeo"}
	v.SetCriteria(c)
	c["formato"] = "3D"
	assert.Equal(t, catalog.Criteria{"formato": "Vídeo"}, v.Page().Criteria)

	v.ClearCriteria()
	assert.Len(t, v.Results(), 4)
}

func TestPageSizeForWidth(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{0, 9},
		{-1, 9},
		{40, 4},
		{79, 4},
		{80, 6},
		{119, 6},
		{120, 9},
		{300, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageSizeForWidth(tt.width), "width %d", tt.width)
	}
}

type blockingSource struct {
	started chan string
	release map[string]chan struct{}
}

func (b *blockingSource) ListEntries(ctx context.Context, q api.ListQuery) ([]models.Entry, error) {
	b.started <- q.Search
	select {
	case <-b.release[q.Search]:
		return []models.Entry{{ID: q.Search}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLoader_LatestWins(t *testing.T) {
	src := &blockingSource{
		started: make(chan string, 2),
		release: map[string]chan struct{}{"old": make(chan struct{}), "new": make(chan struct{})},
	}
	l := NewLoader(src, zaptest.NewLogger(t))

	oldErr := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), api.ListQuery{Search: "old"})
		oldErr <- err
	}()
	require.Equal(t, "old", <-src.started)

	newRes := make(chan []models.Entry, 1)
	go func() {
		entries, err := l.Load(context.Background(), api.ListQuery{Search: "new"})
		assert.NoError(t, err)
		newRes <- entries
	}()
	require.Equal(t, "new", <-src.started)

	assert.ErrorIs(t, <-oldErr, ErrSuperseded, "older load is canceled and discarded")

	close(src.release["new"])
	entries := <-newRes
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ID)
}

type staticSource struct {
	entries []models.Entry
	err     error
}

func (s staticSource) ListEntries(context.Context, api.ListQuery) ([]models.Entry, error) {
	return s.entries, s.err
}

func TestLoader_PassesResultAndError(t *testing.T) {
	l := NewLoader(staticSource{entries: sampleEntries(2)}, nil)
	entries, err := l.Load(context.Background(), api.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	boom := errors.New("boom")
	l = NewLoader(staticSource{err: boom}, nil)
	_, err = l.Load(context.Background(), api.ListQuery{})
	assert.ErrorIs(t, err, boom)
}

func TestLoader_Cancel(t *testing.T) {
	src := &blockingSource{
		started: make(chan string, 1),
		release: map[string]chan struct{}{"q": make(chan struct{})},
	}
	l := NewLoader(src, nil)

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), api.ListQuery{Search: "q"})
		done <- err
	}()
	<-src.started
	l.Cancel()

	assert.ErrorIs(t, <-done, ErrSuperseded)
}
