package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/models"
	"github.com/rodstewart/modelosctl/internal/server/requestid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	entries []models.Entry
	err     error
}

func (f fakeSource) ListEntries(context.Context, api.ListQuery) ([]models.Entry, error) {
	return f.entries, f.err
}

type fakeSaved []string

func (f fakeSaved) GetSaved(context.Context) ([]string, error) { return f, nil }

type envelope struct {
	Data       json.RawMessage     `json:"data"`
	Error      *ErrorBody          `json:"error"`
	Pagination *catalog.Pagination `json:"pagination"`
	Meta       map[string]any      `json:"meta"`
}

func catalogEntries() []models.Entry {
	return []models.Entry{
		{ID: "1", Title: "Relevo", Format: "3D", DateLabel: "2024-01-10", Area: []string{"Geografia"}},
		{ID: "2", Title: "Átomo", Format: "Vídeo", DateLabel: "2024-02-10", Area: []string{"Química"}},
		{ID: "3", Title: "Célula", Format: "3D", DateLabel: "2024-03-10", Area: []string{"Biologia"}},
		{ID: "4", Title: "Bússola", Format: "3D", DateLabel: "2023-12-01", Area: []string{"Geografia"}},
	}
}

func newTestServer(t *testing.T, src fakeSource, opts ...func(*Options)) *gin.Engine {
	t.Helper()
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	o := Options{
		Engine:   catalog.NewEngine(zaptest.NewLogger(t), catalog.WithClock(func() time.Time { return now })),
		Source:   src,
		Logger:   zaptest.NewLogger(t),
		PageSize: 2,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o).Router()
}

func get(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func entryIDs(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var entries []models.Entry
	require.NoError(t, json.Unmarshal(raw, &entries))
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestListResults_DefaultSortAndPaging(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	w, env := get(t, r, "/api/modelos")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"3", "2"}, entryIDs(t, env.Data))
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.Equal(t, 4, env.Pagination.TotalItems)
	assert.Equal(t, "recentes", env.Meta["sort"])
	assert.NotEmpty(t, w.Header().Get(requestid.Header))
}

func TestListResults_FiltersSortAndPage(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	q := url.Values{}
	q.Set("formato", "3d")
	q.Set("sort", "alfabetica")
	q.Set("page", "2")
	q.Set("unknown", "ignored")

	w, env := get(t, r, "/api/modelos?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code)

	// Bússola, Célula, Relevo
	assert.Equal(t, []string{"1"}, entryIDs(t, env.Data))
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 3, env.Pagination.TotalItems)
	assert.Equal(t, map[string]any{"formato": "3d"}, env.Meta["filters"])
}

func TestListResults_PageSizeAndOutOfRange(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	_, env := get(t, r, "/api/modelos?size=3&page=9")
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 3, env.Pagination.PageSize)
	assert.Len(t, entryIDs(t, env.Data), 3)
}

func TestListResults_SavedSort(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()}, func(o *Options) {
		o.Saved = fakeSaved{"4", "1"}
	})

	_, env := get(t, r, "/api/modelos?sort=salvos-antigos&size=4")
	assert.Equal(t, []string{"4", "1"}, entryIDs(t, env.Data)[:2])
}

func TestListResults_EmptyResult(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	w, env := get(t, r, "/api/modelos?search=inexistente")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, entryIDs(t, env.Data))
	assert.Equal(t, 0, env.Pagination.TotalPages)
	assert.Equal(t, 1, env.Pagination.Page)
}

func TestListResults_BadQuery(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	w, env := get(t, r, "/api/modelos?page=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_QUERY", env.Error.Code)
}

func TestListResults_UpstreamError(t *testing.T) {
	r := newTestServer(t, fakeSource{err: errors.New("cannot connect")})

	w, env := get(t, r, "/api/modelos")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UPSTREAM_ERROR", env.Error.Code)
}

func TestGetEntry(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	w, env := get(t, r, "/api/modelos/2")
	require.Equal(t, http.StatusOK, w.Code)
	var entry models.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "Átomo", entry.Title)

	w, env = get(t, r, "/api/modelos/99")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

type fakeImages struct {
	path     string
	err      error
	acquired []string
	released []string
}

func (f *fakeImages) Acquire(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.acquired = append(f.acquired, id)
	return f.path, nil
}

func (f *fakeImages) Release(id string) { f.released = append(f.released, id) }

func TestGetImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake"), 0o600))

	images := &fakeImages{path: path}
	r := newTestServer(t, fakeSource{}, func(o *Options) { o.Images = images })

	w, _ := get(t, r, "/api/modelos/7/imagem")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG fake", w.Body.String())
	assert.Equal(t, []string{"7"}, images.acquired)
	assert.Equal(t, []string{"7"}, images.released)
}

func TestGetImage_Errors(t *testing.T) {
	r := newTestServer(t, fakeSource{})
	w, env := get(t, r, "/api/modelos/7/imagem")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	missing := &fakeImages{err: fmt.Errorf("failed to load image 7: %w", &api.Error{StatusCode: http.StatusNotFound, Message: "image for entry 7 not found"})}
	r = newTestServer(t, fakeSource{}, func(o *Options) { o.Images = missing })
	w, env = get(t, r, "/api/modelos/7/imagem")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "image for entry 7 not found", env.Error.Message)

	broken := &fakeImages{err: errors.New("connection refused")}
	r = newTestServer(t, fakeSource{}, func(o *Options) { o.Images = broken })
	w, env = get(t, r, "/api/modelos/7/imagem")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", env.Error.Code)
	assert.Empty(t, broken.released)
}

func TestHealthzAndMetrics(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	w, _ := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	get(t, r, "/api/modelos")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, req)
	require.Equal(t, http.StatusOK, mw.Code)
	body := mw.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `path="/api/modelos"`)
	assert.Contains(t, body, "modelos_filtered_results")
}

func TestRequestIDPropagated(t *testing.T) {
	r := newTestServer(t, fakeSource{entries: catalogEntries()})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestid.Header, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestid.Header))
}

func TestParseResultsQuery(t *testing.T) {
	q, err := ParseResultsQuery(url.Values{"size": {"500"}, "curso": {"Física"}, "data": {"este mes"}})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, maxPageSize, q.PageSize)
	assert.Equal(t, catalog.Criteria{"curso": "Física", "data": "este mes"}, q.Criteria())
}
