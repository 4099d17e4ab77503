// Package server exposes the catalog pipeline as a read-only JSON API so
// other front-ends can reuse filtering, sorting and pagination.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/browse"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/logger"
	"github.com/rodstewart/modelosctl/internal/models"
	"github.com/rodstewart/modelosctl/internal/server/requestid"
)

// SavedSource provides the bookmark order for the salvos-* sorts
type SavedSource interface {
	GetSaved(ctx context.Context) ([]string, error)
}

// ImageStore hands out local copies of entry images. Every successful
// Acquire is paired with a Release.
type ImageStore interface {
	Acquire(ctx context.Context, id string) (string, error)
	Release(id string)
}

// Options configures a Server
type Options struct {
	Engine     *catalog.Engine
	Source     browse.Source
	Saved      SavedSource // optional
	Images     ImageStore  // optional
	Logger     *zap.Logger
	Metrics    *Metrics
	PageSize   int
	WindowSize int
}

// Server serves the results API
type Server struct {
	engine     *catalog.Engine
	source     browse.Source
	saved      SavedSource
	images     ImageStore
	log        *zap.Logger
	metrics    *Metrics
	pageSize   int
	windowSize int
}

// Envelope is the response body of every endpoint
type Envelope struct {
	Data       interface{}         `json:"data,omitempty"`
	Error      *ErrorBody          `json:"error,omitempty"`
	Pagination *catalog.Pagination `json:"pagination,omitempty"`
	Meta       map[string]any      `json:"meta,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New creates a server from opts
func New(opts Options) *Server {
	s := &Server{
		engine:     opts.Engine,
		source:     opts.Source,
		saved:      opts.Saved,
		images:     opts.Images,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		pageSize:   opts.PageSize,
		windowSize: opts.WindowSize,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.engine == nil {
		s.engine = catalog.NewEngine(s.log)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.pageSize < 1 {
		s.pageSize = 9
	}
	if s.windowSize < 1 {
		s.windowSize = catalog.DefaultWindowSize
	}
	return s
}

// Router builds the gin engine with every route and middleware
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(s.log))
	r.Use(s.metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/modelos", s.listResults)
	apiGroup.GET("/modelos/:id", s.getEntry)
	apiGroup.GET("/modelos/:id/imagem", s.getImage)

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) listResults(c *gin.Context) {
	q, err := ParseResultsQuery(c.Request.URL.Query())
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	entries, ok := s.fetch(c)
	if !ok {
		return
	}

	sortKey := catalog.SortKey(q.Sort)
	var saved []string
	if sortKey.NeedsSaved() {
		saved = s.loadSaved(c.Request.Context())
	}

	pageSize := q.PageSize
	if pageSize == 0 {
		pageSize = s.pageSize
	}

	page := browse.Run(s.engine, entries, browse.Request{
		Criteria:   q.Criteria(),
		Sort:       sortKey,
		Saved:      saved,
		Page:       q.Page,
		PageSize:   pageSize,
		WindowSize: s.windowSize,
	})
	s.metrics.observeResults(page.Pagination.TotalItems)

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{
		Data:       page.Entries,
		Pagination: &page.Pagination,
		Meta: map[string]any{
			"sort":    page.Sort,
			"filters": page.Criteria,
		},
	})
}

func (s *Server) getEntry(c *gin.Context) {
	entries, ok := s.fetch(c)
	if !ok {
		return
	}

	id := c.Param("id")
	for _, e := range entries {
		if e.ID == id {
			c.JSON(http.StatusOK, Envelope{Data: e})
			return
		}
	}
	writeError(c, http.StatusNotFound, "NOT_FOUND", "entry with ID "+id+" not found")
}

func (s *Server) getImage(c *gin.Context) {
	id := c.Param("id")
	if s.images == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "images are not served")
		return
	}

	path, err := s.images.Acquire(c.Request.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "image for entry "+id+" not found")
			return
		}
		s.metrics.upstreamError()
		s.log.Error("image fetch failed", zap.String("id", id), zap.Error(err))
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}
	defer s.images.Release(id)

	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}

func (s *Server) fetch(c *gin.Context) ([]models.Entry, bool) {
	entries, err := s.source.ListEntries(c.Request.Context(), api.ListQuery{})
	if err != nil {
		s.metrics.upstreamError()
		s.log.Error("list fetch failed", zap.String("request_id", requestid.Value(c)), zap.Error(err))
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return nil, false
	}
	return entries, true
}

func (s *Server) loadSaved(ctx context.Context) []string {
	if s.saved == nil {
		return nil
	}
	ids, err := s.saved.GetSaved(ctx)
	if err != nil {
		s.log.Warn("bookmarks unavailable, saved order ignored", zap.Error(err))
		return nil
	}
	return ids
}

func writeError(c *gin.Context, status int, code, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}
