package catalog

import (
	"time"

	"go.uber.org/zap"
)

// Engine evaluates criteria and sort keys against entries. It carries the
// clock and logger so the filter and sort functions stay free of globals.
type Engine struct {
	log         *zap.Logger
	now         func() time.Time
	defaultSort SortKey
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for the rolling date windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDefaultSort overrides DefaultSort for this engine. Invalid keys are
// ignored.
func WithDefaultSort(key SortKey) Option {
	return func(e *Engine) {
		if key.Valid() {
			e.defaultSort = key
		}
	}
}

// NewEngine creates an Engine. A nil logger is replaced by a no-op logger.
func NewEngine(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:         log,
		now:         time.Now,
		defaultSort: DefaultSort,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultSort returns the sort key applied when none is selected.
func (e *Engine) DefaultSort() SortKey {
	return e.defaultSort
}
