package browse

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/models"
)

// ErrSuperseded is returned by Load when a newer Load started before this
// one finished. Its result must not be shown.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Source provides entry lists
type Source interface {
	ListEntries(ctx context.Context, q api.ListQuery) ([]models.Entry, error)
}

// Loader fetches entry lists so that only the latest request wins. Starting
// a load cancels the one in flight.
type Loader struct {
	source Source
	log    *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewLoader creates a loader over source
func NewLoader(source Source, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{source: source, log: log}
}

// Load fetches the list for q. It returns ErrSuperseded if another Load
// was started while this one was running.
func (l *Loader) Load(ctx context.Context, q api.ListQuery) ([]models.Entry, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	entries, err := l.source.ListEntries(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.log.Debug("discarding superseded load", zap.Uint64("generation", gen))
		return nil, ErrSuperseded
	}
	cancel()
	l.cancel = nil

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Cancel aborts the load in flight, if any
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
