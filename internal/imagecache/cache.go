// Package imagecache keeps entry images in temp files for the lifetime of a
// view. Images are keyed by entry ID and reference counted.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by Acquire after Close
var ErrClosed = errors.New("image cache closed")

// DefaultConcurrency bounds parallel downloads during Prefetch
const DefaultConcurrency = 4

// DefaultLoadTimeout bounds a single image download
const DefaultLoadTimeout = 30 * time.Second

// Loader fetches image bytes and content type for an entry
type Loader interface {
	GetImage(ctx context.Context, id string) ([]byte, string, error)
}

type item struct {
	path string
	refs int
}

// Cache is a view-scoped image cache
type Cache struct {
	loader      Loader
	log         *zap.Logger
	dir         string
	loadTimeout time.Duration

	mu     sync.Mutex
	items  map[string]*item
	closed bool

	group singleflight.Group
}

// New creates a cache backed by a fresh temp directory
func New(loader Loader, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir, err := os.MkdirTemp("", "modelos-img-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache directory: %w", err)
	}
	return &Cache{
		loader:      loader,
		log:         log,
		dir:         dir,
		loadTimeout: DefaultLoadTimeout,
		items:       make(map[string]*item),
	}, nil
}

// Dir returns the directory holding cached files
func (c *Cache) Dir() string {
	return c.dir
}

// Acquire returns the path of the cached image for id, loading it on miss.
// Concurrent misses for the same id share one download, which keeps running
// when the caller that started it gives up. Every successful Acquire must be
// paired with a Release.
func (c *Cache) Acquire(ctx context.Context, id string) (string, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return "", ErrClosed
		}
		if it, ok := c.items[id]; ok {
			it.refs++
			c.mu.Unlock()
			return it.path, nil
		}
		c.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return "", err
		}

		// The shared load must not die with whichever caller started it
		ch := c.group.DoChan(id, func() (interface{}, error) {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
			defer cancel()
			return nil, c.load(lctx, id)
		})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return "", res.Err
			}
		}
	}
}

// load downloads the image and registers it with zero references
func (c *Cache) load(ctx context.Context, id string) error {
	c.mu.Lock()
	_, ok := c.items[id]
	c.mu.Unlock()
	if ok {
		return nil
	}

	data, contentType, err := c.loader.GetImage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load image %s: %w", id, err)
	}

	f, err := os.CreateTemp(c.dir, "img-*"+extensionFor(contentType))
	if err != nil {
		return fmt.Errorf("failed to cache image %s: %w", id, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to cache image %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("failed to cache image %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		os.Remove(f.Name())
		return ErrClosed
	}
	c.items[id] = &item{path: f.Name()}
	c.log.Debug("image cached", zap.String("id", id), zap.Int("bytes", len(data)))
	return nil
}

// Release drops one reference to id. The file is removed when the last
// reference goes away.
func (c *Cache) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[id]
	if !ok || it.refs == 0 {
		return
	}
	it.refs--
	if it.refs == 0 {
		delete(c.items, id)
		if err := os.Remove(it.path); err != nil && !os.IsNotExist(err) {
			c.log.Warn("failed to remove cached image", zap.String("path", it.path), zap.Error(err))
		}
	}
}

// Prefetch acquires the images of ids in parallel and returns the paths of
// those that loaded. Duplicate ids are acquired once. Entries without an
// image are logged and skipped, so only cancellation or Close surface as
// errors. Callers release every returned id.
func (c *Cache) Prefetch(ctx context.Context, ids []string) (map[string]string, error) {
	var mu sync.Mutex
	paths := make(map[string]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		id := id
		g.Go(func() error {
			path, err := c.Acquire(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, ErrClosed) {
					return err
				}
				c.log.Info("image unavailable", zap.String("id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			paths[id] = path
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return paths, err
	}
	return paths, nil
}

// Len returns the number of cached images
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close removes every cached file. Further Acquire calls fail.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.items = make(map[string]*item)
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove image cache: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	if contentType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
