package ingest

import (
	"context"
	"log"
	"sync"
	"time"
)

const DefaultCatalogCheckInterval = 30 * time.Minute

// CatalogVersioner reports the version of the latest catalog import.
type CatalogVersioner interface {
	LatestCatalogImport(ctx context.Context) (string, error)
}

// Flusher drops every cached route resolution.
type Flusher interface {
	Flush()
}

// CatalogWatcher polls the catalog import version and flushes the route
// cache when a new import lands, so renamed lines show up without waiting
// for the cache TTL.
type CatalogWatcher struct {
	catalog  CatalogVersioner
	cache    Flusher
	interval time.Duration

	mu      sync.Mutex
	version string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCatalogWatcher(catalog CatalogVersioner, cache Flusher, interval time.Duration) *CatalogWatcher {
	if interval <= 0 {
		interval = DefaultCatalogCheckInterval
	}
	return &CatalogWatcher{catalog: catalog, cache: cache, interval: interval}
}

// Check compares the catalog version with the last one seen and flushes the
// cache on change. It reports whether a flush happened.
func (w *CatalogWatcher) Check(ctx context.Context) (bool, error) {
	version, err := w.catalog.LatestCatalogImport(ctx)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if version == "" || version == w.version {
		return false, nil
	}
	first := w.version == ""
	if !first {
		log.Printf("catalog import changed: %q -> %q, flushing route cache", w.version, version)
	}
	w.version = version
	if first {
		return false, nil
	}
	w.cache.Flush()
	return true, nil
}

func (w *CatalogWatcher) Version() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// Start records the current version and then checks on every interval.
func (w *CatalogWatcher) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	if _, err := w.Check(ctx); err != nil {
		log.Printf("catalog version check error: %v", err)
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, err := w.Check(ctx); err != nil {
				log.Printf("catalog version check error: %v", err)
			}
		}
	}()
}

func (w *CatalogWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
