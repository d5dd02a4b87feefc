// Package ingest runs the poll cycle: fetch the vehicle feed, decode it into
// a deduplicated snapshot, persist it and broadcast it.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"linkki-tracker/internal/feed"
	mmetrics "linkki-tracker/internal/metrics"
	"linkki-tracker/internal/publisher"
	"linkki-tracker/internal/transit"
)

const (
	DefaultWriteTimeout  = 10 * time.Second
	DefaultSweepInterval = time.Minute
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

type Decoder interface {
	Decode(ctx context.Context, raw []byte) ([]transit.VehicleObservation, feed.Stats, error)
}

type LocationStore interface {
	UpsertLocation(ctx context.Context, snapshotID string, o transit.VehicleObservation) error
	DeleteExpiredLocations(ctx context.Context) (int64, error)
}

type Broadcaster interface {
	PublishToAll(ev publisher.Event) error
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	SnapshotID    string
	Entities      int
	Decoded       int
	Dropped       int
	Vehicles      int
	StoreFailures int
	Published     bool
	Expired       int64
}

type Pipeline struct {
	fetcher   Fetcher
	decoder   Decoder
	store     LocationStore
	broadcast Broadcaster
	metrics   *mmetrics.Collector

	writeTimeout  time.Duration
	sweepInterval time.Duration

	mu        sync.Mutex
	lastSweep time.Time
}

func NewPipeline(f Fetcher, d Decoder, store LocationStore, b Broadcaster, metrics *mmetrics.Collector) *Pipeline {
	return &Pipeline{
		fetcher:       f,
		decoder:       d,
		store:         store,
		broadcast:     b,
		metrics:       metrics,
		writeTimeout:  DefaultWriteTimeout,
		sweepInterval: DefaultSweepInterval,
	}
}

// SetWriteTimeout bounds each location upsert.
func (p *Pipeline) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		p.writeTimeout = d
	}
}

// SetSweepInterval sets how often expired locations are deleted. Zero or
// less sweeps after every cycle.
func (p *Pipeline) SetSweepInterval(d time.Duration) { p.sweepInterval = d }

// RunCycle performs one fetch, decode, store and publish pass. It fails only
// when the feed cannot be fetched or parsed; store and publish failures are
// logged and reported in the result.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch feed: %w", err)
	}
	candidates, stats, err := p.decoder.Decode(ctx, raw)
	if err != nil {
		return res, fmt.Errorf("decode feed: %w", err)
	}
	res.Entities = stats.Entities
	res.Decoded = stats.Decoded
	res.Dropped = stats.Dropped()
	p.observeStats(stats)

	snapshot := Deduplicate(candidates).Observations()
	res.SnapshotID = uuid.NewString()
	res.Vehicles = len(snapshot)
	if p.metrics != nil {
		p.metrics.SnapshotVehicles.Set(float64(len(snapshot)))
	}

	res.StoreFailures = p.storeAll(ctx, res.SnapshotID, snapshot)

	if err := p.broadcast.PublishToAll(publisher.VehicleEvent(snapshot)); err != nil {
		log.Printf("publish snapshot %s error: %v", res.SnapshotID, err)
	} else {
		res.Published = true
	}

	res.Expired = p.sweep(ctx)
	return res, nil
}

// storeAll upserts every observation concurrently and waits for all of
// them. Writes are detached from ctx so a shutdown never leaves a snapshot
// half written.
func (p *Pipeline) storeAll(ctx context.Context, snapshotID string, snapshot []transit.VehicleObservation) int {
	start := time.Now()
	writeCtx := context.WithoutCancel(ctx)
	var failures atomic.Int32
	var wg sync.WaitGroup
	for _, o := range snapshot {
		wg.Add(1)
		go func(o transit.VehicleObservation) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(writeCtx, p.writeTimeout)
			defer cancel()
			if err := p.store.UpsertLocation(cctx, snapshotID, o); err != nil {
				failures.Add(1)
				log.Printf("failed to upsert location of line %s (vehicle %s): %v", o.LineName, o.VehicleID, err)
				if p.metrics != nil {
					p.metrics.UpsertErrors.Inc()
				}
			}
		}(o)
	}
	wg.Wait()
	if p.metrics != nil {
		p.metrics.UpsertDuration.Observe(time.Since(start).Seconds())
	}
	return int(failures.Load())
}

func (p *Pipeline) sweep(ctx context.Context) int64 {
	p.mu.Lock()
	due := p.sweepInterval <= 0 || time.Since(p.lastSweep) >= p.sweepInterval
	if due {
		p.lastSweep = time.Now()
	}
	p.mu.Unlock()
	if !due {
		return 0
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
	defer cancel()
	n, err := p.store.DeleteExpiredLocations(cctx)
	if err != nil {
		log.Printf("delete expired locations error: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("deleted %d expired locations", n)
	}
	if p.metrics != nil {
		p.metrics.ExpiredDeleted.Add(float64(n))
	}
	return n
}

func (p *Pipeline) observeStats(s feed.Stats) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObservationsDecoded.Add(float64(s.Decoded))
	p.metrics.ObservationsDropped.WithLabelValues("unknown_route").Add(float64(s.UnknownRoute))
	p.metrics.ObservationsDropped.WithLabelValues("resolve_error").Add(float64(s.ResolveError))
	p.metrics.ObservationsDropped.WithLabelValues("incomplete").Add(float64(s.Incomplete))
}
