package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mmetrics "linkki-tracker/internal/metrics"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultCycleTimeout = 30 * time.Second
)

// ErrCyclePanic wraps a panic recovered from a cycle.
var ErrCyclePanic = errors.New("ingest cycle panicked")

// Cycler runs one ingest cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleResult, error)
}

// Scheduler runs cycles back to back on a fixed interval. A cycle that is
// still running when a tick fires delays the next one; cycles never overlap.
type Scheduler struct {
	cycler       Cycler
	interval     time.Duration
	cycleTimeout time.Duration
	onCycle      func(CycleResult, error, time.Duration)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(c Cycler, interval, cycleTimeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}
	return &Scheduler{cycler: c, interval: interval, cycleTimeout: cycleTimeout}
}

// OnCycle registers a callback invoked after every cycle, including failed
// ones. It must be set before Start.
func (s *Scheduler) OnCycle(fn func(res CycleResult, err error, took time.Duration)) {
	s.onCycle = fn
}

// Start launches the loop. The first cycle runs immediately. Cancelling
// parent or calling Stop ends the loop once the running cycle completes.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// a tick and a cancellation can be ready together
				if ctx.Err() != nil {
					return
				}
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runOnce runs a cycle detached from the loop's cancellation so a stop
// request never interrupts a snapshot mid-way; the cycle timeout still
// bounds it.
func (s *Scheduler) runOnce(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.safeCycle(cctx)
	took := time.Since(start)
	if err != nil {
		log.Printf("ingest cycle error: %v", err)
	}
	if s.onCycle != nil {
		s.onCycle(res, err, took)
	}
}

func (s *Scheduler) safeCycle(ctx context.Context) (res CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
	}()
	return s.cycler.RunCycle(ctx)
}

// RecordCycle returns an OnCycle callback that feeds the cycle metrics.
func RecordCycle(m *mmetrics.Collector) func(CycleResult, error, time.Duration) {
	return func(_ CycleResult, err error, took time.Duration) {
		if m == nil {
			return
		}
		m.CycleDuration.Observe(took.Seconds())
		switch {
		case errors.Is(err, ErrCyclePanic):
			m.Cycles.WithLabelValues("panic").Inc()
		case err != nil:
			m.Cycles.WithLabelValues("failed").Inc()
		default:
			m.Cycles.WithLabelValues("ok").Inc()
		}
	}
}
