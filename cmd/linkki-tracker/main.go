package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"linkki-tracker/internal/config"
	"linkki-tracker/internal/db"
	"linkki-tracker/internal/feed"
	"linkki-tracker/internal/ingest"
	"linkki-tracker/internal/metrics"
	"linkki-tracker/internal/publisher"
	"linkki-tracker/internal/resolver"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		log.Fatalf("db schema error: %v", err)
	}
	store := db.NewStore(sqlDB, cfg.LocationTTL)

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PollInterval, cfg.RouteCacheTTL)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initialize NATS publisher
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatalf("nats error: %v", err)
	}
	defer pub.Close()

	lines := resolver.New(store, cfg.RouteCacheTTL, mcol)
	pipeline := ingest.NewPipeline(
		feed.NewFetcher(cfg.FeedURL, cfg.FeedUsername, cfg.FeedPassword, cfg.FeedTimeout),
		feed.NewDecoder(lines),
		store,
		pub,
		mcol,
	)

	// Flush cached route names whenever a new catalog import lands
	watcher := ingest.NewCatalogWatcher(store, lines, cfg.CatalogCheckInterval)
	watcher.Start(ctx)

	sched := ingest.NewScheduler(pipeline, cfg.PollInterval, cfg.CycleTimeout)
	sched.OnCycle(ingest.RecordCycle(mcol))
	sched.Start(ctx)
	log.Printf("polling %s every %s (catalog %q)", cfg.FeedURL, cfg.PollInterval, watcher.Version())

	// Block until context cancelled
	<-ctx.Done()
	// Allow graceful shutdown
	sched.Stop()
	watcher.Stop()
	log.Println("shutdown complete")
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
