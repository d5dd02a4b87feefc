package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Cycles        *prometheus.CounterVec // result label: ok|failed|panic
	CycleDuration prometheus.Histogram

	ObservationsDecoded prometheus.Counter
	ObservationsDropped *prometheus.CounterVec // reason label: unknown_route|resolve_error|incomplete
	SnapshotVehicles    prometheus.Gauge

	UpsertErrors   prometheus.Counter
	UpsertDuration prometheus.Histogram
	ExpiredDeleted prometheus.Counter

	ResolverLookups *prometheus.CounterVec // result label: hit|miss|not_found|error

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	PollInterval  prometheus.Gauge // seconds
	RouteCacheTTL prometheus.Gauge // seconds
}

func NewCollector(pollInterval, routeCacheTTL time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_ingest_cycles_total",
			Help: "Ingest cycles by outcome.",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_ingest_cycle_duration_seconds",
			Help:    "Duration of one fetch/decode/store/publish cycle.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		ObservationsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_observations_decoded_total",
			Help: "Vehicle observations decoded with a resolved line.",
		}),
		ObservationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_observations_dropped_total",
			Help: "Feed entities dropped during decode.",
		}, []string{"reason"}),
		SnapshotVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_snapshot_vehicles",
			Help: "Vehicles in the latest deduplicated snapshot.",
		}),
		UpsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_location_upsert_errors_total",
			Help: "Failed location upserts.",
		}),
		UpsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_location_upsert_duration_seconds",
			Help:    "Time to upsert every location of one snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		ExpiredDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_locations_expired_total",
			Help: "Location rows removed by the retention sweep.",
		}),
		ResolverLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_route_resolver_lookups_total",
			Help: "Route id to line name lookups by result.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_poll_interval_seconds",
			Help: "Feed poll interval in seconds.",
		}),
		RouteCacheTTL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_route_cache_ttl_seconds",
			Help: "Route resolver cache time-to-live in seconds.",
		}),
	}

	reg.MustRegister(
		c.Cycles, c.CycleDuration,
		c.ObservationsDecoded, c.ObservationsDropped, c.SnapshotVehicles,
		c.UpsertErrors, c.UpsertDuration, c.ExpiredDeleted,
		c.ResolverLookups,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.PollInterval, c.RouteCacheTTL,
	)

	c.PollInterval.Set(pollInterval.Seconds())
	c.RouteCacheTTL.Set(routeCacheTTL.Seconds())

	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
