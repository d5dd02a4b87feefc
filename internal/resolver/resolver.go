// Package resolver maps feed route ids to line names through a TTL cache in
// front of the route catalog.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	mmetrics "linkki-tracker/internal/metrics"
)

// DefaultTTL is how long a resolved line name is served from cache.
const DefaultTTL = 60 * time.Minute

// ErrRouteNotFound is returned when the catalog has no entry for a route id.
var ErrRouteNotFound = errors.New("route not found in catalog")

// Catalog looks up the line name of a route. found is false when the
// catalog answered but has no such route; err is reserved for catalog
// failures.
type Catalog interface {
	LineNameByRouteID(ctx context.Context, routeID string) (lineName string, found bool, err error)
}

type Resolver struct {
	catalog Catalog
	ttl     time.Duration
	lines   *cache.Cache
	group   singleflight.Group
	metrics *mmetrics.Collector
}

func New(catalog Catalog, ttl time.Duration, metrics *mmetrics.Collector) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		catalog: catalog,
		ttl:     ttl,
		lines:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

// Resolve returns the line name for routeID. Only successful lookups are
// cached; a catalog miss returns ErrRouteNotFound and is re-queried on the
// next call.
func (r *Resolver) Resolve(ctx context.Context, routeID string) (string, error) {
	if v, ok := r.lines.Get(routeID); ok {
		r.observe("hit")
		return v.(string), nil
	}

	v, err, _ := r.group.Do(routeID, func() (interface{}, error) {
		name, found, err := r.catalog.LineNameByRouteID(ctx, routeID)
		if err != nil {
			return "", fmt.Errorf("resolve route %s: %w", routeID, err)
		}
		if !found {
			return "", ErrRouteNotFound
		}
		r.lines.Set(routeID, name, r.ttl)
		return name, nil
	})
	switch {
	case errors.Is(err, ErrRouteNotFound):
		r.observe("not_found")
		return "", err
	case err != nil:
		r.observe("error")
		return "", err
	}
	r.observe("miss")
	return v.(string), nil
}

// Forget drops a cached entry, e.g. after a catalog reload.
func (r *Resolver) Forget(routeID string) { r.lines.Delete(routeID) }

// Flush empties the cache so entries from an older catalog snapshot are not
// mixed with a newer one.
func (r *Resolver) Flush() { r.lines.Flush() }

func (r *Resolver) observe(result string) {
	if r.metrics != nil {
		r.metrics.ResolverLookups.WithLabelValues(result).Inc()
	}
}
