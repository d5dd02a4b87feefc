// Package query answers the on-demand read paths: nearby stops, upcoming
// arrivals and live vehicles of a line.
package query

import (
	"context"
	"time"

	"linkki-tracker/internal/transit"
)

// DefaultRadiusMeters is used when a proximity query has no radius.
const DefaultRadiusMeters = 300.0

type RouteCatalog interface {
	RouteByLineName(ctx context.Context, lineName string) (*transit.Route, error)
	LineNames(ctx context.Context) ([]string, error)
}

type StopCatalog interface {
	StopsWithin(ctx context.Context, from transit.Point, maxMeters float64) ([]transit.StopDistance, error)
	StopByName(ctx context.Context, name string, from *transit.Point) (*transit.StopDistance, error)
}

type LocationReader interface {
	LocationsByLine(ctx context.Context, lineName string) ([]transit.VehicleLocation, error)
}

// Service holds no mutable state; any number of callers may use it
// concurrently.
type Service struct {
	routes    RouteCatalog
	stops     StopCatalog
	locations LocationReader
	loc       *time.Location
	now       func() time.Time
}

func NewService(routes RouteCatalog, stops StopCatalog, locations LocationReader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{routes: routes, stops: stops, locations: locations, loc: loc, now: time.Now}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Now is the current wall-clock time in the operating time zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }
