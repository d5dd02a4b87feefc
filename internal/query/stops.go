package query

import (
	"context"
	"sort"

	"linkki-tracker/internal/transit"
)

// NearestStops returns stops closer than maxMeters to (lon, lat), nearest
// first. A non-positive radius means DefaultRadiusMeters.
func (s *Service) NearestStops(ctx context.Context, lon, lat, maxMeters float64) ([]transit.StopDistance, error) {
	if maxMeters <= 0 {
		maxMeters = DefaultRadiusMeters
	}
	stops, err := s.stops.StopsWithin(ctx, transit.NewPoint(lon, lat), maxMeters)
	if err != nil {
		return nil, err
	}
	if stops == nil {
		stops = []transit.StopDistance{}
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].DistanceMeters < stops[j].DistanceMeters })
	return stops, nil
}

// StopByName resolves one stop by name. When both lon and lat are zero the
// caller has no location and the distance is reported as zero. Returns nil
// when no stop has that name.
func (s *Service) StopByName(ctx context.Context, name string, lon, lat float64) (*transit.StopDistance, error) {
	var from *transit.Point
	if lon != 0 || lat != 0 {
		p := transit.NewPoint(lon, lat)
		from = &p
	}
	return s.stops.StopByName(ctx, name, from)
}
