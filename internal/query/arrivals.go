package query

import (
	"context"
	"strings"

	"linkki-tracker/internal/schedule"
	"linkki-tracker/internal/transit"
)

// Arrivals lists upcoming arrivals of a line at a stop. An unknown line
// yields an empty list, indistinguishable from a line with no buses due.
func (s *Service) Arrivals(ctx context.Context, stopName, lineName string) ([]transit.Arrival, error) {
	route, err := s.routes.RouteByLineName(ctx, lineName)
	if err != nil {
		return nil, err
	}
	return schedule.Arrivals(route, stopName, s.Now()), nil
}

// StopsForTrip lists the stop names of one trip of a line in order.
func (s *Service) StopsForTrip(ctx context.Context, lineName, tripID string) ([]string, error) {
	names := []string{}
	route, err := s.routes.RouteByLineName(ctx, lineName)
	if err != nil || route == nil {
		return names, err
	}
	for _, trip := range route.Trips {
		if trip.TripID != strings.TrimSpace(tripID) {
			continue
		}
		for _, stop := range trip.Stops {
			names = append(names, stop.Name)
		}
	}
	return names, nil
}

// AvailableLines lists every line name in the catalog.
func (s *Service) AvailableLines(ctx context.Context) ([]string, error) {
	lines, err := s.routes.LineNames(ctx)
	if lines == nil {
		lines = []string{}
	}
	return lines, err
}

// VehiclesOnLine returns the stored live positions of a line's buses.
func (s *Service) VehiclesOnLine(ctx context.Context, lineName string) ([]transit.VehicleLocation, error) {
	locs, err := s.locations.LocationsByLine(ctx, lineName)
	if err != nil {
		return nil, err
	}
	if locs == nil {
		locs = []transit.VehicleLocation{}
	}
	return locs, nil
}
