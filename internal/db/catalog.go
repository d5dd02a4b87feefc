package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkki-tracker/internal/transit"
)

// LineNameByRouteID looks a route up by its feed id.
func (s *Store) LineNameByRouteID(ctx context.Context, routeID string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT line_name FROM routes WHERE route_id = $1`, routeID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query route %s: %w", routeID, err)
	}
	return name, true, nil
}

// RouteByLineName loads the first route whose line name matches, trimmed
// and case-insensitive, with its trips and ordered stops. nil when absent.
func (s *Store) RouteByLineName(ctx context.Context, lineName string) (*transit.Route, error) {
	var r transit.Route
	err := s.db.QueryRowContext(ctx, `
SELECT route_id, line_name FROM routes
WHERE lower(trim(line_name)) = lower(trim($1))
ORDER BY route_id
LIMIT 1`, lineName).Scan(&r.RouteID, &r.LineName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query line %q: %w", lineName, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT t.trip_id, t.direction,
       COALESCE(st.stop_id, ''), COALESCE(st.stop_name, ''), COALESCE(st.arrival_time, ''),
       st.stop_sequence IS NOT NULL
FROM route_trips t
LEFT JOIN route_stop_times st ON st.route_id = t.route_id AND st.trip_id = t.trip_id
WHERE t.route_id = $1
ORDER BY t.trip_id, st.stop_sequence`, r.RouteID)
	if err != nil {
		return nil, fmt.Errorf("query trips of route %s: %w", r.RouteID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tripID  string
			dir     int
			stop    transit.ScheduledStop
			hasStop bool
		)
		if err := rows.Scan(&tripID, &dir, &stop.StopID, &stop.Name, &stop.ArrivalTime, &hasStop); err != nil {
			return nil, err
		}
		if n := len(r.Trips); n == 0 || r.Trips[n-1].TripID != tripID {
			r.Trips = append(r.Trips, transit.Trip{TripID: tripID, Direction: dir})
		}
		if hasStop {
			last := &r.Trips[len(r.Trips)-1]
			last.Stops = append(last.Stops, stop)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LineNames lists every line in the catalog.
func (s *Store) LineNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT line_name FROM routes ORDER BY line_name`)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()
	var lines []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
