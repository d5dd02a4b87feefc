package db

import (
	"context"
	"fmt"
	"time"

	"linkki-tracker/internal/transit"
)

// UpsertLocation writes the latest observation of one vehicle, keyed by
// partition and vehicle id.
func (s *Store) UpsertLocation(ctx context.Context, snapshotID string, o transit.VehicleObservation) error {
	q := `
INSERT INTO locations (
    partition_key, vehicle_id, snapshot_id, observed_at, location,
    route_id, line_name, direction, trip_id, speed, bearing,
    license_plate, headsign, expires_at, updated_at
) VALUES (
    $1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography,
    $7, $8, $9, $10, $11, $12, $13, $14, $15, now()
)
ON CONFLICT (partition_key, vehicle_id) DO UPDATE SET
    snapshot_id = excluded.snapshot_id,
    observed_at = excluded.observed_at,
    location = excluded.location,
    route_id = excluded.route_id,
    line_name = excluded.line_name,
    direction = excluded.direction,
    trip_id = excluded.trip_id,
    speed = excluded.speed,
    bearing = excluded.bearing,
    license_plate = excluded.license_plate,
    headsign = excluded.headsign,
    expires_at = excluded.expires_at,
    updated_at = now()`
	expires := time.Now().Add(s.locationTTL)
	_, err := s.db.ExecContext(ctx, q,
		PartitionBus, o.VehicleID, snapshotID, o.Timestamp, o.Coordinates.Lon(), o.Coordinates.Lat(),
		o.RouteID, o.LineName, int64(o.Direction), o.TripID, o.Speed, o.Bearing,
		o.LicensePlate, o.Headsign, expires,
	)
	if err != nil {
		return fmt.Errorf("upsert location %s: %w", o.VehicleID, err)
	}
	return nil
}

// LocationsByLine returns unexpired vehicle locations of a line.
func (s *Store) LocationsByLine(ctx context.Context, lineName string) ([]transit.VehicleLocation, error) {
	q := `
SELECT vehicle_id, line_name, trip_id, direction,
       ST_X(location::geometry), ST_Y(location::geometry),
       speed, bearing, headsign, license_plate, observed_at
FROM locations
WHERE partition_key = $1
  AND lower(line_name) = lower(trim($2))
  AND expires_at > now()
ORDER BY vehicle_id`
	rows, err := s.db.QueryContext(ctx, q, PartitionBus, lineName)
	if err != nil {
		return nil, fmt.Errorf("query locations of line %q: %w", lineName, err)
	}
	defer rows.Close()

	var out []transit.VehicleLocation
	for rows.Next() {
		var l transit.VehicleLocation
		var dir int64
		var lon, lat float64
		if err := rows.Scan(&l.ID, &l.LineName, &l.TripID, &dir, &lon, &lat,
			&l.Speed, &l.Bearing, &l.Headsign, &l.LicensePlate, &l.ObservedAt); err != nil {
			return nil, err
		}
		l.Direction = uint32(dir)
		l.Coordinates = transit.NewPoint(lon, lat)
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteExpiredLocations removes rows past their retention and reports how
// many were deleted.
func (s *Store) DeleteExpiredLocations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired locations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
