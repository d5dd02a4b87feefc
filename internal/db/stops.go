package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkki-tracker/internal/transit"
)

// StopsWithin returns stops strictly closer than maxMeters to the point,
// nearest first. The distance is computed once per stop by PostGIS and the
// same value is used for filtering and reporting.
func (s *Store) StopsWithin(ctx context.Context, from transit.Point, maxMeters float64) ([]transit.StopDistance, error) {
	q := `
WITH origin AS (
  SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS pt
), candidates AS (
  SELECT s.name,
         ST_X(s.location::geometry) AS lon,
         ST_Y(s.location::geometry) AS lat,
         ST_Distance(s.location, o.pt) AS distance
  FROM stops s, origin o
  WHERE ST_DWithin(s.location, o.pt, $3)
)
SELECT name, lon, lat, distance FROM candidates
WHERE distance < $3
ORDER BY distance, name`
	rows, err := s.db.QueryContext(ctx, q, from.Lon(), from.Lat(), maxMeters)
	if err != nil {
		return nil, fmt.Errorf("query stops within %.0fm: %w", maxMeters, err)
	}
	defer rows.Close()

	var out []transit.StopDistance
	for rows.Next() {
		var sd transit.StopDistance
		var lon, lat float64
		if err := rows.Scan(&sd.Name, &lon, &lat, &sd.DistanceMeters); err != nil {
			return nil, err
		}
		sd.Coordinates = transit.NewPoint(lon, lat)
		out = append(out, sd)
	}
	return out, rows.Err()
}

// StopByName finds a stop by trimmed, case-insensitive name. When from is nil
// the reported distance is zero. Returns nil when no stop matches.
func (s *Store) StopByName(ctx context.Context, name string, from *transit.Point) (*transit.StopDistance, error) {
	withDistance := from != nil
	var lon0, lat0 float64
	if withDistance {
		lon0, lat0 = from.Lon(), from.Lat()
	}
	q := `
SELECT name,
       ST_X(location::geometry),
       ST_Y(location::geometry),
       CASE WHEN $2 THEN ST_Distance(location, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography) ELSE 0 END
FROM stops
WHERE lower(name) = lower(trim($1))
ORDER BY stop_id
LIMIT 1`
	var sd transit.StopDistance
	var lon, lat float64
	err := s.db.QueryRowContext(ctx, q, name, withDistance, lon0, lat0).Scan(&sd.Name, &lon, &lat, &sd.DistanceMeters)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stop %q: %w", name, err)
	}
	sd.Coordinates = transit.NewPoint(lon, lat)
	return &sd, nil
}
