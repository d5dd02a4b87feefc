package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"linkki-tracker/internal/transit"
)

// Memory is an in-process store with the same query semantics as Store.
// Distances use the haversine formula, computed once per stop and query.
type Memory struct {
	mu          sync.RWMutex
	routes      []transit.Route
	stops       []transit.BusStop
	locations   map[string]memoryLocation
	version     string
	locationTTL time.Duration
	now         func() time.Time
}

type memoryLocation struct {
	loc       transit.VehicleLocation
	snapshot  string
	expiresAt time.Time
}

func NewMemory(locationTTL time.Duration) *Memory {
	if locationTTL <= 0 {
		locationTTL = DefaultLocationTTL
	}
	return &Memory{
		locations:   make(map[string]memoryLocation),
		locationTTL: locationTTL,
		now:         time.Now,
	}
}

// SetClock replaces the clock used for location expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// LoadCatalog replaces the route and stop catalog and records its version.
func (m *Memory) LoadCatalog(version string, routes []transit.Route, stops []transit.BusStop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
	m.routes = append([]transit.Route(nil), routes...)
	m.stops = append([]transit.BusStop(nil), stops...)
}

func (m *Memory) LatestCatalogImport(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}

func (m *Memory) LineNameByRouteID(_ context.Context, routeID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.routes {
		if r.RouteID == routeID {
			return r.LineName, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) RouteByLineName(_ context.Context, lineName string) (*transit.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := transit.NormalizeName(lineName)
	for i := range m.routes {
		if transit.NormalizeName(m.routes[i].LineName) == want {
			r := m.routes[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Memory) LineNames(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool, len(m.routes))
	var lines []string
	for _, r := range m.routes {
		if !seen[r.LineName] {
			seen[r.LineName] = true
			lines = append(lines, r.LineName)
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func (m *Memory) StopsWithin(_ context.Context, from transit.Point, maxMeters float64) ([]transit.StopDistance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []transit.StopDistance
	for _, s := range m.stops {
		d := transit.DistanceMeters(s.Coordinates, from)
		if d < maxMeters {
			out = append(out, transit.StopDistance{Name: s.Name, Coordinates: s.Coordinates, DistanceMeters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) StopByName(_ context.Context, name string, from *transit.Point) (*transit.StopDistance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := strings.TrimSpace(name)
	for _, s := range m.stops {
		if !strings.EqualFold(s.Name, want) {
			continue
		}
		sd := transit.StopDistance{Name: s.Name, Coordinates: s.Coordinates}
		if from != nil {
			sd.DistanceMeters = transit.DistanceMeters(s.Coordinates, *from)
		}
		return &sd, nil
	}
	return nil, nil
}

func (m *Memory) UpsertLocation(_ context.Context, snapshotID string, o transit.VehicleObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[o.VehicleID] = memoryLocation{
		loc: transit.VehicleLocation{
			ID:           o.VehicleID,
			LineName:     o.LineName,
			TripID:       o.TripID,
			Direction:    o.Direction,
			Coordinates:  o.Coordinates,
			Speed:        o.Speed,
			Bearing:      o.Bearing,
			Headsign:     o.Headsign,
			LicensePlate: o.LicensePlate,
			ObservedAt:   o.Timestamp,
		},
		snapshot:  snapshotID,
		expiresAt: m.now().Add(m.locationTTL),
	}
	return nil
}

func (m *Memory) LocationsByLine(_ context.Context, lineName string) ([]transit.VehicleLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := transit.NormalizeName(lineName)
	now := m.now()
	var out []transit.VehicleLocation
	for _, l := range m.locations {
		if now.Before(l.expiresAt) && strings.ToLower(l.loc.LineName) == want {
			out = append(out, l.loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteExpiredLocations(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var n int64
	for id, l := range m.locations {
		if !now.Before(l.expiresAt) {
			delete(m.locations, id)
			n++
		}
	}
	return n, nil
}

// SnapshotOf reports the snapshot id that last wrote a vehicle.
func (m *Memory) SnapshotOf(vehicleID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[vehicleID]
	return l.snapshot, ok
}
