package ingest

import (
	"sort"

	"linkki-tracker/internal/transit"
)

// Snapshot holds at most one observation per vehicle: the one with the
// latest timestamp. On equal timestamps the later candidate wins.
type Snapshot struct {
	byVehicle map[string]transit.VehicleObservation
}

// Deduplicate collapses candidates into a snapshot.
func Deduplicate(candidates []transit.VehicleObservation) Snapshot {
	s := Snapshot{byVehicle: make(map[string]transit.VehicleObservation, len(candidates))}
	for _, c := range candidates {
		s.Add(c)
	}
	return s
}

// Add keeps c unless the snapshot already holds a strictly newer
// observation of the same vehicle.
func (s *Snapshot) Add(c transit.VehicleObservation) {
	if s.byVehicle == nil {
		s.byVehicle = make(map[string]transit.VehicleObservation)
	}
	if existing, ok := s.byVehicle[c.VehicleID]; ok && c.Timestamp.Before(existing.Timestamp) {
		return
	}
	s.byVehicle[c.VehicleID] = c
}

func (s Snapshot) Len() int { return len(s.byVehicle) }

// Get returns the kept observation of one vehicle.
func (s Snapshot) Get(vehicleID string) (transit.VehicleObservation, bool) {
	o, ok := s.byVehicle[vehicleID]
	return o, ok
}

// Observations lists the snapshot ordered by vehicle id.
func (s Snapshot) Observations() []transit.VehicleObservation {
	out := make([]transit.VehicleObservation, 0, len(s.byVehicle))
	for _, o := range s.byVehicle {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}
