package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"linkki-tracker/internal/resolver"
	"linkki-tracker/internal/transit"
)

// LineResolver maps a feed route id to a line name.
type LineResolver interface {
	Resolve(ctx context.Context, routeID string) (string, error)
}

// Stats counts what happened to the entities of one feed message.
type Stats struct {
	Entities     int
	Decoded      int
	UnknownRoute int
	ResolveError int
	Incomplete   int
}

func (s Stats) Dropped() int { return s.UnknownRoute + s.ResolveError + s.Incomplete }

type Decoder struct {
	lines LineResolver
}

func NewDecoder(lines LineResolver) *Decoder {
	return &Decoder{lines: lines}
}

// Decode parses one feed payload into observation candidates, one per entity
// whose route resolves. Candidates are not deduplicated. Only a payload that
// is not a feed message is an error; unresolvable entities are logged and
// skipped.
func (d *Decoder) Decode(ctx context.Context, raw []byte) ([]transit.VehicleObservation, Stats, error) {
	var stats Stats
	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(raw, msg); err != nil {
		return nil, stats, fmt.Errorf("parse feed message: %w", err)
	}

	stats.Entities = len(msg.GetEntity())
	out := make([]transit.VehicleObservation, 0, stats.Entities)
	for _, entity := range msg.GetEntity() {
		vp := entity.GetVehicle()
		vehicleID := vp.GetVehicle().GetId()
		if vp == nil || vehicleID == "" {
			stats.Incomplete++
			continue
		}

		routeID := vp.GetTrip().GetRouteId()
		headsign := vp.GetVehicle().GetLabel()
		lineName, err := d.lines.Resolve(ctx, routeID)
		if errors.Is(err, resolver.ErrRouteNotFound) {
			log.Printf("warning: unknown route id %q (vehicle %s, headsign %q)", routeID, vehicleID, headsign)
			stats.UnknownRoute++
			continue
		}
		if err != nil {
			log.Printf("route lookup error for vehicle %s (headsign %q): %v", vehicleID, headsign, err)
			stats.ResolveError++
			continue
		}

		out = append(out, observationFrom(vp, lineName))
		stats.Decoded++
	}
	return out, stats, nil
}

func observationFrom(vp *gtfs.VehiclePosition, lineName string) transit.VehicleObservation {
	pos := vp.GetPosition()
	trip := vp.GetTrip()
	vehicle := vp.GetVehicle()
	return transit.VehicleObservation{
		VehicleID:    vehicle.GetId(),
		Timestamp:    time.Unix(int64(vp.GetTimestamp()), 0).UTC(),
		Coordinates:  transit.NewPoint(float64(pos.GetLongitude()), float64(pos.GetLatitude())),
		RouteID:      trip.GetRouteId(),
		LineName:     lineName,
		Direction:    trip.GetDirectionId(),
		TripID:       trip.GetTripId(),
		Speed:        float64(pos.GetSpeed()),
		Bearing:      float64(pos.GetBearing()),
		LicensePlate: vehicle.GetLicensePlate(),
		Headsign:     vehicle.GetLabel(),
	}
}
