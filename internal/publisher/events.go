// Package publisher pushes real-time events to connected clients.
package publisher

import (
	"linkki-tracker/internal/transit"
)

const DefaultSubjectPrefix = "linkki"

// Event types understood by clients.
const (
	TypeBus            = "bus"
	TypeShowBusStop    = "show-bus-stop"
	TypeFilterBusLines = "filter-bus-lines"
)

// Event is the envelope every client message is wrapped in.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// BusPosition is the public projection of one vehicle.
type BusPosition struct {
	ID          string        `json:"id"`
	Line        string        `json:"line"`
	Coordinates transit.Point `json:"coordinates"`
	Bearing     float64       `json:"bearing"`
}

type stopPayload struct {
	Name        string        `json:"name"`
	Coordinates transit.Point `json:"coordinates"`
}

// VehicleEvent builds the "bus" event for one snapshot. The data is always
// a JSON array, empty when no vehicle is known.
func VehicleEvent(observations []transit.VehicleObservation) Event {
	buses := make([]BusPosition, 0, len(observations))
	for _, o := range observations {
		buses = append(buses, BusPosition{
			ID:          o.VehicleID,
			Line:        o.LineName,
			Coordinates: o.Coordinates,
			Bearing:     o.Bearing,
		})
	}
	return Event{Type: TypeBus, Data: buses}
}

func ShowBusStopEvent(name string, lon, lat float64) Event {
	return Event{Type: TypeShowBusStop, Data: stopPayload{Name: name, Coordinates: transit.NewPoint(lon, lat)}}
}

func FilterBusLinesEvent(lineNames []string) Event {
	if lineNames == nil {
		lineNames = []string{}
	}
	return Event{Type: TypeFilterBusLines, Data: lineNames}
}
