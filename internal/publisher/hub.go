package publisher

import (
	"log"
)

// Transport is the delivery side the hub and the ingest pipeline depend on.
type Transport interface {
	PublishToAll(ev Event) error
	PublishToUser(userID string, ev Event) error
}

// Hub sends per-user view commands. Delivery is best effort: failures are
// logged and never surfaced to the caller.
type Hub struct {
	t Transport
}

func NewHub(t Transport) *Hub { return &Hub{t: t} }

// ShowBusStop asks one user's client to focus a stop. Either coordinate at
// zero means the stop has no usable position and nothing is sent.
func (h *Hub) ShowBusStop(userID, name string, lon, lat float64) bool {
	if lon == 0 || lat == 0 {
		return false
	}
	if err := h.t.PublishToUser(userID, ShowBusStopEvent(name, lon, lat)); err != nil {
		log.Printf("show-bus-stop to %s error: %v", userID, err)
		return false
	}
	return true
}

// FilterBusLines asks one user's client to show only the given lines.
func (h *Hub) FilterBusLines(userID string, lineNames []string) bool {
	if err := h.t.PublishToUser(userID, FilterBusLinesEvent(lineNames)); err != nil {
		log.Printf("filter-bus-lines to %s error: %v", userID, err)
		return false
	}
	return true
}
