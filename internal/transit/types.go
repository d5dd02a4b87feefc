package transit

import "time"

// Point is a coordinate pair ordered [longitude, latitude], the order used
// by the feed, the store and every outbound payload.
type Point [2]float64

func NewPoint(lon, lat float64) Point { return Point{lon, lat} }

func (p Point) Lon() float64 { return p[0] }
func (p Point) Lat() float64 { return p[1] }

// VehicleObservation is one reported position of one physical vehicle.
type VehicleObservation struct {
	VehicleID    string
	Timestamp    time.Time // feed clock, seconds resolution
	Coordinates  Point
	RouteID      string // feed-side route code
	LineName     string // resolved from RouteID
	Direction    uint32
	TripID       string
	Speed        float64
	Bearing      float64
	LicensePlate string
	Headsign     string
}

type ScheduledStop struct {
	StopID      string
	Name        string
	ArrivalTime string // clock-of-day text, may be empty or exceed 23:59:59
}

type Trip struct {
	TripID    string
	Direction int
	Stops     []ScheduledStop // ordered by stop sequence
}

// Route is a catalog entry mapping a feed route id to its line and schedule.
type Route struct {
	RouteID  string
	LineName string
	Trips    []Trip
}

type BusStop struct {
	ID          string
	Name        string
	Coordinates Point
}

type StopDistance struct {
	Name           string  `json:"name"`
	Coordinates    Point   `json:"coordinates"`
	DistanceMeters float64 `json:"distance"`
}

type Arrival struct {
	LineName            string `json:"lineName"`
	TripID              string `json:"tripId"`
	StopName            string `json:"busStopName"`
	ArrivalTime         string `json:"arrivalTime"`
	MinutesUntilArrival int    `json:"minutesUntilArrival"`
}

// VehicleLocation is the stored view of a vehicle returned by line lookups.
type VehicleLocation struct {
	ID           string    `json:"id"`
	LineName     string    `json:"lineName"`
	TripID       string    `json:"tripId"`
	Direction    uint32    `json:"direction"`
	Coordinates  Point     `json:"coordinates"`
	Speed        float64   `json:"speed"`
	Bearing      float64   `json:"bearing"`
	Headsign     string    `json:"headsign"`
	LicensePlate string    `json:"licensePlate"`
	ObservedAt   time.Time `json:"timestamp"`
}
