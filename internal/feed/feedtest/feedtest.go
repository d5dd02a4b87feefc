// Package feedtest builds GTFS-Realtime payloads for tests.
package feedtest

import (
	"strconv"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

// Vehicle describes one vehicle-position entity.
type Vehicle struct {
	EntityID     string
	VehicleID    string
	RouteID      string
	TripID       string
	Direction    uint32
	Timestamp    time.Time
	Lon, Lat     float32
	Speed        float32
	Bearing      float32
	LicensePlate string
	Label        string
}

// Message returns a feed message holding the given vehicles.
func Message(vehicles ...Vehicle) *gtfs.FeedMessage {
	incr := gtfs.FeedHeader_FULL_DATASET
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incr,
			Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
		},
	}
	for i, v := range vehicles {
		id := v.EntityID
		if id == "" {
			id = v.VehicleID + "-" + strconv.Itoa(i)
		}
		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{
			Id: proto.String(id),
			Vehicle: &gtfs.VehiclePosition{
				Trip: &gtfs.TripDescriptor{
					RouteId:     proto.String(v.RouteID),
					TripId:      proto.String(v.TripID),
					DirectionId: proto.Uint32(v.Direction),
				},
				Vehicle: &gtfs.VehicleDescriptor{
					Id:           proto.String(v.VehicleID),
					Label:        proto.String(v.Label),
					LicensePlate: proto.String(v.LicensePlate),
				},
				Position: &gtfs.Position{
					Latitude:  proto.Float32(v.Lat),
					Longitude: proto.Float32(v.Lon),
					Bearing:   proto.Float32(v.Bearing),
					Speed:     proto.Float32(v.Speed),
				},
				Timestamp: proto.Uint64(uint64(v.Timestamp.Unix())),
			},
		})
	}
	return msg
}

// Encode marshals a feed message holding the given vehicles.
func Encode(t testing.TB, vehicles ...Vehicle) []byte {
	t.Helper()
	b, err := proto.Marshal(Message(vehicles...))
	require.NoError(t, err)
	return b
}
