package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"linkki-tracker/internal/feed/feedtest"
	"linkki-tracker/internal/resolver"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, routeID string) (string, error) {
	if routeID == "broken" {
		return "", errors.New("catalog unreachable")
	}
	if name, ok := m[routeID]; ok {
		return name, nil
	}
	return "", resolver.ErrRouteNotFound
}

func TestDecodeMapsFields(t *testing.T) {
	ts := time.Date(2026, 3, 10, 8, 10, 0, 0, time.UTC)
	raw := feedtest.Encode(t, feedtest.Vehicle{
		VehicleID: "V1", RouteID: "9021", TripID: "M-P_123", Direction: 1,
		Timestamp: ts, Lon: 25.7473, Lat: 62.2426, Speed: 8.5, Bearing: 270,
		LicensePlate: "ABC-123", Label: "Keskusta",
	})

	obs, stats, err := NewDecoder(mapResolver{"9021": "21"}).Decode(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, obs, 1)

	o := obs[0]
	assert.Equal(t, "V1", o.VehicleID)
	assert.True(t, ts.Equal(o.Timestamp))
	assert.Equal(t, "9021", o.RouteID)
	assert.Equal(t, "21", o.LineName)
	assert.Equal(t, uint32(1), o.Direction)
	assert.Equal(t, "M-P_123", o.TripID)
	assert.InDelta(t, 25.7473, o.Coordinates.Lon(), 1e-4)
	assert.InDelta(t, 62.2426, o.Coordinates.Lat(), 1e-4)
	assert.InDelta(t, 8.5, o.Speed, 1e-6)
	assert.InDelta(t, 270, o.Bearing, 1e-6)
	assert.Equal(t, "ABC-123", o.LicensePlate)
	assert.Equal(t, "Keskusta", o.Headsign)
	assert.Equal(t, Stats{Entities: 1, Decoded: 1}, stats)
}

func TestDecodeDropsUnresolvable(t *testing.T) {
	now := time.Now()
	raw := feedtest.Encode(t,
		feedtest.Vehicle{VehicleID: "V1", RouteID: "9021", Timestamp: now},
		feedtest.Vehicle{VehicleID: "V2", RouteID: "unknown", Timestamp: now},
		feedtest.Vehicle{VehicleID: "V3", RouteID: "broken", Timestamp: now},
		feedtest.Vehicle{VehicleID: "V1", RouteID: "9021", Timestamp: now.Add(5 * time.Second)},
	)

	obs, stats, err := NewDecoder(mapResolver{"9021": "21"}).Decode(context.Background(), raw)
	require.NoError(t, err)

	require.Len(t, obs, 2, "candidates are not deduplicated")
	for _, o := range obs {
		assert.Equal(t, "V1", o.VehicleID)
	}
	assert.Equal(t, 1, stats.UnknownRoute)
	assert.Equal(t, 1, stats.ResolveError)
	assert.Equal(t, 2, stats.Dropped())
}

func TestDecodeSkipsEntitiesWithoutVehicle(t *testing.T) {
	msg := feedtest.Message(feedtest.Vehicle{VehicleID: "V1", RouteID: "9021", Timestamp: time.Now()})
	msg.Entity = append(msg.Entity, &gtfs.FeedEntity{Id: proto.String("alert-only")})
	raw, err := proto.Marshal(msg)
	require.NoError(t, err)

	obs, stats, err := NewDecoder(mapResolver{"9021": "21"}).Decode(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, obs, 1)
	assert.Equal(t, 1, stats.Incomplete)
}

func TestDecodeEmptyFeed(t *testing.T) {
	obs, stats, err := NewDecoder(mapResolver{}).Decode(context.Background(), feedtest.Encode(t))
	require.NoError(t, err)
	assert.Empty(t, obs)
	assert.Zero(t, stats.Entities)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := NewDecoder(mapResolver{}).Decode(context.Background(), []byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestFetchSendsCredentials(t *testing.T) {
	payload := feedtest.Encode(t, feedtest.Vehicle{VehicleID: "V1", RouteID: "9021", Timestamp: time.Now()})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "waltti" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Accept"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	body, err := NewFetcher(srv.URL, "waltti", "secret", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	_, err = NewFetcher(srv.URL, "waltti", "wrong", time.Second).Fetch(context.Background())
	assert.ErrorContains(t, err, "status 401")
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(url, "", "", time.Second).Fetch(context.Background())
	assert.Error(t, err)
}
