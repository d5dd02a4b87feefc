package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkki-tracker/internal/transit"
)

type sent struct {
	user string
	ev   Event
}

type fakeTransport struct {
	all   []Event
	users []sent
	err   error
}

func (f *fakeTransport) PublishToAll(ev Event) error {
	f.all = append(f.all, ev)
	return f.err
}

func (f *fakeTransport) PublishToUser(userID string, ev Event) error {
	f.users = append(f.users, sent{user: userID, ev: ev})
	return f.err
}

func encode(t *testing.T, ev Event) string {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return string(b)
}

func TestVehicleEventEnvelope(t *testing.T) {
	ev := VehicleEvent([]transit.VehicleObservation{{
		VehicleID:   "V1",
		LineName:    "21",
		Coordinates: transit.NewPoint(25.74, 62.24),
		Bearing:     90,
		Speed:       12.5,
		Timestamp:   time.Unix(1700000000, 0),
	}})

	assert.JSONEq(t,
		`{"type":"bus","data":[{"id":"V1","line":"21","coordinates":[25.74,62.24],"bearing":90}]}`,
		encode(t, ev))
}

func TestVehicleEventEmptySnapshot(t *testing.T) {
	assert.JSONEq(t, `{"type":"bus","data":[]}`, encode(t, VehicleEvent(nil)))
}

func TestHubShowBusStop(t *testing.T) {
	tr := &fakeTransport{}
	h := NewHub(tr)

	assert.True(t, h.ShowBusStop("u1", "Keskusta", 25.74, 62.24))
	require.Len(t, tr.users, 1)
	assert.Equal(t, "u1", tr.users[0].user)
	assert.JSONEq(t,
		`{"type":"show-bus-stop","data":{"name":"Keskusta","coordinates":[25.74,62.24]}}`,
		encode(t, tr.users[0].ev))
}

func TestHubShowBusStopWithoutPosition(t *testing.T) {
	tr := &fakeTransport{}
	h := NewHub(tr)

	assert.False(t, h.ShowBusStop("u1", "Nowhere", 0, 62.24))
	assert.False(t, h.ShowBusStop("u1", "Nowhere", 25.74, 0))
	assert.Empty(t, tr.users)
}

func TestHubFilterBusLines(t *testing.T) {
	tr := &fakeTransport{}
	h := NewHub(tr)

	assert.True(t, h.FilterBusLines("u2", []string{"21", "27"}))
	assert.True(t, h.FilterBusLines("u2", nil))
	require.Len(t, tr.users, 2)
	assert.JSONEq(t, `{"type":"filter-bus-lines","data":["21","27"]}`, encode(t, tr.users[0].ev))
	assert.JSONEq(t, `{"type":"filter-bus-lines","data":[]}`, encode(t, tr.users[1].ev))
	assert.Empty(t, tr.all)
}

func TestHubSwallowsTransportErrors(t *testing.T) {
	tr := &fakeTransport{err: errors.New("nats: connection closed")}
	h := NewHub(tr)

	assert.False(t, h.FilterBusLines("u1", []string{"21"}))
	assert.False(t, h.ShowBusStop("u1", "Keskusta", 25.74, 62.24))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "linkki.all", AllSubject("linkki"))
	assert.Equal(t, "linkki.users.abc", UserSubject("linkki", "abc"))
	assert.Equal(t, "linkki.users.a_b_c", UserSubject("linkki", "a.b c"))
	assert.Equal(t, "linkki.users._", UserSubject("linkki", "  "))
}
