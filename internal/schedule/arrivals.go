package schedule

import (
	"math"
	"sort"
	"strings"
	"time"

	"linkki-tracker/internal/transit"
)

const (
	// LookBehind keeps buses that left up to two minutes ago.
	LookBehind = 2 * time.Minute
	// LookAhead bounds how far ahead arrivals are reported.
	LookAhead = 2 * time.Hour
)

// Arrivals lists the arrivals of route at stopName inside
// [now-LookBehind, now+LookAhead), ordered by minutes until arrival. now must
// already be in the operating time zone; scheduled times are compared as
// clock values of that same day.
func Arrivals(route *transit.Route, stopName string, now time.Time) []transit.Arrival {
	arrivals := []transit.Arrival{}
	if route == nil {
		return arrivals
	}
	want := strings.TrimSpace(stopName)
	nowClock := ClockOf(now)
	from := nowClock - Clock(LookBehind)
	until := nowClock + Clock(LookAhead)

	for _, trip := range route.Trips {
		if !transit.TripRunsOn(trip.TripID, now.Weekday()) {
			continue
		}
		for _, stop := range trip.Stops {
			if stop.ArrivalTime == "" || !strings.EqualFold(stop.Name, want) {
				continue
			}
			at, ok := ParseClock(stop.ArrivalTime)
			if !ok {
				continue
			}
			if at < from || at >= until {
				continue
			}
			minutes := time.Duration(at - nowClock).Minutes()
			arrivals = append(arrivals, transit.Arrival{
				LineName:            route.LineName,
				TripID:              trip.TripID,
				StopName:            stop.Name,
				ArrivalTime:         at.String(),
				MinutesUntilArrival: int(math.Round(minutes)),
			})
		}
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].MinutesUntilArrival < arrivals[j].MinutesUntilArrival
	})
	return arrivals
}
