// Package schedule resolves upcoming arrivals from static trip schedules.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a same-day time of day.
type Clock time.Duration

// ParseClock parses "H:MM" or "H:MM:SS" with hours 0-23. Values the day
// cannot hold, such as "25:00:00", report ok=false.
func ParseClock(s string) (Clock, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	limits := []int{23, 59, 59}
	var fields [3]int
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, false
		}
		fields[i] = n
	}
	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second
	return Clock(d), true
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	return Clock(d + time.Duration(t.Nanosecond()))
}

func (c Clock) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
