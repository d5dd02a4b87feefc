package transit

import (
	"strings"
	"time"
)

// Trip id prefixes carry calendar applicability.
const (
	SaturdayPrefix = "L_"
	SundayPrefix   = "S_"
	WeekdayPrefix  = "M-P_"
)

// TripRunsOn reports whether a trip runs on the given weekday. Saturday only
// accepts "L_" trips and Sunday only "S_" trips; Monday to Friday accept any
// trip that is neither.
func TripRunsOn(tripID string, day time.Weekday) bool {
	saturday := strings.HasPrefix(tripID, SaturdayPrefix)
	sunday := strings.HasPrefix(tripID, SundayPrefix)
	switch day {
	case time.Saturday:
		return saturday
	case time.Sunday:
		return sunday
	default:
		return !saturday && !sunday
	}
}

// NormalizeName folds a user supplied name for case-insensitive matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
