package transit

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters is the haversine great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	lat1, lat2 := toRad(a.Lat()), toRad(b.Lat())
	dLat := lat2 - lat1
	dLon := toRad(b.Lon() - a.Lon())
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}
