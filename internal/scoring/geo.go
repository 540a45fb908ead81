package scoring

import "math"

const earthRadiusKM = 6371

// DistanceKM computes the great-circle distance between two points using
// the haversine formula.
func DistanceKM(a, b Coordinates) float64 {
	dLat := deg2rad(b.Latitude - a.Latitude)
	dLng := deg2rad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(a.Latitude))*math.Cos(deg2rad(b.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKM * c
}

// WithinRadiusKM reports whether point is within radiusKM of center.
func WithinRadiusKM(center, point Coordinates, radiusKM float64) bool {
	return DistanceKM(center, point) <= radiusKM
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
