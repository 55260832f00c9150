package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the spherical approximation.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two points
// using the haversine formula. Inputs must be finite.
func Distance(originLat, originLng, targetLat, targetLng float64) float64 {
	dLat := toRadians(targetLat - originLat)
	dLng := toRadians(targetLng - originLng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(originLat))*math.Cos(toRadians(targetLat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push a slightly above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
