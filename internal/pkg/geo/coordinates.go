package geo

import (
	"math"
	"strconv"
)

// ValidateCoordinates checks if latitude and longitude are within range.
// Latitude must be between -90 and 90, longitude between -180 and 180.
func ValidateCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HasValidCoordinates is ValidateCoordinates that also rejects the (0, 0) point,
// which in AI output almost always means "unknown".
func HasValidCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return ValidateCoordinates(lat, lng)
}

// Round rounds v to the given number of decimals.
func Round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// FormatFixed renders v with a fixed number of decimals, the way cache and
// context keys expect it ("52.37", never "52.370000").
func FormatFixed(v float64, precision int) string {
	s := strconv.FormatFloat(Round(v, precision), 'f', precision, 64)
	// avoid "-0.00" and "0.00" producing different keys
	if Round(v, precision) == 0 {
		return strconv.FormatFloat(0, 'f', precision, 64)
	}
	return s
}
