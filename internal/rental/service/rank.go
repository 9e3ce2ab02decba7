package service

import (
	"math"
	"sort"

	"github.com/example/parklite/internal/rental/carly"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 = toRadians(lat1)
	lon1 = toRadians(lon1)
	lat2 = toRadians(lat2)
	lon2 = toRadians(lon2)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// SortByDistance orders the full collection ascending by distance to the
// caller coordinate, closest first. The sort is stable so equidistant cars
// keep their upstream order.
func SortByDistance(cars []carly.Car, lat, lon float64) {
	sort.SliceStable(cars, func(i, j int) bool {
		di := Haversine(cars[i].Location.Latitude, cars[i].Location.Longitude, lat, lon)
		dj := Haversine(cars[j].Location.Latitude, cars[j].Location.Longitude, lat, lon)
		return di < dj
	})
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
