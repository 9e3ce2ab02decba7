package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/rental/carly"
	"github.com/example/parklite/internal/rental/service"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Berlin to Hamburg, roughly 255 km
	d := service.Haversine(52.5200, 13.4050, 53.5511, 9.9937)
	require.InDelta(t, 255, d, 5)

	require.Zero(t, service.Haversine(10, 20, 10, 20))
}

func TestSortByDistanceClosestFirst(t *testing.T) {
	cars := []carly.Car{
		{ID: "far", Location: carly.Location{Latitude: 1.0, Longitude: 0}},
		{ID: "near", Location: carly.Location{Latitude: 0.01, Longitude: 0}},
		{ID: "mid", Location: carly.Location{Latitude: 0.5, Longitude: 0}},
	}

	service.SortByDistance(cars, 0, 0)
	require.Equal(t, "near", cars[0].ID)
	require.Equal(t, "mid", cars[1].ID)
	require.Equal(t, "far", cars[2].ID)
}
