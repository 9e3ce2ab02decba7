package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/rental/carly"
	"github.com/example/parklite/internal/rental/service"
)

type stubClient struct {
	cars      []carly.Car
	fetchErr  error
	customers []string
	rentals   []string
	ensureErr error
	createErr error
}

func (s *stubClient) FetchCars(context.Context) ([]carly.Car, error) {
	return s.cars, s.fetchErr
}

func (s *stubClient) EnsureCustomer(_ context.Context, email string) error {
	s.customers = append(s.customers, email)
	return s.ensureErr
}

func (s *stubClient) CreateRental(_ context.Context, _, carID string, _, _ time.Time) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.rentals = append(s.rentals, carID)
	return nil
}

func TestSearchByProximityRanksAndPaginates(t *testing.T) {
	client := &stubClient{cars: []carly.Car{
		{ID: "far", Location: carly.Location{Latitude: 5, Longitude: 0}},
		{ID: "near", Location: carly.Location{Latitude: 0.1, Longitude: 0}},
		{ID: "mid", Location: carly.Location{Latitude: 2, Longitude: 0}},
	}}
	svc := service.New(client)

	page, err := svc.SearchByProximity(context.Background(), 0, 0, domain.NewPageRequest(0, 2, "asc"))
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	require.Equal(t, "near", page.Content[0].ID)
	require.Equal(t, "mid", page.Content[1].ID)
	require.Equal(t, int64(3), page.TotalElements)

	// page beyond the result set still reports the true total
	empty, err := svc.SearchByProximity(context.Background(), 0, 0, domain.NewPageRequest(7, 2, "asc"))
	require.NoError(t, err)
	require.Empty(t, empty.Content)
	require.Equal(t, int64(3), empty.TotalElements)
}

func TestSearchByProximityPropagatesUpstreamError(t *testing.T) {
	client := &stubClient{fetchErr: domain.ErrUpstream}
	svc := service.New(client)

	_, err := svc.SearchByProximity(context.Background(), 0, 0, domain.NewPageRequest(0, 10, "asc"))
	require.ErrorIs(t, err, domain.ErrUpstream)
}

func TestCreateCarReservationValidates(t *testing.T) {
	svc := service.New(&stubClient{})
	now := time.Now()

	err := svc.CreateCarReservation(context.Background(), service.CarReservationRequest{
		CarID:     "c1",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	err = svc.CreateCarReservation(context.Background(), service.CarReservationRequest{
		UserEmail: "a@b.com",
		CarID:     "c1",
		StartTime: now.Add(time.Hour),
		EndTime:   now,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateCarReservationEnsuresCustomerFirst(t *testing.T) {
	client := &stubClient{}
	svc := service.New(client)
	now := time.Now()

	err := svc.CreateCarReservation(context.Background(), service.CarReservationRequest{
		UserEmail: "a@b.com",
		CarID:     "c1",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a@b.com"}, client.customers)
	require.Equal(t, []string{"c1"}, client.rentals)
}

func TestCreateCarReservationStopsOnCustomerFailure(t *testing.T) {
	client := &stubClient{ensureErr: errors.New("partner down")}
	svc := service.New(client)
	now := time.Now()

	err := svc.CreateCarReservation(context.Background(), service.CarReservationRequest{
		UserEmail: "a@b.com",
		CarID:     "c1",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
	})
	require.Error(t, err)
	require.Empty(t, client.rentals)
}
