package service

import (
	"context"
	"fmt"
	"time"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/rental/carly"
)

// PartnerClient is the slice of the partner API the service needs.
type PartnerClient interface {
	FetchCars(ctx context.Context) ([]carly.Car, error)
	EnsureCustomer(ctx context.Context, email string) error
	CreateRental(ctx context.Context, email, carID string, startAt, endAt time.Time) error
}

// Service ranks partner vehicles by proximity and orchestrates cross-system
// car reservations.
type Service struct {
	client PartnerClient
}

// New constructs a Service.
func New(client PartnerClient) *Service {
	return &Service{client: client}
}

// SearchByProximity fetches the complete partner car list, sorts it by
// haversine distance to the caller coordinate and windows the result. An
// out-of-range page yields empty content with the true total preserved.
func (s *Service) SearchByProximity(ctx context.Context, lat, lon float64, req domain.PageRequest) (domain.Page[carly.Car], error) {
	cars, err := s.client.FetchCars(ctx)
	if err != nil {
		return domain.Page[carly.Car]{}, err
	}
	SortByDistance(cars, lat, lon)
	return domain.Paginate(cars, req), nil
}

// CarReservationRequest carries a cross-system booking.
type CarReservationRequest struct {
	UserEmail string
	CarID     string
	StartTime time.Time
	EndTime   time.Time
}

// CreateCarReservation ensures the customer exists on the partner side and
// then creates the rental. Success requires both steps to succeed; write
// faults surface immediately without retry.
func (s *Service) CreateCarReservation(ctx context.Context, req CarReservationRequest) error {
	if req.UserEmail == "" {
		return fmt.Errorf("%w: user email is required", domain.ErrValidation)
	}
	if req.CarID == "" {
		return fmt.Errorf("%w: car id is required", domain.ErrValidation)
	}
	if !req.EndTime.After(req.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", domain.ErrValidation)
	}
	if err := s.client.EnsureCustomer(ctx, req.UserEmail); err != nil {
		return err
	}
	return s.client.CreateRental(ctx, req.UserEmail, req.CarID, req.StartTime, req.EndTime)
}
