package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/parklite/internal/parking/domain"
)

// DuplicateGuard fends off concurrent identical submissions before the
// repository-level tuple check can see them. Implementations are best-effort;
// holds expire on their own, but a create that fails after acquiring the hold
// must Release it so a legitimate retry is not rejected for the TTL.
type DuplicateGuard interface {
	TryHold(ctx context.Context, userID, spotID int64, start, end time.Time) (bool, error)
	Release(ctx context.Context, userID, spotID int64, start, end time.Time) error
}

// ReservationService owns the booking lifecycle: reference validation,
// the duplicate-submission guard and cost computation.
type ReservationService struct {
	reservations domain.ReservationRepository
	users        domain.UserRepository
	spots        domain.SpotRepository
	areas        domain.AreaRepository
	guard        DuplicateGuard
	events       domain.EventPublisher
	clock        domain.Clock
}

// NewReservationService constructs a ReservationService. guard and events
// may be nil.
func NewReservationService(reservations domain.ReservationRepository, users domain.UserRepository, spots domain.SpotRepository, areas domain.AreaRepository, guard DuplicateGuard, events domain.EventPublisher, clock domain.Clock) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		users:        users,
		spots:        spots,
		areas:        areas,
		guard:        guard,
		events:       events,
		clock:        clock,
	}
}

// CreateReservationRequest carries the booking parameters. TotalCost is
// optional; when absent the cost is computed from the area's hourly rate.
type CreateReservationRequest struct {
	UserID        int64
	ParkingSpotID int64
	StartTime     time.Time
	EndTime       time.Time
	TotalCost     *decimal.Decimal
}

// ListAll returns reservations sorted by (startTime, endTime), paginated.
func (s *ReservationService) ListAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return s.reservations.List(ctx, req)
}

// ListByUser returns the paginated subset scoped to one user.
func (s *ReservationService) ListByUser(ctx context.Context, userID int64, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return s.reservations.ListByUser(ctx, userID, req)
}

// Get retrieves one reservation by id.
func (s *ReservationService) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	return s.reservations.FindByID(ctx, id)
}

// GetByParkingSpot retrieves the reservation referencing the given spot.
func (s *ReservationService) GetByParkingSpot(ctx context.Context, spotID int64) (domain.Reservation, error) {
	return s.reservations.FindBySpot(ctx, spotID)
}

// Create validates both foreign references, applies the exact-tuple
// duplicate guard and persists the reservation with a server-set creation
// timestamp. Overlapping-but-not-identical windows are intentionally not
// rejected.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (domain.Reservation, error) {
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			reservationFailures.WithLabelValues("user_missing").Inc()
			return domain.Reservation{}, fmt.Errorf("%w: user not found", domain.ErrValidation)
		}
		return domain.Reservation{}, err
	}
	spot, err := s.spots.FindByID(ctx, req.ParkingSpotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			reservationFailures.WithLabelValues("spot_missing").Inc()
			return domain.Reservation{}, fmt.Errorf("%w: parking spot not found", domain.ErrValidation)
		}
		return domain.Reservation{}, err
	}
	if !req.EndTime.After(req.StartTime) {
		reservationFailures.WithLabelValues("invalid_window").Inc()
		return domain.Reservation{}, fmt.Errorf("%w: end time must be after start time", domain.ErrValidation)
	}

	persisted := false
	if s.guard != nil {
		held, gerr := s.guard.TryHold(ctx, user.ID, spot.ID, req.StartTime, req.EndTime)
		switch {
		case gerr != nil:
			// Guard unreachable: degrade to the repository tuple check alone
			// rather than blocking bookings.
			guardErrors.Inc()
		case !held:
			reservationFailures.WithLabelValues("duplicate").Inc()
			return domain.Reservation{}, fmt.Errorf("%w: reservation already exists", domain.ErrAlreadyExists)
		default:
			// On the happy path the persisted row takes over as the duplicate
			// guard; a failed create must give the hold back so a retry of the
			// same tuple is not rejected for the TTL.
			defer func() {
				if !persisted {
					_ = s.guard.Release(ctx, user.ID, spot.ID, req.StartTime, req.EndTime)
				}
			}()
		}
	}

	duplicate, err := s.reservations.ExistsByTuple(ctx, user.ID, spot.ID, req.StartTime, req.EndTime)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("check duplicate reservation: %w", err)
	}
	if duplicate {
		reservationFailures.WithLabelValues("duplicate").Inc()
		return domain.Reservation{}, fmt.Errorf("%w: reservation already exists", domain.ErrAlreadyExists)
	}

	cost, err := s.resolveCost(ctx, spot, req.StartTime, req.EndTime, req.TotalCost)
	if err != nil {
		return domain.Reservation{}, err
	}

	created, err := s.reservations.Save(ctx, domain.Reservation{
		ParkingSpotID: spot.ID,
		UserID:        user.ID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalCost:     cost,
		CreatedAt:     s.clock.Now(),
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("save reservation: %w", err)
	}
	persisted = true

	reservationsCreated.Inc()
	if s.events != nil {
		_ = s.events.Publish(ctx, domain.ReservationEvent{
			ID:            uuid.New(),
			Type:          domain.EventReservationCreated,
			ReservationID: created.ID,
			Payload:       map[string]any{"user_id": created.UserID, "parking_spot_id": created.ParkingSpotID},
			CreatedAt:     s.clock.Now(),
		})
	}
	return created, nil
}

// Update replaces the reservation's fields after the same reference checks
// as Create. The creation timestamp is preserved.
func (s *ReservationService) Update(ctx context.Context, id int64, req CreateReservationRequest) (domain.Reservation, error) {
	existing, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%w: user not found", domain.ErrValidation)
		}
		return domain.Reservation{}, err
	}
	spot, err := s.spots.FindByID(ctx, req.ParkingSpotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%w: parking spot not found", domain.ErrValidation)
		}
		return domain.Reservation{}, err
	}
	if !req.EndTime.After(req.StartTime) {
		return domain.Reservation{}, fmt.Errorf("%w: end time must be after start time", domain.ErrValidation)
	}

	cost, err := s.resolveCost(ctx, spot, req.StartTime, req.EndTime, req.TotalCost)
	if err != nil {
		return domain.Reservation{}, err
	}

	updated, err := s.reservations.Save(ctx, domain.Reservation{
		ID:            existing.ID,
		ParkingSpotID: spot.ID,
		UserID:        req.UserID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalCost:     cost,
		CreatedAt:     existing.CreatedAt,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("save reservation: %w", err)
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, domain.ReservationEvent{
			ID:            uuid.New(),
			Type:          domain.EventReservationUpdated,
			ReservationID: updated.ID,
			CreatedAt:     s.clock.Now(),
		})
	}
	return updated, nil
}

// Delete removes the reservation, failing with not-found when absent.
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	exists, err := s.reservations.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check reservation: %w", err)
	}
	if !exists {
		return fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	if err := s.reservations.DeleteByID(ctx, id); err != nil {
		return err
	}

	reservationsDeleted.Inc()
	if s.events != nil {
		_ = s.events.Publish(ctx, domain.ReservationEvent{
			ID:            uuid.New(),
			Type:          domain.EventReservationDeleted,
			ReservationID: id,
			CreatedAt:     s.clock.Now(),
		})
	}
	return nil
}

// resolveCost accepts a caller-provided total or computes hourlyRate times
// the (fractional) duration in hours, rounded to two decimal places.
func (s *ReservationService) resolveCost(ctx context.Context, spot domain.ParkingSpot, start, end time.Time, provided *decimal.Decimal) (decimal.Decimal, error) {
	if provided != nil {
		return *provided, nil
	}
	area, err := s.areas.FindByID(ctx, spot.ParkingAreaID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("find parking area for cost: %w", err)
	}
	hours := decimal.NewFromFloat(end.Sub(start).Hours())
	return area.HourlyRate.Mul(hours).Round(2), nil
}
