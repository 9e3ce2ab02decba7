package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/parklite/internal/parking/domain"
)

// SpotService owns the parking spot lifecycle and the uniqueness rule for
// spot numbers within an area.
type SpotService struct {
	spots        domain.SpotRepository
	areas        domain.AreaRepository
	reservations domain.ReservationRepository
	tx           domain.TxManager
	events       domain.EventPublisher
	clock        domain.Clock
}

// NewSpotService constructs a SpotService.
func NewSpotService(spots domain.SpotRepository, areas domain.AreaRepository, reservations domain.ReservationRepository, tx domain.TxManager, events domain.EventPublisher, clock domain.Clock) *SpotService {
	return &SpotService{spots: spots, areas: areas, reservations: reservations, tx: tx, events: events, clock: clock}
}

// List returns all spots, paginated and sorted by spot number.
func (s *SpotService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ParkingSpot], error) {
	return s.spots.List(ctx, req)
}

// Get retrieves one spot by id.
func (s *SpotService) Get(ctx context.Context, id int64) (domain.ParkingSpot, error) {
	return s.spots.FindByID(ctx, id)
}

// ListAllByArea returns every spot under the area regardless of availability.
func (s *SpotService) ListAllByArea(ctx context.Context, areaID int64) ([]domain.ParkingSpot, error) {
	return s.listByArea(ctx, areaID, false)
}

// ListAvailableByArea returns only the spots currently marked available.
func (s *SpotService) ListAvailableByArea(ctx context.Context, areaID int64) ([]domain.ParkingSpot, error) {
	return s.listByArea(ctx, areaID, true)
}

func (s *SpotService) listByArea(ctx context.Context, areaID int64, availableOnly bool) ([]domain.ParkingSpot, error) {
	exists, err := s.areas.ExistsByID(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("check parking area: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: parking area %d not found", domain.ErrValidation, areaID)
	}
	return s.spots.FindByArea(ctx, areaID, availableOnly)
}

// Create persists a new spot after validating the owning area exists and the
// spot number is free within it.
func (s *SpotService) Create(ctx context.Context, spot domain.ParkingSpot) (domain.ParkingSpot, error) {
	exists, err := s.areas.ExistsByID(ctx, spot.ParkingAreaID)
	if err != nil {
		return domain.ParkingSpot{}, fmt.Errorf("check parking area: %w", err)
	}
	if !exists {
		return domain.ParkingSpot{}, fmt.Errorf("%w: parking area is required and must exist", domain.ErrValidation)
	}
	taken, err := s.spots.ExistsByAreaAndNumber(ctx, spot.ParkingAreaID, spot.SpotNumber)
	if err != nil {
		return domain.ParkingSpot{}, fmt.Errorf("check spot number: %w", err)
	}
	if taken {
		return domain.ParkingSpot{}, fmt.Errorf("%w: a parking spot with the specified spot number already exists", domain.ErrAlreadyExists)
	}
	spot.ID = 0
	return s.spots.Save(ctx, spot)
}

// Update replaces availability, spot number and area reference in place.
func (s *SpotService) Update(ctx context.Context, id int64, spot domain.ParkingSpot) (domain.ParkingSpot, error) {
	if _, err := s.spots.FindByID(ctx, id); err != nil {
		return domain.ParkingSpot{}, err
	}
	spot.ID = id
	return s.spots.Save(ctx, spot)
}

// Delete removes the spot and any reservation referencing it, inside one
// transaction scope. Returns false when the spot does not exist.
func (s *SpotService) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.spots.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var removed int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.reservations.FindBySpot(ctx, id)
		switch {
		case err == nil:
			if err := s.reservations.DeleteByID(ctx, res.ID); err != nil {
				return fmt.Errorf("delete reservation %d: %w", res.ID, err)
			}
			removed = res.ID
		case errors.Is(err, domain.ErrNotFound):
		default:
			return fmt.Errorf("find spot reservation: %w", err)
		}
		return s.spots.DeleteByID(ctx, id)
	})
	if err != nil {
		return false, err
	}

	if removed != 0 && s.events != nil {
		_ = s.events.Publish(ctx, domain.ReservationEvent{
			ID:            uuid.New(),
			Type:          domain.EventCascadeDeleted,
			ReservationID: removed,
			Payload:       map[string]any{"parking_spot_id": id},
			CreatedAt:     s.clock.Now(),
		})
	}
	return true, nil
}
