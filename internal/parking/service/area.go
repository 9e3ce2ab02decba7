package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/parklite/internal/parking/domain"
)

// AreaService owns the parking area lifecycle, including the cascading
// delete that removes dependent spots and their reservations.
type AreaService struct {
	areas        domain.AreaRepository
	spots        domain.SpotRepository
	reservations domain.ReservationRepository
	tx           domain.TxManager
	events       domain.EventPublisher
	clock        domain.Clock
}

// NewAreaService constructs an AreaService with the required collaborators.
func NewAreaService(areas domain.AreaRepository, spots domain.SpotRepository, reservations domain.ReservationRepository, tx domain.TxManager, events domain.EventPublisher, clock domain.Clock) *AreaService {
	return &AreaService{areas: areas, spots: spots, reservations: reservations, tx: tx, events: events, clock: clock}
}

// List returns a page of areas matching a case-insensitive substring filter
// on address, city or name (all three OR'd when no field is given), sorted
// by address.
func (s *AreaService) List(ctx context.Context, search domain.AreaSearch, req domain.PageRequest) (domain.Page[domain.ParkingArea], error) {
	switch search.Field {
	case "", "address", "city", "name":
	default:
		// Unknown field means no filtering, matching every area.
		search = domain.AreaSearch{}
	}
	return s.areas.Search(ctx, search, req)
}

// Get retrieves one area by id.
func (s *AreaService) Get(ctx context.Context, id int64) (domain.ParkingArea, error) {
	return s.areas.FindByID(ctx, id)
}

// Create persists a new area. The name must not collide with an existing
// one (exact, case-sensitive match).
func (s *AreaService) Create(ctx context.Context, area domain.ParkingArea) (domain.ParkingArea, error) {
	if area.Name == "" {
		return domain.ParkingArea{}, fmt.Errorf("%w: parking area name is required", domain.ErrValidation)
	}
	exists, err := s.areas.ExistsByName(ctx, area.Name)
	if err != nil {
		return domain.ParkingArea{}, fmt.Errorf("check area name: %w", err)
	}
	if exists {
		return domain.ParkingArea{}, fmt.Errorf("%w: parking area %q", domain.ErrAlreadyExists, area.Name)
	}
	area.ID = 0
	return s.areas.Save(ctx, area)
}

// Update replaces all mutable fields of an existing area, preserving its id.
func (s *AreaService) Update(ctx context.Context, id int64, area domain.ParkingArea) (domain.ParkingArea, error) {
	if _, err := s.areas.FindByID(ctx, id); err != nil {
		return domain.ParkingArea{}, err
	}
	area.ID = id
	return s.areas.Save(ctx, area)
}

// Delete removes the area together with its spots and their reservations.
// Returns false when the area does not exist. The whole cascade runs inside
// one transaction scope.
func (s *AreaService) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.areas.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var removed []int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		spots, err := s.spots.FindByArea(ctx, id, false)
		if err != nil {
			return fmt.Errorf("list area spots: %w", err)
		}
		for _, spot := range spots {
			res, err := s.reservations.FindBySpot(ctx, spot.ID)
			switch {
			case err == nil:
				if err := s.reservations.DeleteByID(ctx, res.ID); err != nil {
					return fmt.Errorf("delete reservation %d: %w", res.ID, err)
				}
				removed = append(removed, res.ID)
			case errors.Is(err, domain.ErrNotFound):
			default:
				return fmt.Errorf("find spot reservation: %w", err)
			}
			if err := s.spots.DeleteByID(ctx, spot.ID); err != nil {
				return fmt.Errorf("delete spot %d: %w", spot.ID, err)
			}
		}
		return s.areas.DeleteByID(ctx, id)
	})
	if err != nil {
		return false, err
	}

	if s.events != nil {
		for _, resID := range removed {
			_ = s.events.Publish(ctx, domain.ReservationEvent{
				ID:            uuid.New(),
				Type:          domain.EventCascadeDeleted,
				ReservationID: resID,
				Payload:       map[string]any{"parking_area_id": id},
				CreatedAt:     s.clock.Now(),
			})
		}
	}
	return true, nil
}
