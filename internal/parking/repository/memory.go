package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/parklite/internal/parking/domain"
)

type txKey struct{}

// Store is an in-memory backend suitable for tests and local demos. All four
// entity repositories share one store so a transaction scope can snapshot and
// restore the whole state.
type Store struct {
	mu           sync.RWMutex
	areas        map[int64]domain.ParkingArea
	spots        map[int64]domain.ParkingSpot
	users        map[int64]domain.User
	reservations map[int64]domain.Reservation
	seq          int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		areas:        make(map[int64]domain.ParkingArea),
		spots:        make(map[int64]domain.ParkingSpot),
		users:        make(map[int64]domain.User),
		reservations: make(map[int64]domain.Reservation),
	}
}

// Areas returns the area repository view.
func (s *Store) Areas() *MemoryAreaRepo { return &MemoryAreaRepo{s: s} }

// Spots returns the spot repository view.
func (s *Store) Spots() *MemorySpotRepo { return &MemorySpotRepo{s: s} }

// Users returns the user repository view.
func (s *Store) Users() *MemoryUserRepo { return &MemoryUserRepo{s: s} }

// Reservations returns the reservation repository view.
func (s *Store) Reservations() *MemoryReservationRepo { return &MemoryReservationRepo{s: s} }

// InTx serializes the function under the store write lock and restores a
// snapshot of the full state if it fails, giving the cascade rollback
// semantics a durable backend would get from a real transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restoreLocked(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	areas        map[int64]domain.ParkingArea
	spots        map[int64]domain.ParkingSpot
	users        map[int64]domain.User
	reservations map[int64]domain.Reservation
	seq          int64
}

func (s *Store) snapshotLocked() storeSnapshot {
	return storeSnapshot{
		areas:        copyMap(s.areas),
		spots:        copyMap(s.spots),
		users:        copyMap(s.users),
		reservations: copyMap(s.reservations),
		seq:          s.seq,
	}
}

func (s *Store) restoreLocked(snap storeSnapshot) {
	s.areas = snap.areas
	s.spots = snap.spots
	s.users = snap.users
	s.reservations = snap.reservations
	s.seq = snap.seq
}

func copyMap[V any](src map[int64]V) map[int64]V {
	dst := make(map[int64]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// read acquires the read lock unless already inside a transaction scope.
func (s *Store) read(ctx context.Context, fn func()) {
	if inTx(ctx) {
		fn()
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write acquires the write lock unless already inside a transaction scope.
func (s *Store) write(ctx context.Context, fn func()) {
	if inTx(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// MemoryAreaRepo implements domain.AreaRepository.
type MemoryAreaRepo struct{ s *Store }

func (r *MemoryAreaRepo) Save(ctx context.Context, area domain.ParkingArea) (domain.ParkingArea, error) {
	r.s.write(ctx, func() {
		if area.ID == 0 {
			area.ID = r.s.nextID()
		}
		r.s.areas[area.ID] = area
	})
	return area, nil
}

func (r *MemoryAreaRepo) FindByID(ctx context.Context, id int64) (domain.ParkingArea, error) {
	var area domain.ParkingArea
	var ok bool
	r.s.read(ctx, func() { area, ok = r.s.areas[id] })
	if !ok {
		return domain.ParkingArea{}, fmt.Errorf("parking area %d: %w", id, domain.ErrNotFound)
	}
	return area, nil
}

func (r *MemoryAreaRepo) DeleteByID(ctx context.Context, id int64) error {
	var ok bool
	r.s.write(ctx, func() {
		_, ok = r.s.areas[id]
		delete(r.s.areas, id)
	})
	if !ok {
		return fmt.Errorf("parking area %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *MemoryAreaRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var ok bool
	r.s.read(ctx, func() { _, ok = r.s.areas[id] })
	return ok, nil
}

func (r *MemoryAreaRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var found bool
	r.s.read(ctx, func() {
		for _, area := range r.s.areas {
			if area.Name == name {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *MemoryAreaRepo) Search(ctx context.Context, search domain.AreaSearch, req domain.PageRequest) (domain.Page[domain.ParkingArea], error) {
	var matched []domain.ParkingArea
	r.s.read(ctx, func() {
		for _, area := range r.s.areas {
			if matchArea(area, search) {
				matched = append(matched, area)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if req.Direction == domain.SortDesc {
			return matched[i].Address > matched[j].Address
		}
		return matched[i].Address < matched[j].Address
	})
	return domain.Paginate(matched, req), nil
}

func matchArea(area domain.ParkingArea, search domain.AreaSearch) bool {
	if search.Query == "" {
		return true
	}
	switch search.Field {
	case "address":
		return containsFold(area.Address, search.Query)
	case "city":
		return containsFold(area.City, search.Query)
	case "name":
		return containsFold(area.Name, search.Query)
	case "":
		return containsFold(area.Address, search.Query) ||
			containsFold(area.City, search.Query) ||
			containsFold(area.Name, search.Query)
	default:
		return true
	}
}

// MemorySpotRepo implements domain.SpotRepository.
type MemorySpotRepo struct{ s *Store }

func (r *MemorySpotRepo) Save(ctx context.Context, spot domain.ParkingSpot) (domain.ParkingSpot, error) {
	r.s.write(ctx, func() {
		if spot.ID == 0 {
			spot.ID = r.s.nextID()
		}
		r.s.spots[spot.ID] = spot
	})
	return spot, nil
}

func (r *MemorySpotRepo) FindByID(ctx context.Context, id int64) (domain.ParkingSpot, error) {
	var spot domain.ParkingSpot
	var ok bool
	r.s.read(ctx, func() { spot, ok = r.s.spots[id] })
	if !ok {
		return domain.ParkingSpot{}, fmt.Errorf("parking spot %d: %w", id, domain.ErrNotFound)
	}
	return spot, nil
}

func (r *MemorySpotRepo) DeleteByID(ctx context.Context, id int64) error {
	var ok bool
	r.s.write(ctx, func() {
		_, ok = r.s.spots[id]
		delete(r.s.spots, id)
	})
	if !ok {
		return fmt.Errorf("parking spot %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *MemorySpotRepo) ExistsByAreaAndNumber(ctx context.Context, areaID int64, spotNumber string) (bool, error) {
	var found bool
	r.s.read(ctx, func() {
		for _, spot := range r.s.spots {
			if spot.ParkingAreaID == areaID && spot.SpotNumber == spotNumber {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *MemorySpotRepo) FindByArea(ctx context.Context, areaID int64, availableOnly bool) ([]domain.ParkingSpot, error) {
	var spots []domain.ParkingSpot
	r.s.read(ctx, func() {
		for _, spot := range r.s.spots {
			if spot.ParkingAreaID != areaID {
				continue
			}
			if availableOnly && !spot.IsAvailable {
				continue
			}
			spots = append(spots, spot)
		}
	})
	sort.Slice(spots, func(i, j int) bool { return spots[i].SpotNumber < spots[j].SpotNumber })
	return spots, nil
}

func (r *MemorySpotRepo) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ParkingSpot], error) {
	var spots []domain.ParkingSpot
	r.s.read(ctx, func() {
		for _, spot := range r.s.spots {
			spots = append(spots, spot)
		}
	})
	sort.Slice(spots, func(i, j int) bool {
		if req.Direction == domain.SortDesc {
			return spots[i].SpotNumber > spots[j].SpotNumber
		}
		return spots[i].SpotNumber < spots[j].SpotNumber
	})
	return domain.Paginate(spots, req), nil
}

// MemoryUserRepo implements domain.UserRepository.
type MemoryUserRepo struct{ s *Store }

func (r *MemoryUserRepo) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.s.write(ctx, func() {
		if user.ID == 0 {
			user.ID = r.s.nextID()
		}
		r.s.users[user.ID] = user
	})
	return user, nil
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	var ok bool
	r.s.read(ctx, func() { user, ok = r.s.users[id] })
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

func (r *MemoryUserRepo) DeleteByID(ctx context.Context, id int64) error {
	var ok bool
	r.s.write(ctx, func() {
		_, ok = r.s.users[id]
		delete(r.s.users, id)
	})
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *MemoryUserRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var ok bool
	r.s.read(ctx, func() { _, ok = r.s.users[id] })
	return ok, nil
}

func (r *MemoryUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var found bool
	r.s.read(ctx, func() {
		for _, user := range r.s.users {
			if user.Username == username {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *MemoryUserRepo) Search(ctx context.Context, search domain.UserSearch, req domain.PageRequest) (domain.Page[domain.User], error) {
	var matched []domain.User
	r.s.read(ctx, func() {
		for _, user := range r.s.users {
			if matchUser(user, search) {
				matched = append(matched, user)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if req.Direction == domain.SortDesc {
			return matched[i].Username > matched[j].Username
		}
		return matched[i].Username < matched[j].Username
	})
	return domain.Paginate(matched, req), nil
}

func matchUser(user domain.User, search domain.UserSearch) bool {
	if search.Query == "" {
		return true
	}
	switch search.Field {
	case "username":
		return containsFold(user.Username, search.Query)
	case "email":
		return containsFold(user.Email, search.Query)
	case "firstName":
		return containsFold(user.FirstName, search.Query)
	case "lastName":
		return containsFold(user.LastName, search.Query)
	case "fullName":
		return containsFold(user.FirstName+" "+user.LastName, search.Query)
	default:
		return true
	}
}

// MemoryReservationRepo implements domain.ReservationRepository.
type MemoryReservationRepo struct{ s *Store }

func (r *MemoryReservationRepo) Save(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	r.s.write(ctx, func() {
		if res.ID == 0 {
			res.ID = r.s.nextID()
		}
		r.s.reservations[res.ID] = res
	})
	return res, nil
}

func (r *MemoryReservationRepo) FindByID(ctx context.Context, id int64) (domain.Reservation, error) {
	var res domain.Reservation
	var ok bool
	r.s.read(ctx, func() { res, ok = r.s.reservations[id] })
	if !ok {
		return domain.Reservation{}, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return res, nil
}

func (r *MemoryReservationRepo) DeleteByID(ctx context.Context, id int64) error {
	var ok bool
	r.s.write(ctx, func() {
		_, ok = r.s.reservations[id]
		delete(r.s.reservations, id)
	})
	if !ok {
		return fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *MemoryReservationRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var ok bool
	r.s.read(ctx, func() { _, ok = r.s.reservations[id] })
	return ok, nil
}

func (r *MemoryReservationRepo) ExistsByTuple(ctx context.Context, userID, spotID int64, start, end time.Time) (bool, error) {
	var found bool
	r.s.read(ctx, func() {
		for _, res := range r.s.reservations {
			if res.UserID == userID && res.ParkingSpotID == spotID &&
				res.StartTime.Equal(start) && res.EndTime.Equal(end) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *MemoryReservationRepo) FindBySpot(ctx context.Context, spotID int64) (domain.Reservation, error) {
	var res domain.Reservation
	var found bool
	r.s.read(ctx, func() {
		for _, candidate := range r.s.reservations {
			if candidate.ParkingSpotID == spotID {
				res = candidate
				found = true
				return
			}
		}
	})
	if !found {
		return domain.Reservation{}, fmt.Errorf("reservation for spot %d: %w", spotID, domain.ErrNotFound)
	}
	return res, nil
}

func (r *MemoryReservationRepo) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return r.listFiltered(ctx, req, func(domain.Reservation) bool { return true })
}

func (r *MemoryReservationRepo) ListByUser(ctx context.Context, userID int64, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return r.listFiltered(ctx, req, func(res domain.Reservation) bool { return res.UserID == userID })
}

func (r *MemoryReservationRepo) listFiltered(ctx context.Context, req domain.PageRequest, keep func(domain.Reservation) bool) (domain.Page[domain.Reservation], error) {
	var matched []domain.Reservation
	r.s.read(ctx, func() {
		for _, res := range r.s.reservations {
			if keep(res) {
				matched = append(matched, res)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if req.Direction == domain.SortDesc {
			a, b = b, a
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.EndTime.Before(b.EndTime)
	})
	return domain.Paginate(matched, req), nil
}
