package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/parking/repository"
	"github.com/example/parklite/internal/parking/service"
)

type stubPublisher struct{ events []domain.ReservationEvent }

func (s *stubPublisher) Publish(_ context.Context, event domain.ReservationEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type stubGuard struct {
	held     bool
	err      error
	calls    int
	releases int
}

func (s *stubGuard) TryHold(context.Context, int64, int64, time.Time, time.Time) (bool, error) {
	s.calls++
	return s.held, s.err
}

func (s *stubGuard) Release(context.Context, int64, int64, time.Time, time.Time) error {
	s.releases++
	return nil
}

type fixture struct {
	store        *repository.Store
	areas        *service.AreaService
	spots        *service.SpotService
	users        *service.UserService
	reservations *service.ReservationService
	publisher    *stubPublisher
	guard        *stubGuard
	clock        stubClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewStore()
	publisher := &stubPublisher{}
	guard := &stubGuard{held: true}
	clock := stubClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return &fixture{
		store:        store,
		areas:        service.NewAreaService(store.Areas(), store.Spots(), store.Reservations(), store, publisher, clock),
		spots:        service.NewSpotService(store.Spots(), store.Areas(), store.Reservations(), store, publisher, clock),
		users:        service.NewUserService(store.Users()),
		reservations: service.NewReservationService(store.Reservations(), store.Users(), store.Spots(), store.Areas(), guard, publisher, clock),
		publisher:    publisher,
		guard:        guard,
		clock:        clock,
	}
}

func (f *fixture) seedArea(t *testing.T, name string) domain.ParkingArea {
	t.Helper()
	area, err := f.areas.Create(context.Background(), domain.ParkingArea{
		Name:       name,
		Address:    name + " street",
		City:       "Springfield",
		HourlyRate: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	return area
}

func (f *fixture) seedSpot(t *testing.T, areaID int64, number string) domain.ParkingSpot {
	t.Helper()
	spot, err := f.spots.Create(context.Background(), domain.ParkingSpot{
		SpotNumber:    number,
		ParkingAreaID: areaID,
		IsAvailable:   true,
	})
	require.NoError(t, err)
	return spot
}

func (f *fixture) seedUser(t *testing.T, username string) domain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), domain.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return user
}

func TestAreaCreateRejectsDuplicateName(t *testing.T) {
	f := newFixture(t)
	f.seedArea(t, "Central")

	_, err := f.areas.Create(context.Background(), domain.ParkingArea{Name: "Central"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestAreaListFiltersBySubstring(t *testing.T) {
	f := newFixture(t)
	f.seedArea(t, "Central")
	f.seedArea(t, "Harbor")

	page, err := f.areas.List(context.Background(), domain.AreaSearch{Query: "harb", Field: "name"}, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	require.Equal(t, "Harbor", page.Content[0].Name)

	// unknown field falls back to matching everything
	page, err = f.areas.List(context.Background(), domain.AreaSearch{Query: "zzz", Field: "bogus"}, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Equal(t, int64(2), page.TotalElements)
}

func TestAreaListSortsByAddress(t *testing.T) {
	f := newFixture(t)
	f.seedArea(t, "Zeta")
	f.seedArea(t, "Alpha")

	page, err := f.areas.List(context.Background(), domain.AreaSearch{}, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Equal(t, "Alpha street", page.Content[0].Address)
	require.Equal(t, "Zeta street", page.Content[1].Address)
}

func TestAreaDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	user := f.seedUser(t, "driver")
	spotA := f.seedSpot(t, area.ID, "A1")
	f.seedSpot(t, area.ID, "A2")

	start := f.clock.t.Add(time.Hour)
	_, err := f.reservations.Create(ctx, service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spotA.ID,
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	deleted, err := f.areas.Delete(ctx, area.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = f.areas.Get(ctx, area.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.spots.Get(ctx, spotA.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	page, err := f.reservations.ListAll(ctx, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Empty(t, page.Content)

	last := f.publisher.events[len(f.publisher.events)-1]
	require.Equal(t, domain.EventCascadeDeleted, last.Type)
}

func TestAreaDeleteMissingReturnsFalse(t *testing.T) {
	f := newFixture(t)

	deleted, err := f.areas.Delete(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestSpotCreateRequiresExistingArea(t *testing.T) {
	f := newFixture(t)

	_, err := f.spots.Create(context.Background(), domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: 99})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSpotNumberUniquePerArea(t *testing.T) {
	f := newFixture(t)
	first := f.seedArea(t, "Central")
	second := f.seedArea(t, "Harbor")
	f.seedSpot(t, first.ID, "A1")

	_, err := f.spots.Create(context.Background(), domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: first.ID})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	// same number under another area is fine
	_, err = f.spots.Create(context.Background(), domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: second.ID})
	require.NoError(t, err)
}

func TestSpotListByAreaAvailabilityFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	f.seedSpot(t, area.ID, "A1")
	taken, err := f.spots.Create(ctx, domain.ParkingSpot{SpotNumber: "A2", ParkingAreaID: area.ID, IsAvailable: false})
	require.NoError(t, err)

	all, err := f.spots.ListAllByArea(ctx, area.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "A1", all[0].SpotNumber)

	available, err := f.spots.ListAvailableByArea(ctx, area.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.NotEqual(t, taken.ID, available[0].ID)

	_, err = f.spots.ListAllByArea(ctx, 999)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSpotDeleteCascadesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	user := f.seedUser(t, "driver")
	spot := f.seedSpot(t, area.ID, "A1")

	start := f.clock.t.Add(time.Hour)
	res, err := f.reservations.Create(ctx, service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
	})
	require.NoError(t, err)

	deleted, err := f.spots.Delete(ctx, spot.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = f.reservations.Get(ctx, res.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserCreateRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "driver")

	_, err := f.users.Create(context.Background(), domain.User{Username: "driver"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUserCreateDefaultsRole(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "driver")
	require.Equal(t, domain.RoleUser, user.Role)
}

func TestUserUpdateRejectsTakenUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "first")
	second := f.seedUser(t, "second")

	_, err := f.users.Update(ctx, second.ID, domain.User{Username: "first"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	// keeping the own username is allowed
	updated, err := f.users.Update(ctx, second.ID, domain.User{Username: "second", Email: "new@example.com"})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)
	require.Equal(t, domain.RoleUser, updated.Role)
}

func TestUserDeleteMissing(t *testing.T) {
	f := newFixture(t)
	err := f.users.Delete(context.Background(), 7)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserListFiltersByFullName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Create(ctx, domain.User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	_, err = f.users.Create(ctx, domain.User{Username: "bsmith", FirstName: "Bob", LastName: "Smith"})
	require.NoError(t, err)

	page, err := f.users.List(ctx, domain.UserSearch{Query: "jane doe", Field: "fullName"}, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	require.Equal(t, "jdoe", page.Content[0].Username)
}
