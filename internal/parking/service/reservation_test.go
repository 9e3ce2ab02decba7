package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/parking/guard"
	"github.com/example/parklite/internal/parking/repository"
	"github.com/example/parklite/internal/parking/service"
)

func TestReservationCreateUnknownUser(t *testing.T) {
	f := newFixture(t)
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")

	_, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        99,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.ErrorContains(t, err, "user not found")
}

func TestReservationCreateUnknownSpot(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "driver")

	_, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: 99,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.ErrorContains(t, err, "parking spot not found")
}

func TestReservationCreateRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	_, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t.Add(time.Hour),
		EndTime:       f.clock.t,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationCreateComputesCostAndTimestamp(t *testing.T) {
	f := newFixture(t)
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	start := f.clock.t.Add(time.Hour)
	res, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     start,
		EndTime:       start.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	// 1.5 hours at rate 4 per hour
	require.True(t, res.TotalCost.Equal(decimal.NewFromInt(6)), "got %s", res.TotalCost)
	require.Equal(t, f.clock.t, res.CreatedAt)

	require.Len(t, f.publisher.events, 1)
	require.Equal(t, domain.EventReservationCreated, f.publisher.events[0].Type)
}

func TestReservationCreateHonorsProvidedCost(t *testing.T) {
	f := newFixture(t)
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	cost := decimal.NewFromFloat(12.34)
	res, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
		TotalCost:     &cost,
	})
	require.NoError(t, err)
	require.True(t, res.TotalCost.Equal(cost))
}

func TestReservationCreateRejectsExactDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	start := f.clock.t.Add(time.Hour)
	req := service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
	}
	_, err := f.reservations.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.reservations.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.ErrorContains(t, err, "reservation already exists")

	// a shifted window on the same spot is accepted even though it overlaps
	req.EndTime = req.EndTime.Add(time.Minute)
	_, err = f.reservations.Create(ctx, req)
	require.NoError(t, err)
}

func TestReservationCreateGuardBlocksConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	f.guard.held = false
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	_, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
	})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.Equal(t, 1, f.guard.calls)
}

func TestReservationCreateReleasesHoldOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "driver")
	// a spot whose area is gone makes cost resolution fail after the hold
	// was taken, with nothing persisted
	spot, err := f.store.Spots().Save(ctx, domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: 999, IsAvailable: true})
	require.NoError(t, err)

	req := service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
	}
	_, err = f.reservations.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, 1, f.guard.releases)

	// on success the hold stays until the TTL; the persisted row guards
	_, err = f.store.Areas().Save(ctx, domain.ParkingArea{ID: 999, Name: "Central", HourlyRate: decimal.NewFromInt(4)})
	require.NoError(t, err)
	_, err = f.reservations.Create(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, f.guard.releases)
}

func TestReservationCreateRetryAfterFailedCreate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewStore()
	clock := stubClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	holds := guard.NewRedisHoldStore(client, "", time.Minute)
	svc := service.NewReservationService(store.Reservations(), store.Users(), store.Spots(), store.Areas(), holds, nil, clock)

	user, err := store.Users().Save(ctx, domain.User{Username: "driver"})
	require.NoError(t, err)
	spot, err := store.Spots().Save(ctx, domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: 999, IsAvailable: true})
	require.NoError(t, err)

	req := service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     clock.t.Add(time.Hour),
		EndTime:       clock.t.Add(2 * time.Hour),
	}
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// the identical retry within the hold TTL must go through once the
	// area exists again
	_, err = store.Areas().Save(ctx, domain.ParkingArea{ID: 999, Name: "Central", HourlyRate: decimal.NewFromInt(4)})
	require.NoError(t, err)
	res, err := svc.Create(ctx, req)
	require.NoError(t, err)
	require.True(t, res.TotalCost.Equal(decimal.NewFromInt(4)), "got %s", res.TotalCost)
}

func TestReservationCreateSurvivesGuardOutage(t *testing.T) {
	f := newFixture(t)
	f.guard.err = errors.New("dial tcp: connection refused")
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	// a broken guard degrades to the repository tuple check instead of
	// rejecting the booking
	res, err := f.reservations.Create(context.Background(), service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     f.clock.t,
		EndTime:       f.clock.t.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotZero(t, res.ID)
	require.Equal(t, 0, f.guard.releases)
}

func TestReservationUpdateKeepsCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	start := f.clock.t.Add(time.Hour)
	res, err := f.reservations.Create(ctx, service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
	})
	require.NoError(t, err)

	updated, err := f.reservations.Update(ctx, res.ID, service.CreateReservationRequest{
		UserID:        user.ID,
		ParkingSpotID: spot.ID,
		StartTime:     start,
		EndTime:       start.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, res.CreatedAt, updated.CreatedAt)
	require.True(t, updated.TotalCost.Equal(decimal.NewFromInt(12)), "got %s", updated.TotalCost)
}

func TestReservationDeleteMissing(t *testing.T) {
	f := newFixture(t)
	err := f.reservations.Delete(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationListSortedByWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	area := f.seedArea(t, "Central")
	spot := f.seedSpot(t, area.ID, "A1")
	user := f.seedUser(t, "driver")

	base := f.clock.t
	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		_, err := f.reservations.Create(ctx, service.CreateReservationRequest{
			UserID:        user.ID,
			ParkingSpotID: spot.ID,
			StartTime:     base.Add(offset),
			EndTime:       base.Add(offset + time.Hour),
		})
		require.NoError(t, err)
	}

	page, err := f.reservations.ListAll(ctx, domain.NewPageRequest(0, 10, "asc"))
	require.NoError(t, err)
	require.Len(t, page.Content, 3)
	require.True(t, page.Content[0].StartTime.Before(page.Content[1].StartTime))
	require.True(t, page.Content[1].StartTime.Before(page.Content[2].StartTime))

	byUser, err := f.reservations.ListByUser(ctx, user.ID, domain.NewPageRequest(0, 2, "asc"))
	require.NoError(t, err)
	require.Len(t, byUser.Content, 2)
	require.Equal(t, int64(3), byUser.TotalElements)
}
