package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/parking/repository"
)

func TestStoreInTxRollsBackOnError(t *testing.T) {
	store := repository.NewStore()
	ctx := context.Background()

	area, err := store.Areas().Save(ctx, domain.ParkingArea{Name: "Central"})
	require.NoError(t, err)
	spot, err := store.Spots().Save(ctx, domain.ParkingSpot{SpotNumber: "A1", ParkingAreaID: area.ID})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.InTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Spots().DeleteByID(ctx, spot.ID))
		require.NoError(t, store.Areas().DeleteByID(ctx, area.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// everything deleted inside the failed scope is back
	_, err = store.Areas().FindByID(ctx, area.ID)
	require.NoError(t, err)
	_, err = store.Spots().FindByID(ctx, spot.ID)
	require.NoError(t, err)
}

func TestStoreInTxCommits(t *testing.T) {
	store := repository.NewStore()
	ctx := context.Background()

	area, err := store.Areas().Save(ctx, domain.ParkingArea{Name: "Central"})
	require.NoError(t, err)

	err = store.InTx(ctx, func(ctx context.Context) error {
		return store.Areas().DeleteByID(ctx, area.ID)
	})
	require.NoError(t, err)

	_, err = store.Areas().FindByID(ctx, area.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationExistsByTupleMatchesExactWindowOnly(t *testing.T) {
	store := repository.NewStore()
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	_, err := store.Reservations().Save(ctx, domain.Reservation{
		UserID:        1,
		ParkingSpotID: 2,
		StartTime:     start,
		EndTime:       end,
	})
	require.NoError(t, err)

	found, err := store.Reservations().ExistsByTuple(ctx, 1, 2, start, end)
	require.NoError(t, err)
	require.True(t, found)

	found, err = store.Reservations().ExistsByTuple(ctx, 1, 2, start, end.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, found)
}

func TestSpotListSortsDescending(t *testing.T) {
	store := repository.NewStore()
	ctx := context.Background()
	for _, n := range []string{"B2", "A1", "C3"} {
		_, err := store.Spots().Save(ctx, domain.ParkingSpot{SpotNumber: n, ParkingAreaID: 1})
		require.NoError(t, err)
	}

	page, err := store.Spots().List(ctx, domain.NewPageRequest(0, 10, "desc"))
	require.NoError(t, err)
	require.Equal(t, "C3", page.Content[0].SpotNumber)
	require.Equal(t, "A1", page.Content[2].SpotNumber)
}
