package carly_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/rental/carly"
)

func TestFetchCarsRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 4 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"id": "car-1"}},
		})
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL, MaxAttempts: 5}, nil)
	cars, err := client.FetchCars(context.Background())
	require.NoError(t, err)
	require.Len(t, cars, 1)
	require.Equal(t, "car-1", cars[0].ID)
	require.Equal(t, int32(4), calls.Load())
}

func TestFetchCarsExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL, MaxAttempts: 5}, nil)
	_, err := client.FetchCars(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, int32(5), calls.Load())
}

func TestFetchCarsRequestsUnboundedPage(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []map[string]any{}})
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL}, nil)
	_, err := client.FetchCars(context.Background())
	require.NoError(t, err)
	require.Contains(t, query, "page=1")
	require.Contains(t, query, "size=2147483647")
}

func TestEnsureCustomerToleratesConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, client.EnsureCustomer(context.Background(), "a@b.com"))
}

func TestEnsureCustomerSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL}, nil)
	err := client.EnsureCustomer(context.Background(), "a@b.com")
	require.ErrorIs(t, err, domain.ErrUpstream)
}

func TestCreateRentalSendsIdentityHeaderWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	var authHeader string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	client := carly.New(carly.Config{BaseURL: srv.URL}, nil)
	err := client.CreateRental(context.Background(), "a@b.com", "car-1", start, start.Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "Bearer a@b.com", authHeader)
	require.Equal(t, "car-1", body["carId"])
	require.Equal(t, "2025-06-01T10:00:00Z", body["startAt"])
}

func TestCreateRentalConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := carly.New(carly.Config{BaseURL: srv.URL}, nil)
	err := client.CreateRental(context.Background(), "a@b.com", "car-1", time.Now(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}
