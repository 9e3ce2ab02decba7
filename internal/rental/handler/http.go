package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/rental/service"
)

// HTTP exposes the partner car search and reservation endpoints.
type HTTP struct {
	svc *service.Service
}

// NewHTTP constructs a handler.
func NewHTTP(svc *service.Service) *HTTP {
	return &HTTP{svc: svc}
}

// Router builds the chi router for the rental endpoints.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/search", h.searchCars)
	r.Post("/reservations", h.createReservation)

	return r
}

func (h *HTTP) searchCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		http.Error(w, "invalid lat", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("long"), 64)
	if err != nil {
		http.Error(w, "invalid long", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}

	result, err := h.svc.SearchByProximity(r.Context(), lat, lon, domain.NewPageRequest(page, size, q.Get("sortDirection")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reservationPayload struct {
	UserEmail string    `json:"user_email"`
	CarID     string    `json:"car_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (h *HTTP) createReservation(w http.ResponseWriter, r *http.Request) {
	var payload reservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := h.svc.CreateCarReservation(r.Context(), service.CarReservationRequest{
		UserEmail: payload.UserEmail,
		CarID:     payload.CarID,
		StartTime: payload.StartTime,
		EndTime:   payload.EndTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUpstream):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
