package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/example/parklite/internal/parking/domain"
	"github.com/example/parklite/internal/parking/service"
)

// AuthFunc wraps a handler with role enforcement. A nil AuthFunc disables
// authentication, which is what tests and local demos want.
type AuthFunc func(roles ...domain.Role) func(http.Handler) http.Handler

// HTTP exposes the manager operations over chi routes.
type HTTP struct {
	areas        *service.AreaService
	spots        *service.SpotService
	users        *service.UserService
	reservations *service.ReservationService
	auth         AuthFunc
}

// NewHTTP constructs a handler.
func NewHTTP(areas *service.AreaService, spots *service.SpotService, users *service.UserService, reservations *service.ReservationService, auth AuthFunc) *HTTP {
	return &HTTP{areas: areas, spots: spots, users: users, reservations: reservations, auth: auth}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Route("/v1/areas", func(r chi.Router) {
		r.Get("/", h.listAreas)
		r.Get("/{id}", h.getArea)
		r.Get("/{id}/spots", h.listAreaSpots)
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin))
			r.Post("/", h.createArea)
			r.Put("/{id}", h.updateArea)
			r.Delete("/{id}", h.deleteArea)
		})
	})

	r.Route("/v1/spots", func(r chi.Router) {
		r.Get("/", h.listSpots)
		r.Get("/{id}", h.getSpot)
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin))
			r.Post("/", h.createSpot)
			r.Put("/{id}", h.updateSpot)
			r.Delete("/{id}", h.deleteSpot)
		})
	})

	r.Route("/v1/users", func(r chi.Router) {
		r.Post("/", h.createUser)
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin))
			r.Get("/", h.listUsers)
			r.Delete("/{id}", h.deleteUser)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin, domain.RoleUser))
			r.Get("/{id}", h.getUser)
			r.Put("/{id}", h.updateUser)
		})
	})

	r.Route("/v1/reservations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin))
			r.Get("/", h.listReservations)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.protect(domain.RoleAdmin, domain.RoleUser))
			r.Get("/{id}", h.getReservation)
			r.Get("/user/{id}", h.listUserReservations)
			r.Get("/spot/{id}", h.getReservationBySpot)
			r.Post("/", h.createReservation)
			r.Put("/{id}", h.updateReservation)
			r.Delete("/{id}", h.deleteReservation)
		})
	})

	return r
}

func (h *HTTP) protect(roles ...domain.Role) func(http.Handler) http.Handler {
	if h.auth == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.auth(roles...)
}

type areaPayload struct {
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
}

func (p areaPayload) toModel() domain.ParkingArea {
	return domain.ParkingArea{
		Name:       p.Name,
		Address:    p.Address,
		City:       p.City,
		HourlyRate: p.HourlyRate,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
	}
}

func (h *HTTP) listAreas(w http.ResponseWriter, r *http.Request) {
	page, err := h.areas.List(r.Context(), domain.AreaSearch{
		Query: r.URL.Query().Get("searchQuery"),
		Field: r.URL.Query().Get("searchField"),
	}, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTP) getArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	area, err := h.areas.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *HTTP) listAreaSpots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		spots []domain.ParkingSpot
		err   error
	)
	if r.URL.Query().Get("available") == "true" {
		spots, err = h.spots.ListAvailableByArea(r.Context(), id)
	} else {
		spots, err = h.spots.ListAllByArea(r.Context(), id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if spots == nil {
		spots = []domain.ParkingSpot{}
	}
	writeJSON(w, http.StatusOK, spots)
}

func (h *HTTP) createArea(w http.ResponseWriter, r *http.Request) {
	var payload areaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	area, err := h.areas.Create(r.Context(), payload.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (h *HTTP) updateArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload areaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	area, err := h.areas.Update(r.Context(), id, payload.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *HTTP) deleteArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.areas.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "parking area not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type spotPayload struct {
	SpotNumber    string `json:"spot_number"`
	ParkingAreaID int64  `json:"parking_area_id"`
	IsAvailable   bool   `json:"is_available"`
}

func (h *HTTP) listSpots(w http.ResponseWriter, r *http.Request) {
	page, err := h.spots.List(r.Context(), pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTP) getSpot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	spot, err := h.spots.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

func (h *HTTP) createSpot(w http.ResponseWriter, r *http.Request) {
	var payload spotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	spot, err := h.spots.Create(r.Context(), domain.ParkingSpot{
		SpotNumber:    payload.SpotNumber,
		ParkingAreaID: payload.ParkingAreaID,
		IsAvailable:   payload.IsAvailable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spot)
}

func (h *HTTP) updateSpot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload spotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	spot, err := h.spots.Update(r.Context(), id, domain.ParkingSpot{
		SpotNumber:    payload.SpotNumber,
		ParkingAreaID: payload.ParkingAreaID,
		IsAvailable:   payload.IsAvailable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

func (h *HTTP) deleteSpot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.spots.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "parking spot not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userPayload struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      domain.Role `json:"role,omitempty"`
}

func (h *HTTP) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), domain.UserSearch{
		Query: r.URL.Query().Get("searchQuery"),
		Field: r.URL.Query().Get("searchField"),
	}, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTP) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTP) createUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.users.Create(r.Context(), domain.User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Role:      payload.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *HTTP) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload userPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.users.Update(r.Context(), id, domain.User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Role:      payload.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTP) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reservationPayload struct {
	UserID        int64            `json:"user_id"`
	ParkingSpotID int64            `json:"parking_spot_id"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	TotalCost     *decimal.Decimal `json:"total_cost,omitempty"`
}

func (p reservationPayload) toRequest() service.CreateReservationRequest {
	return service.CreateReservationRequest{
		UserID:        p.UserID,
		ParkingSpotID: p.ParkingSpotID,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		TotalCost:     p.TotalCost,
	}
}

func (h *HTTP) listReservations(w http.ResponseWriter, r *http.Request) {
	page, err := h.reservations.ListAll(r.Context(), pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTP) listUserReservations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	page, err := h.reservations.ListByUser(r.Context(), id, pageRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HTTP) getReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.reservations.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTP) getReservationBySpot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.reservations.GetByParkingSpot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTP) createReservation(w http.ResponseWriter, r *http.Request) {
	var payload reservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.reservations.Create(r.Context(), payload.toRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *HTTP) updateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload reservationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.reservations.Update(r.Context(), id, payload.toRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTP) deleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.reservations.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pageRequest(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	return domain.NewPageRequest(page, size, q.Get("sortDirection"))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
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
