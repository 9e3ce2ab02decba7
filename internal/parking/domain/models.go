package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role classifies users for authorization decisions.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleGuest Role = "GUEST"
)

// Error taxonomy shared by all managers. Services wrap these with
// descriptive messages; handlers classify with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUpstream      = errors.New("upstream failure")
)

// ParkingArea is a named physical location containing parking spots.
// Name is unique across all areas. Coordinates are optional.
type ParkingArea struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
}

// ParkingSpot is an individually reservable unit within an area.
// The (ParkingAreaID, SpotNumber) pair is unique.
type ParkingSpot struct {
	ID            int64  `json:"id"`
	SpotNumber    string `json:"spot_number"`
	ParkingAreaID int64  `json:"parking_area_id"`
	IsAvailable   bool   `json:"is_available"`
}

// User of the reservation system. Username is unique.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// Reservation is a time-bounded claim by one user on one parking spot.
// CreatedAt is immutable once set. The duplicate guard rejects an exact
// (UserID, ParkingSpotID, StartTime, EndTime) repeat; overlapping windows
// by different requests are deliberately not checked.
type Reservation struct {
	ID            int64           `json:"id"`
	ParkingSpotID int64           `json:"parking_spot_id"`
	UserID        int64           `json:"user_id"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReservationEventType enumerates lifecycle events emitted by the managers.
type ReservationEventType string

const (
	EventReservationCreated ReservationEventType = "ReservationCreated"
	EventReservationUpdated ReservationEventType = "ReservationUpdated"
	EventReservationDeleted ReservationEventType = "ReservationDeleted"
	EventCascadeDeleted     ReservationEventType = "ReservationCascadeDeleted"
)

// ReservationEvent is published on reservation lifecycle transitions.
type ReservationEvent struct {
	ID            uuid.UUID            `json:"id"`
	Type          ReservationEventType `json:"type"`
	ReservationID int64                `json:"reservation_id"`
	Payload       map[string]any       `json:"payload,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// AreaSearch narrows an area listing to a substring match on one field,
// or on all searchable fields when Field is empty.
type AreaSearch struct {
	Query string
	Field string // "address", "city", "name" or ""
}

// UserSearch narrows a user listing the same way.
type UserSearch struct {
	Query string
	Field string // "username", "email", "firstName", "lastName", "fullName" or ""
}

// AreaRepository provides persistence for parking areas.
type AreaRepository interface {
	Save(ctx context.Context, area ParkingArea) (ParkingArea, error)
	FindByID(ctx context.Context, id int64) (ParkingArea, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, search AreaSearch, req PageRequest) (Page[ParkingArea], error)
}

// SpotRepository provides persistence for parking spots.
type SpotRepository interface {
	Save(ctx context.Context, spot ParkingSpot) (ParkingSpot, error)
	FindByID(ctx context.Context, id int64) (ParkingSpot, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByAreaAndNumber(ctx context.Context, areaID int64, spotNumber string) (bool, error)
	FindByArea(ctx context.Context, areaID int64, availableOnly bool) ([]ParkingSpot, error)
	List(ctx context.Context, req PageRequest) (Page[ParkingSpot], error)
}

// UserRepository provides persistence for users.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Search(ctx context.Context, search UserSearch, req PageRequest) (Page[User], error)
}

// ReservationRepository provides persistence for reservations.
type ReservationRepository interface {
	Save(ctx context.Context, r Reservation) (Reservation, error)
	FindByID(ctx context.Context, id int64) (Reservation, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByTuple(ctx context.Context, userID, spotID int64, start, end time.Time) (bool, error)
	FindBySpot(ctx context.Context, spotID int64) (Reservation, error)
	List(ctx context.Context, req PageRequest) (Page[Reservation], error)
	ListByUser(ctx context.Context, userID int64, req PageRequest) (Page[Reservation], error)
}

// TxManager scopes a function to a single transaction boundary. Cascading
// deletes run inside one scope so a mid-cascade failure leaves no orphans.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits reservation lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event ReservationEvent) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current UTC time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
