package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/parklite/internal/parking/domain"
)

type sqlTxKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore backs the repositories with PostgreSQL via database/sql. A
// transaction started by InTx travels through the context so repository
// calls inside the scope join it.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// Areas returns the area repository view.
func (s *SQLStore) Areas() *SQLAreaRepo { return &SQLAreaRepo{s: s} }

// Spots returns the spot repository view.
func (s *SQLStore) Spots() *SQLSpotRepo { return &SQLSpotRepo{s: s} }

// Users returns the user repository view.
func (s *SQLStore) Users() *SQLUserRepo { return &SQLUserRepo{s: s} }

// Reservations returns the reservation repository view.
func (s *SQLStore) Reservations() *SQLReservationRepo { return &SQLReservationRepo{s: s} }

// InTx runs fn inside a single database transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the tables the service needs if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS parking_areas (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		hourly_rate NUMERIC(10,2) NOT NULL DEFAULT 0,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS parking_spots (
		id BIGSERIAL PRIMARY KEY,
		spot_number TEXT NOT NULL,
		parking_area_id BIGINT NOT NULL REFERENCES parking_areas(id),
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (parking_area_id, spot_number)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'USER'
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		parking_spot_id BIGINT NOT NULL REFERENCES parking_spots(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		total_cost NUMERIC(10,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		topic TEXT NOT NULL,
		payload BYTEA NOT NULL,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func orderKeyword(direction domain.SortDirection) string {
	if direction == domain.SortDesc {
		return "DESC"
	}
	return "ASC"
}

// SQLAreaRepo implements domain.AreaRepository.
type SQLAreaRepo struct{ s *SQLStore }

func (r *SQLAreaRepo) Save(ctx context.Context, area domain.ParkingArea) (domain.ParkingArea, error) {
	q := r.s.q(ctx)
	if area.ID == 0 {
		err := q.QueryRowContext(ctx,
			`INSERT INTO parking_areas (name, address, city, hourly_rate, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			area.Name, area.Address, area.City, area.HourlyRate.String(), area.Latitude, area.Longitude,
		).Scan(&area.ID)
		if err != nil {
			return domain.ParkingArea{}, fmt.Errorf("insert parking area: %w", err)
		}
		return area, nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE parking_areas SET name = $2, address = $3, city = $4, hourly_rate = $5, latitude = $6, longitude = $7 WHERE id = $1`,
		area.ID, area.Name, area.Address, area.City, area.HourlyRate.String(), area.Latitude, area.Longitude,
	)
	if err != nil {
		return domain.ParkingArea{}, fmt.Errorf("update parking area: %w", err)
	}
	return area, nil
}

func (r *SQLAreaRepo) FindByID(ctx context.Context, id int64) (domain.ParkingArea, error) {
	row := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, address, city, hourly_rate, latitude, longitude FROM parking_areas WHERE id = $1`, id)
	area, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ParkingArea{}, fmt.Errorf("parking area %d: %w", id, domain.ErrNotFound)
	}
	return area, err
}

func (r *SQLAreaRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.s.q(ctx), "parking_areas", "parking area", id)
}

func (r *SQLAreaRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx), `SELECT EXISTS (SELECT 1 FROM parking_areas WHERE id = $1)`, id)
}

func (r *SQLAreaRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx), `SELECT EXISTS (SELECT 1 FROM parking_areas WHERE name = $1)`, name)
}

func (r *SQLAreaRepo) Search(ctx context.Context, search domain.AreaSearch, req domain.PageRequest) (domain.Page[domain.ParkingArea], error) {
	where, args := areaPredicate(search)
	var total int64
	if err := r.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_areas`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.ParkingArea]{}, fmt.Errorf("count parking areas: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, name, address, city, hourly_rate, latitude, longitude
		FROM parking_areas%s ORDER BY address %s LIMIT $%d OFFSET $%d`,
		where, orderKeyword(req.Direction), len(args)+1, len(args)+2)
	args = append(args, req.Size, req.Page*req.Size)

	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.ParkingArea]{}, fmt.Errorf("search parking areas: %w", err)
	}
	defer rows.Close()

	var areas []domain.ParkingArea
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return domain.Page[domain.ParkingArea]{}, err
		}
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.ParkingArea]{}, fmt.Errorf("iterate parking areas: %w", err)
	}
	return domain.PageOf(areas, req, total), nil
}

func areaPredicate(search domain.AreaSearch) (string, []any) {
	if search.Query == "" {
		return "", nil
	}
	pattern := "%" + search.Query + "%"
	switch search.Field {
	case "address":
		return ` WHERE address ILIKE $1`, []any{pattern}
	case "city":
		return ` WHERE city ILIKE $1`, []any{pattern}
	case "name":
		return ` WHERE name ILIKE $1`, []any{pattern}
	case "":
		return ` WHERE address ILIKE $1 OR city ILIKE $1 OR name ILIKE $1`, []any{pattern}
	default:
		return "", nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (domain.ParkingArea, error) {
	var area domain.ParkingArea
	var rate string
	var lat, lng sql.NullFloat64
	if err := row.Scan(&area.ID, &area.Name, &area.Address, &area.City, &rate, &lat, &lng); err != nil {
		return domain.ParkingArea{}, err
	}
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return domain.ParkingArea{}, fmt.Errorf("parse hourly rate: %w", err)
	}
	area.HourlyRate = parsed
	if lat.Valid {
		area.Latitude = &lat.Float64
	}
	if lng.Valid {
		area.Longitude = &lng.Float64
	}
	return area, nil
}

// SQLSpotRepo implements domain.SpotRepository.
type SQLSpotRepo struct{ s *SQLStore }

func (r *SQLSpotRepo) Save(ctx context.Context, spot domain.ParkingSpot) (domain.ParkingSpot, error) {
	q := r.s.q(ctx)
	if spot.ID == 0 {
		err := q.QueryRowContext(ctx,
			`INSERT INTO parking_spots (spot_number, parking_area_id, is_available) VALUES ($1, $2, $3) RETURNING id`,
			spot.SpotNumber, spot.ParkingAreaID, spot.IsAvailable,
		).Scan(&spot.ID)
		if err != nil {
			return domain.ParkingSpot{}, fmt.Errorf("insert parking spot: %w", err)
		}
		return spot, nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE parking_spots SET spot_number = $2, parking_area_id = $3, is_available = $4 WHERE id = $1`,
		spot.ID, spot.SpotNumber, spot.ParkingAreaID, spot.IsAvailable,
	)
	if err != nil {
		return domain.ParkingSpot{}, fmt.Errorf("update parking spot: %w", err)
	}
	return spot, nil
}

func (r *SQLSpotRepo) FindByID(ctx context.Context, id int64) (domain.ParkingSpot, error) {
	var spot domain.ParkingSpot
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, spot_number, parking_area_id, is_available FROM parking_spots WHERE id = $1`, id,
	).Scan(&spot.ID, &spot.SpotNumber, &spot.ParkingAreaID, &spot.IsAvailable)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ParkingSpot{}, fmt.Errorf("parking spot %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ParkingSpot{}, fmt.Errorf("find parking spot: %w", err)
	}
	return spot, nil
}

func (r *SQLSpotRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.s.q(ctx), "parking_spots", "parking spot", id)
}

func (r *SQLSpotRepo) ExistsByAreaAndNumber(ctx context.Context, areaID int64, spotNumber string) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx),
		`SELECT EXISTS (SELECT 1 FROM parking_spots WHERE parking_area_id = $1 AND spot_number = $2)`,
		areaID, spotNumber)
}

func (r *SQLSpotRepo) FindByArea(ctx context.Context, areaID int64, availableOnly bool) ([]domain.ParkingSpot, error) {
	query := `SELECT id, spot_number, parking_area_id, is_available FROM parking_spots WHERE parking_area_id = $1`
	if availableOnly {
		query += ` AND is_available`
	}
	query += ` ORDER BY spot_number`
	rows, err := r.s.q(ctx).QueryContext(ctx, query, areaID)
	if err != nil {
		return nil, fmt.Errorf("find spots by area: %w", err)
	}
	defer rows.Close()
	var spots []domain.ParkingSpot
	for rows.Next() {
		var spot domain.ParkingSpot
		if err := rows.Scan(&spot.ID, &spot.SpotNumber, &spot.ParkingAreaID, &spot.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan parking spot: %w", err)
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

func (r *SQLSpotRepo) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ParkingSpot], error) {
	var total int64
	if err := r.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spots`).Scan(&total); err != nil {
		return domain.Page[domain.ParkingSpot]{}, fmt.Errorf("count parking spots: %w", err)
	}
	query := fmt.Sprintf(`SELECT id, spot_number, parking_area_id, is_available
		FROM parking_spots ORDER BY spot_number %s LIMIT $1 OFFSET $2`, orderKeyword(req.Direction))
	rows, err := r.s.q(ctx).QueryContext(ctx, query, req.Size, req.Page*req.Size)
	if err != nil {
		return domain.Page[domain.ParkingSpot]{}, fmt.Errorf("list parking spots: %w", err)
	}
	defer rows.Close()
	var spots []domain.ParkingSpot
	for rows.Next() {
		var spot domain.ParkingSpot
		if err := rows.Scan(&spot.ID, &spot.SpotNumber, &spot.ParkingAreaID, &spot.IsAvailable); err != nil {
			return domain.Page[domain.ParkingSpot]{}, fmt.Errorf("scan parking spot: %w", err)
		}
		spots = append(spots, spot)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.ParkingSpot]{}, fmt.Errorf("iterate parking spots: %w", err)
	}
	return domain.PageOf(spots, req, total), nil
}

// SQLUserRepo implements domain.UserRepository.
type SQLUserRepo struct{ s *SQLStore }

func (r *SQLUserRepo) Save(ctx context.Context, user domain.User) (domain.User, error) {
	q := r.s.q(ctx)
	if user.ID == 0 {
		err := q.QueryRowContext(ctx,
			`INSERT INTO users (username, email, first_name, last_name, role) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			user.Username, user.Email, user.FirstName, user.LastName, string(user.Role),
		).Scan(&user.ID)
		if err != nil {
			return domain.User{}, fmt.Errorf("insert user: %w", err)
		}
		return user, nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE users SET username = $2, email = $3, first_name = $4, last_name = $5, role = $6 WHERE id = $1`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName, string(user.Role),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *SQLUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	var role string
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, username, email, first_name, last_name, role FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	user.Role = domain.Role(role)
	return user, nil
}

func (r *SQLUserRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.s.q(ctx), "users", "user", id)
}

func (r *SQLUserRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx), `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}

func (r *SQLUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx), `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *SQLUserRepo) Search(ctx context.Context, search domain.UserSearch, req domain.PageRequest) (domain.Page[domain.User], error) {
	where, args := userPredicate(search)
	var total int64
	if err := r.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("count users: %w", err)
	}
	query := fmt.Sprintf(`SELECT id, username, email, first_name, last_name, role
		FROM users%s ORDER BY username %s LIMIT $%d OFFSET $%d`,
		where, orderKeyword(req.Direction), len(args)+1, len(args)+2)
	args = append(args, req.Size, req.Page*req.Size)

	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var user domain.User
		var role string
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &role); err != nil {
			return domain.Page[domain.User]{}, fmt.Errorf("scan user: %w", err)
		}
		user.Role = domain.Role(role)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("iterate users: %w", err)
	}
	return domain.PageOf(users, req, total), nil
}

func userPredicate(search domain.UserSearch) (string, []any) {
	if search.Query == "" {
		return "", nil
	}
	pattern := "%" + search.Query + "%"
	switch search.Field {
	case "username":
		return ` WHERE username ILIKE $1`, []any{pattern}
	case "email":
		return ` WHERE email ILIKE $1`, []any{pattern}
	case "firstName":
		return ` WHERE first_name ILIKE $1`, []any{pattern}
	case "lastName":
		return ` WHERE last_name ILIKE $1`, []any{pattern}
	case "fullName":
		return ` WHERE first_name || ' ' || last_name ILIKE $1`, []any{pattern}
	default:
		return "", nil
	}
}

// SQLReservationRepo implements domain.ReservationRepository.
type SQLReservationRepo struct{ s *SQLStore }

func (r *SQLReservationRepo) Save(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	q := r.s.q(ctx)
	if res.ID == 0 {
		err := q.QueryRowContext(ctx,
			`INSERT INTO reservations (parking_spot_id, user_id, start_time, end_time, total_cost, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			res.ParkingSpotID, res.UserID, res.StartTime, res.EndTime, res.TotalCost.String(), res.CreatedAt,
		).Scan(&res.ID)
		if err != nil {
			return domain.Reservation{}, fmt.Errorf("insert reservation: %w", err)
		}
		return res, nil
	}
	_, err := q.ExecContext(ctx,
		`UPDATE reservations SET parking_spot_id = $2, user_id = $3, start_time = $4, end_time = $5, total_cost = $6 WHERE id = $1`,
		res.ID, res.ParkingSpotID, res.UserID, res.StartTime, res.EndTime, res.TotalCost.String(),
	)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	return res, nil
}

func (r *SQLReservationRepo) FindByID(ctx context.Context, id int64) (domain.Reservation, error) {
	row := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, parking_spot_id, user_id, start_time, end_time, total_cost, created_at FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return res, err
}

func (r *SQLReservationRepo) DeleteByID(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.s.q(ctx), "reservations", "reservation", id)
}

func (r *SQLReservationRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx), `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id)
}

func (r *SQLReservationRepo) ExistsByTuple(ctx context.Context, userID, spotID int64, start, end time.Time) (bool, error) {
	return existsQuery(ctx, r.s.q(ctx),
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE user_id = $1 AND parking_spot_id = $2 AND start_time = $3 AND end_time = $4)`,
		userID, spotID, start, end)
}

func (r *SQLReservationRepo) FindBySpot(ctx context.Context, spotID int64) (domain.Reservation, error) {
	row := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, parking_spot_id, user_id, start_time, end_time, total_cost, created_at
		 FROM reservations WHERE parking_spot_id = $1 ORDER BY id LIMIT 1`, spotID)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("reservation for spot %d: %w", spotID, domain.ErrNotFound)
	}
	return res, err
}

func (r *SQLReservationRepo) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return r.list(ctx, req, "", nil)
}

func (r *SQLReservationRepo) ListByUser(ctx context.Context, userID int64, req domain.PageRequest) (domain.Page[domain.Reservation], error) {
	return r.list(ctx, req, ` WHERE user_id = $1`, []any{userID})
}

func (r *SQLReservationRepo) list(ctx context.Context, req domain.PageRequest, where string, args []any) (domain.Page[domain.Reservation], error) {
	var total int64
	if err := r.s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Reservation]{}, fmt.Errorf("count reservations: %w", err)
	}
	order := orderKeyword(req.Direction)
	query := fmt.Sprintf(`SELECT id, parking_spot_id, user_id, start_time, end_time, total_cost, created_at
		FROM reservations%s ORDER BY start_time %s, end_time %s LIMIT $%d OFFSET $%d`,
		where, order, order, len(args)+1, len(args)+2)
	args = append(args, req.Size, req.Page*req.Size)

	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page[domain.Reservation]{}, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return domain.Page[domain.Reservation]{}, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Reservation]{}, fmt.Errorf("iterate reservations: %w", err)
	}
	return domain.PageOf(reservations, req, total), nil
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var cost string
	if err := row.Scan(&res.ID, &res.ParkingSpotID, &res.UserID, &res.StartTime, &res.EndTime, &cost, &res.CreatedAt); err != nil {
		return domain.Reservation{}, err
	}
	parsed, err := decimal.NewFromString(cost)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("parse total cost: %w", err)
	}
	res.TotalCost = parsed
	return res, nil
}

func deleteByID(ctx context.Context, q querier, table, label string, id int64) error {
	result, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", label, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", label, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", label, id, domain.ErrNotFound)
	}
	return nil
}

func existsQuery(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return exists, nil
}
