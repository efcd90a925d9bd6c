package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type AirlineRepository interface {
	Create(ctx context.Context, airline *domain.Airline) error
	GetByID(ctx context.Context, id string) (*domain.Airline, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Airline, error)
	List(ctx context.Context, filter domain.AirlineFilter) ([]domain.Airline, int, error)
	Update(ctx context.Context, airline *domain.Airline) error
	FlightCount(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type PGAirlineRepository struct {
	db DB
}

func NewAirlineRepository(db DB) AirlineRepository {
	return &PGAirlineRepository{db: db}
}

const airlineColumns = `id, name, email, COALESCE(phone, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(address, ''),
	fleet_size, established_on, status, created_at, updated_at`

func scanAirline(row rowScanner, a *domain.Airline) error {
	return row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.City, &a.State, &a.Address,
		&a.FleetSize, &a.EstablishedOn, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PGAirlineRepository) Create(ctx context.Context, a *domain.Airline) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO airlines
		(id, name, email, phone, city, state, address, fleet_size, established_on, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Email, a.Phone, a.City, a.State, a.Address, a.FleetSize, a.EstablishedOn, string(a.Status)).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "airline", Msg: "airline id or email already exists", Err: err}
		}
		return fmt.Errorf("insert airline: %w", err)
	}
	return nil
}

func (r *PGAirlineRepository) GetByID(ctx context.Context, id string) (*domain.Airline, error) {
	return r.get(ctx, `SELECT `+airlineColumns+` FROM airlines WHERE id = $1`, id)
}

func (r *PGAirlineRepository) GetForUpdate(ctx context.Context, id string) (*domain.Airline, error) {
	return r.get(ctx, `SELECT `+airlineColumns+` FROM airlines WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGAirlineRepository) get(ctx context.Context, query, id string) (*domain.Airline, error) {
	var a domain.Airline
	if err := scanAirline(conn(ctx, r.db).QueryRow(ctx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "airline", Err: err}
		}
		return nil, fmt.Errorf("get airline: %w", err)
	}
	return &a, nil
}

func (r *PGAirlineRepository) List(ctx context.Context, filter domain.AirlineFilter) ([]domain.Airline, int, error) {
	w := &whereClause{}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}

	db := conn(ctx, r.db)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM airlines`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count airlines: %w", err)
	}

	limit, args := w.paginate(filter.Page)
	rows, err := db.Query(ctx, `SELECT `+airlineColumns+` FROM airlines`+w.String()+` ORDER BY created_at DESC, id`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list airlines: %w", err)
	}
	defer rows.Close()

	airlines := make([]domain.Airline, 0)
	for rows.Next() {
		var a domain.Airline
		if err := scanAirline(rows, &a); err != nil {
			return nil, 0, fmt.Errorf("scan airline: %w", err)
		}
		airlines = append(airlines, a)
	}
	return airlines, total, rows.Err()
}

func (r *PGAirlineRepository) Update(ctx context.Context, a *domain.Airline) error {
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE airlines SET
		name = $2, email = $3, phone = $4, city = $5, state = $6, address = $7,
		fleet_size = $8, established_on = $9, status = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Name, a.Email, a.Phone, a.City, a.State, a.Address, a.FleetSize, a.EstablishedOn, string(a.Status)).
		Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundError{Resource: "airline", Err: err}
		}
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "airline", Msg: "email already in use", Err: err}
		}
		return fmt.Errorf("update airline: %w", err)
	}
	return nil
}

func (r *PGAirlineRepository) FlightCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM flights WHERE airline_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count airline flights: %w", err)
	}
	return n, nil
}

func (r *PGAirlineRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM airlines WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.ConflictError{Resource: "airline", Msg: "airline has flights", Err: err}
		}
		return fmt.Errorf("delete airline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "airline"}
	}
	return nil
}

var _ AirlineRepository = (*PGAirlineRepository)(nil)
