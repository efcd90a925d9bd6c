package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	Search(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Flight, error)
	BookedSeats(ctx context.Context, flightID string) (int, error)
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int, error)
	Create(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.FlightStats, error)
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `f.id, f.airline_id, COALESCE(a.name, ''), f.origin, f.destination, f.departure_time, f.arrival_time,
	COALESCE(f.duration, ''), f.total_seats, f.price_cents, f.status, f.created_at, f.updated_at`

const flightFrom = ` FROM flights f LEFT JOIN airlines a ON a.id = f.airline_id`

// bookedSeatsSQL counts tickets of active bookings on flight f.
var bookedSeatsSQL = `(SELECT COUNT(*) FROM tickets t JOIN bookings b ON b.id = t.booking_id
	WHERE b.flight_id = f.id AND b.status IN ` + activeStatuses + `)`

func scanFlight(row rowScanner, f *domain.Flight, extra ...any) error {
	dest := []any{&f.ID, &f.AirlineID, &f.AirlineName, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.Duration, &f.TotalSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *PGFlightRepository) queryFlights(ctx context.Context, query string, args ...any) ([]domain.Flight, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var (
			f      domain.Flight
			booked int
		)
		if err := scanFlight(rows, &f, &booked); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		f.SetBooked(booked)
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) Search(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error) {
	w := &whereClause{}
	w.add("f.status = $%d", string(domain.FlightStatusActive))
	w.add("f.origin = $%d", q.Origin)
	w.add("f.destination = $%d", q.Destination)
	if q.Date != nil {
		day := q.Date.Truncate(24 * time.Hour)
		w.add("f.departure_time >= $%d", day)
		w.add("f.departure_time < $%d", day.Add(24*time.Hour))
	}

	query := `SELECT ` + flightColumns + `, ` + bookedSeatsSQL + flightFrom + w.String() + ` ORDER BY f.departure_time`
	flights, err := r.queryFlights(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	return flights, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+`, `+bookedSeatsSQL+flightFrom+` WHERE f.id = $1`, id)

	var (
		f      domain.Flight
		booked int
	)
	if err := scanFlight(row, &f, &booked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "flight", Err: err}
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	f.SetBooked(booked)
	return &f, nil
}

// GetForUpdate locks the flight row until the surrounding transaction ends, which
// serialises concurrent bookings on the same flight.
func (r *PGFlightRepository) GetForUpdate(ctx context.Context, id string) (*domain.Flight, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+flightFrom+` WHERE f.id = $1 FOR UPDATE OF f`, id)

	var f domain.Flight
	if err := scanFlight(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "flight", Err: err}
		}
		return nil, fmt.Errorf("lock flight: %w", err)
	}
	return &f, nil
}

func (r *PGFlightRepository) BookedSeats(ctx context.Context, flightID string) (int, error) {
	var booked int
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM tickets t JOIN bookings b ON b.id = t.booking_id
		WHERE b.flight_id = $1 AND b.status IN `+activeStatuses, flightID).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("count booked seats: %w", err)
	}
	return booked, nil
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int, error) {
	w := &whereClause{}
	if filter.Status != "" {
		w.add("f.status = $%d", string(filter.Status))
	}
	if filter.AirlineID != "" {
		w.add("f.airline_id = $%d", filter.AirlineID)
	}

	var total int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM flights f`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count flights: %w", err)
	}

	limit, args := w.paginate(filter.Page)
	query := `SELECT ` + flightColumns + `, ` + bookedSeatsSQL + flightFrom + w.String() + ` ORDER BY f.created_at DESC` + limit
	flights, err := r.queryFlights(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list flights: %w", err)
	}
	return flights, total, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO flights
		(id, airline_id, origin, destination, departure_time, arrival_time, duration, total_seats, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		f.ID, f.AirlineID, f.Origin, f.Destination, f.DepartureTime, f.ArrivalTime, f.Duration, f.TotalSeats, f.PriceCents, string(f.Status)).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.ConflictError{Resource: "flight", Msg: "flight id already exists", Err: err}
		case pgForeignKeyViolation:
			return domain.NotFoundError{Resource: "airline", Err: err}
		}
		return fmt.Errorf("insert flight: %w", err)
	}
	f.SetBooked(0)
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight) error {
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE flights SET
		airline_id = $2, origin = $3, destination = $4, departure_time = $5, arrival_time = $6,
		duration = $7, total_seats = $8, price_cents = $9, status = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.AirlineID, f.Origin, f.Destination, f.DepartureTime, f.ArrivalTime, f.Duration, f.TotalSeats, f.PriceCents, string(f.Status)).
		Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundError{Resource: "flight", Err: err}
		}
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.NotFoundError{Resource: "airline", Err: err}
		}
		return fmt.Errorf("update flight: %w", err)
	}
	return nil
}

var inactiveStatuses = statusList([]domain.BookingStatus{domain.BookingStatusCancelled, domain.BookingStatusCancellationRequested})

// Delete removes the flight with its inactive bookings, their tickets and passengers,
// and the ratings and grievances filed against it. Bookings still holding seats make
// the final delete fail with a conflict. Run it inside a transaction.
func (r *PGFlightRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)

	rows, err := db.Query(ctx, `DELETE FROM tickets t USING bookings b
		WHERE b.id = t.booking_id AND b.flight_id = $1 AND b.status IN `+inactiveStatuses+`
		RETURNING t.passenger_id`, id)
	if err != nil {
		return fmt.Errorf("delete flight tickets: %w", err)
	}
	passengerIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("delete flight tickets: %w", err)
	}

	if len(passengerIDs) > 0 {
		if _, err := db.Exec(ctx, `DELETE FROM passengers WHERE id = ANY($1)`, passengerIDs); err != nil {
			return fmt.Errorf("delete flight passengers: %w", err)
		}
	}
	if _, err := db.Exec(ctx, `DELETE FROM bookings WHERE flight_id = $1 AND status IN `+inactiveStatuses, id); err != nil {
		return fmt.Errorf("delete flight bookings: %w", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM ratings WHERE flight_id = $1`, id); err != nil {
		return fmt.Errorf("delete flight ratings: %w", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM grievances WHERE flight_id = $1`, id); err != nil {
		return fmt.Errorf("delete flight grievances: %w", err)
	}

	tag, err := db.Exec(ctx, `DELETE FROM flights WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.ConflictError{Resource: "flight", Msg: "flight has active bookings", Err: err}
		}
		return fmt.Errorf("delete flight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "flight"}
	}
	return nil
}

func (r *PGFlightRepository) Stats(ctx context.Context) (*domain.FlightStats, error) {
	db := conn(ctx, r.db)

	stats := &domain.FlightStats{ByAirline: make([]domain.AirlineFlights, 0)}
	err := db.QueryRow(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'ACTIVE'),
		COUNT(*) FILTER (WHERE status = 'INACTIVE')
		FROM flights`).Scan(&stats.Total, &stats.Active, &stats.Inactive)
	if err != nil {
		return nil, fmt.Errorf("count flights: %w", err)
	}

	rows, err := db.Query(ctx, `SELECT f.airline_id, COALESCE(a.name, ''), COUNT(*)`+flightFrom+`
		GROUP BY f.airline_id, a.name ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("flights by airline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.AirlineFlights
		if err := rows.Scan(&a.AirlineID, &a.AirlineName, &a.Count); err != nil {
			return nil, fmt.Errorf("scan airline flights: %w", err)
		}
		stats.ByAirline = append(stats.ByAirline, a)
	}
	return stats, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
