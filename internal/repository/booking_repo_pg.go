package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	CreatePassenger(ctx context.Context, passenger *domain.Passenger) error
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	SeatNumbers(ctx context.Context, bookingID string) ([]int, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Booking, error)
	Tickets(ctx context.Context, bookingID string) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, remark *string) error
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error)
	HasBooking(ctx context.Context, userID, flightID string, statuses []domain.BookingStatus) (bool, error)
	CompleteDeparted(ctx context.Context, before time.Time) ([]domain.Booking, error)
	FlightHistory(ctx context.Context, userID string) ([]domain.FlightHistoryEntry, error)
	Stats(ctx context.Context) (*domain.BookingStats, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.flight_id, b.booked_at, b.departure_date, b.status, COALESCE(b.remark, ''), b.created_at, b.updated_at`

const bookingFlightColumns = `f.id, f.airline_id, COALESCE(a.name, ''), f.origin, f.destination, f.departure_time, f.arrival_time,
	COALESCE(f.duration, ''), f.total_seats, f.price_cents, f.status, f.created_at, f.updated_at`

const bookingFrom = ` FROM bookings b
	JOIN flights f ON f.id = b.flight_id
	LEFT JOIN airlines a ON a.id = f.airline_id`

func scanBooking(row rowScanner, b *domain.Booking, extra ...any) error {
	dest := []any{&b.ID, &b.UserID, &b.FlightID, &b.BookedAt, &b.DepartureDate, &b.Status, &b.Remark, &b.CreatedAt, &b.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func scanBookingWithFlight(row rowScanner) (*domain.Booking, error) {
	var (
		b domain.Booking
		f domain.Flight
	)
	err := scanBooking(row, &b, &f.ID, &f.AirlineID, &f.AirlineName, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.Duration, &f.TotalSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Flight = &f
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (id, user_id, flight_id, booked_at, departure_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		b.ID, b.UserID, b.FlightID, b.BookedAt, b.DepartureDate, string(b.Status)).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "booking", Msg: "duplicate booking id", Err: err}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) CreatePassenger(ctx context.Context, p *domain.Passenger) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO passengers (id, user_id, name, age, gender, relation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.UserID, p.Name, p.Age, p.Gender, p.Relation).
		Scan(&p.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "passenger", Msg: "duplicate passenger id", Err: err}
		}
		return fmt.Errorf("insert passenger: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO tickets (id, booking_id, passenger_id, seat_number, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.BookingID, t.PassengerID, t.SeatNumber, string(t.Status)).
		Scan(&t.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "ticket", Msg: "seat or ticket id already taken", Err: err}
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) SeatNumbers(ctx context.Context, bookingID string) ([]int, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT seat_number FROM tickets WHERE booking_id = $1`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list seat numbers: %w", err)
	}
	defer rows.Close()

	seats := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan seat number: %w", err)
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}

// GetByID returns the booking with its flight, tickets and passengers.
func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+`, `+bookingFlightColumns+bookingFrom+` WHERE b.id = $1`, id)
	b, err := scanBookingWithFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if b.Tickets, err = r.Tickets(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) GetForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id)

	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return &b, nil
}

func (r *PGBookingRepository) Tickets(ctx context.Context, bookingID string) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT t.id, t.booking_id, t.passenger_id, t.seat_number, t.status, t.created_at,
		p.id, p.user_id, p.name, p.age, COALESCE(p.gender, ''), COALESCE(p.relation, ''), p.created_at
		FROM tickets t
		JOIN passengers p ON p.id = t.passenger_id
		WHERE t.booking_id = $1
		ORDER BY t.seat_number`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var (
			t domain.Ticket
			p domain.Passenger
		)
		if err := rows.Scan(&t.ID, &t.BookingID, &t.PassengerID, &t.SeatNumber, &t.Status, &t.CreatedAt,
			&p.ID, &p.UserID, &p.Name, &p.Age, &p.Gender, &p.Relation, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.Passenger = &p
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// UpdateStatus sets the booking status and cascades it to every ticket of the booking.
// A nil remark leaves the stored remark untouched.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, remark *string) error {
	db := conn(ctx, r.db)

	tag, err := db.Exec(ctx, `UPDATE bookings SET status = $2, remark = COALESCE($3, remark), updated_at = now() WHERE id = $1`,
		id, string(status), remark)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}

	if _, err := db.Exec(ctx, `UPDATE tickets SET status = $2 WHERE booking_id = $1`, id, string(status)); err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	w := &whereClause{}
	if filter.Status != "" {
		w.add("b.status = $%d", string(filter.Status))
	}
	if filter.FlightID != "" {
		w.add("b.flight_id = $%d", filter.FlightID)
	}
	if filter.UserID != "" {
		w.add("b.user_id = $%d", filter.UserID)
	}

	db := conn(ctx, r.db)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings b`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	limit, args := w.paginate(filter.Page)
	rows, err := db.Query(ctx, `SELECT `+bookingColumns+`, `+bookingFlightColumns+bookingFrom+w.String()+
		` ORDER BY b.booked_at DESC, b.id DESC`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBookingWithFlight(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, total, rows.Err()
}

func (r *PGBookingRepository) HasBooking(ctx context.Context, userID, flightID string, statuses []domain.BookingStatus) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings
		WHERE user_id = $1 AND flight_id = $2 AND status IN `+statusList(statuses)+`)`, userID, flightID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check booking: %w", err)
	}
	return exists, nil
}

var departableStatuses = statusList([]domain.BookingStatus{domain.BookingStatusUpcoming, domain.BookingStatusConfirmed})

// CompleteDeparted marks upcoming and confirmed bookings departing before the given
// date as completed, tickets included. Bookings are updated before their tickets, the
// same lock order used by status changes.
func (r *PGBookingRepository) CompleteDeparted(ctx context.Context, before time.Time) ([]domain.Booking, error) {
	db := conn(ctx, r.db)
	completed := string(domain.BookingStatusCompleted)

	rows, err := db.Query(ctx, `UPDATE bookings b SET status = $1, updated_at = now()
		WHERE b.status IN `+departableStatuses+` AND b.departure_date < $2
		RETURNING `+bookingColumns, completed, before)
	if err != nil {
		return nil, fmt.Errorf("complete bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("complete bookings: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return bookings, nil
	}
	if _, err := db.Exec(ctx, `UPDATE tickets SET status = $1 WHERE booking_id = ANY($2)`, completed, ids); err != nil {
		return nil, fmt.Errorf("complete tickets: %w", err)
	}
	return bookings, nil
}

var historyStatuses = statusList([]domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusCompleted})

// FlightHistory lists the user's confirmed and completed bookings, latest departure
// first, each with the rating the user left for the flight.
func (r *PGBookingRepository) FlightHistory(ctx context.Context, userID string) ([]domain.FlightHistoryEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+bookingColumns+`, `+bookingFlightColumns+`,
		COALESCE(rt.id, 0), COALESCE(rt.value, 0), COALESCE(rt.comment, ''),
		COALESCE(rt.created_at, b.created_at), COALESCE(rt.updated_at, b.updated_at)`+bookingFrom+`
		LEFT JOIN ratings rt ON rt.flight_id = b.flight_id AND rt.user_id = b.user_id
		WHERE b.user_id = $1 AND b.status IN `+historyStatuses+`
		ORDER BY b.departure_date DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("flight history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.FlightHistoryEntry, 0)
	for rows.Next() {
		var (
			b  domain.Booking
			f  domain.Flight
			rt domain.Rating
		)
		err := scanBooking(rows, &b, &f.ID, &f.AirlineID, &f.AirlineName, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
			&f.Duration, &f.TotalSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt,
			&rt.ID, &rt.Value, &rt.Comment, &rt.CreatedAt, &rt.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan flight history: %w", err)
		}
		b.Flight = &f
		entry := domain.FlightHistoryEntry{Booking: b}
		if rt.ID != 0 {
			rt.UserID, rt.FlightID = b.UserID, b.FlightID
			entry.Rating = &rt
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

var revenueStatuses = statusList([]domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusCompleted})

func (r *PGBookingRepository) Stats(ctx context.Context) (*domain.BookingStats, error) {
	db := conn(ctx, r.db)
	stats := &domain.BookingStats{ByStatus: make(map[string]int), RevenueByFlight: make([]domain.FlightRevenue, 0)}

	rows, err := db.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	revenue, err := db.Query(ctx, `SELECT b.flight_id, COUNT(DISTINCT b.id), COALESCE(SUM(f.price_cents), 0)
		FROM bookings b
		JOIN tickets t ON t.booking_id = b.id
		JOIN flights f ON f.id = b.flight_id
		WHERE b.status IN `+revenueStatuses+`
		GROUP BY b.flight_id
		ORDER BY 3 DESC`)
	if err != nil {
		return nil, fmt.Errorf("revenue by flight: %w", err)
	}
	defer revenue.Close()
	for revenue.Next() {
		var fr domain.FlightRevenue
		if err := revenue.Scan(&fr.FlightID, &fr.BookingCount, &fr.RevenueCents); err != nil {
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		stats.RevenueByFlight = append(stats.RevenueByFlight, fr)
	}
	return stats, revenue.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
