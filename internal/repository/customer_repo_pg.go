package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CustomerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Customer, error)
	GetForUpdate(ctx context.Context, userID string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	List(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, int, error)
	Stats(ctx context.Context, userID string) (*domain.CustomerStats, error)
}

type PGCustomerRepository struct {
	db DB
}

func NewCustomerRepository(db DB) CustomerRepository {
	return &PGCustomerRepository{db: db}
}

const customerColumns = `user_id, name, email, COALESCE(phone, ''), COALESCE(city, ''), created_at, updated_at`

func scanCustomer(row rowScanner, c *domain.Customer) error {
	return row.Scan(&c.UserID, &c.Name, &c.Email, &c.Phone, &c.City, &c.CreatedAt, &c.UpdatedAt)
}

func (r *PGCustomerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Customer, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = $1`, userID)
}

func (r *PGCustomerRepository) GetForUpdate(ctx context.Context, userID string) (*domain.Customer, error) {
	return r.get(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *PGCustomerRepository) get(ctx context.Context, query, userID string) (*domain.Customer, error) {
	var c domain.Customer
	if err := scanCustomer(conn(ctx, r.db).QueryRow(ctx, query, userID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "customer profile", Err: err}
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (r *PGCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO customers (user_id, name, email, phone, city)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		c.UserID, c.Name, c.Email, c.Phone, c.City).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "customer", Msg: "email already in use", Err: err}
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *PGCustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE customers SET name = $2, email = $3, phone = $4, city = $5, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at`,
		c.UserID, c.Name, c.Email, c.Phone, c.City).
		Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundError{Resource: "customer profile", Err: err}
		}
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.ConflictError{Resource: "customer", Msg: "email already in use", Err: err}
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

// List pages through customers, newest first. Search matches name or email.
func (r *PGCustomerRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, int, error) {
	w := &whereClause{}
	if filter.Search != "" {
		w.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+filter.Search+"%")
	}

	db := conn(ctx, r.db)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	limit, args := w.paginate(filter.Page)
	rows, err := db.Query(ctx, `SELECT `+customerColumns+` FROM customers`+w.String()+` ORDER BY created_at DESC, user_id`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

// Stats summarises the user's bookings, ratings and grievances, with the five
// airlines they booked most.
func (r *PGCustomerRepository) Stats(ctx context.Context, userID string) (*domain.CustomerStats, error) {
	db := conn(ctx, r.db)
	stats := &domain.CustomerStats{FavoriteAirlines: make([]domain.AirlineFlights, 0)}

	err := db.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM bookings WHERE user_id = $1),
		(SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND status IN `+historyStatuses+`),
		(SELECT COUNT(*) FROM ratings WHERE user_id = $1),
		(SELECT COUNT(*) FROM grievances WHERE user_id = $1)`, userID).
		Scan(&stats.TotalBookings, &stats.CompletedBookings, &stats.TotalRatings, &stats.TotalGrievances)
	if err != nil {
		return nil, fmt.Errorf("customer stats: %w", err)
	}

	rows, err := db.Query(ctx, `SELECT f.airline_id, COALESCE(a.name, ''), COUNT(*)
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		LEFT JOIN airlines a ON a.id = f.airline_id
		WHERE b.user_id = $1
		GROUP BY f.airline_id, a.name
		ORDER BY COUNT(*) DESC, f.airline_id
		LIMIT 5`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite airlines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.AirlineFlights
		if err := rows.Scan(&a.AirlineID, &a.AirlineName, &a.Count); err != nil {
			return nil, fmt.Errorf("scan favorite airline: %w", err)
		}
		stats.FavoriteAirlines = append(stats.FavoriteAirlines, a)
	}
	return stats, rows.Err()
}

var _ CustomerRepository = (*PGCustomerRepository)(nil)
