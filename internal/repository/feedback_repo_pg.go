package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FeedbackRepository interface {
	UpsertRating(ctx context.Context, rating *domain.Rating) (created bool, err error)
	ListRatings(ctx context.Context, userID string) ([]domain.Rating, error)
	CreateGrievance(ctx context.Context, grievance *domain.Grievance) error
	ListGrievances(ctx context.Context, filter domain.GrievanceFilter, userID string) ([]domain.Grievance, int, error)
	GetGrievanceForUpdate(ctx context.Context, id string) (*domain.Grievance, error)
	RespondGrievance(ctx context.Context, grievance *domain.Grievance) error
}

type PGFeedbackRepository struct {
	db DB
}

func NewFeedbackRepository(db DB) FeedbackRepository {
	return &PGFeedbackRepository{db: db}
}

// UpsertRating stores one rating per user and flight, replacing an earlier one.
func (r *PGFeedbackRepository) UpsertRating(ctx context.Context, rt *domain.Rating) (bool, error) {
	var created bool
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO ratings (user_id, flight_id, value, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, flight_id) DO UPDATE SET value = EXCLUDED.value, comment = EXCLUDED.comment, updated_at = now()
		RETURNING id, created_at, updated_at, (xmax = 0)`,
		rt.UserID, rt.FlightID, rt.Value, rt.Comment).
		Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt, &created)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, domain.NotFoundError{Resource: "flight", Err: err}
		}
		return false, fmt.Errorf("upsert rating: %w", err)
	}
	return created, nil
}

func (r *PGFeedbackRepository) ListRatings(ctx context.Context, userID string) ([]domain.Rating, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, user_id, flight_id, value, COALESCE(comment, ''), created_at, updated_at
		FROM ratings WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.FlightID, &rt.Value, &rt.Comment, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

func (r *PGFeedbackRepository) CreateGrievance(ctx context.Context, g *domain.Grievance) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO grievances (id, user_id, flight_id, subject, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		g.ID, g.UserID, g.FlightID, g.Subject, g.Description, string(g.Status)).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.NotFoundError{Resource: "flight", Err: err}
		}
		return fmt.Errorf("insert grievance: %w", err)
	}
	return nil
}

const grievanceColumns = `id, user_id, flight_id, subject, description, status, COALESCE(response, ''), created_at, updated_at`

func scanGrievance(row rowScanner, g *domain.Grievance) error {
	return row.Scan(&g.ID, &g.UserID, &g.FlightID, &g.Subject, &g.Description, &g.Status, &g.Response, &g.CreatedAt, &g.UpdatedAt)
}

// ListGrievances pages through grievances, newest first. An empty userID lists every user's.
func (r *PGFeedbackRepository) ListGrievances(ctx context.Context, filter domain.GrievanceFilter, userID string) ([]domain.Grievance, int, error) {
	w := &whereClause{}
	if userID != "" {
		w.add("user_id = $%d", userID)
	}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}

	db := conn(ctx, r.db)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM grievances`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}

	limit, args := w.paginate(filter.Page)
	rows, err := db.Query(ctx, `SELECT `+grievanceColumns+` FROM grievances`+w.String()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	defer rows.Close()

	grievances := make([]domain.Grievance, 0)
	for rows.Next() {
		var g domain.Grievance
		if err := scanGrievance(rows, &g); err != nil {
			return nil, 0, fmt.Errorf("scan grievance: %w", err)
		}
		grievances = append(grievances, g)
	}
	return grievances, total, rows.Err()
}

func (r *PGFeedbackRepository) GetGrievanceForUpdate(ctx context.Context, id string) (*domain.Grievance, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE id = $1 FOR UPDATE`, id)

	var g domain.Grievance
	if err := scanGrievance(row, &g); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "grievance", Err: err}
		}
		return nil, fmt.Errorf("lock grievance: %w", err)
	}
	return &g, nil
}

func (r *PGFeedbackRepository) RespondGrievance(ctx context.Context, g *domain.Grievance) error {
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE grievances SET status = $2, response = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`, g.ID, string(g.Status), g.Response).
		Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundError{Resource: "grievance", Err: err}
		}
		return fmt.Errorf("respond grievance: %w", err)
	}
	return nil
}

var _ FeedbackRepository = (*PGFeedbackRepository)(nil)
