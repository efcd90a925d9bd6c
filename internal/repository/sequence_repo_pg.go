package repository

import (
	"context"
	"fmt"
)

// Sequence is a database sequence rendered as a fixed-width prefixed identifier.
type Sequence struct {
	Name   string
	Prefix string
	Width  int
}

var (
	BookingSequence   = Sequence{Name: "booking_id_seq", Prefix: "BK", Width: 6}
	PassengerSequence = Sequence{Name: "passenger_id_seq", Prefix: "PSG", Width: 6}
	TicketSequence    = Sequence{Name: "ticket_id_seq", Prefix: "TKT", Width: 6}
	GrievanceSequence = Sequence{Name: "grievance_id_seq", Prefix: "GRV", Width: 6}
)

func (s Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

type SequenceRepository interface {
	Next(ctx context.Context, seq Sequence) (string, error)
}

type PGSequenceRepository struct {
	db DB
}

func NewSequenceRepository(db DB) SequenceRepository {
	return &PGSequenceRepository{db: db}
}

// Next draws from the sequence. Values are never reused, even when the
// surrounding transaction rolls back.
func (r *PGSequenceRepository) Next(ctx context.Context, seq Sequence) (string, error) {
	var n int64
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT nextval($1::text::regclass)`, seq.Name).Scan(&n); err != nil {
		return "", fmt.Errorf("next %s: %w", seq.Name, err)
	}
	return seq.Format(n), nil
}

var _ SequenceRepository = (*PGSequenceRepository)(nil)
