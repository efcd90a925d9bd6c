package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

// Ratings are accepted only from travellers with a confirmed or completed booking.
var ratingStatuses = []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusCompleted}

type FeedbackUseCase interface {
	SubmitRating(ctx context.Context, principal domain.Principal, input RatingInput) (*domain.Rating, bool, error)
	ListRatings(ctx context.Context, principal domain.Principal) ([]domain.Rating, error)
	SubmitGrievance(ctx context.Context, principal domain.Principal, input GrievanceInput) (*domain.Grievance, error)
	ListGrievances(ctx context.Context, principal domain.Principal, filter domain.GrievanceFilter) ([]domain.Grievance, int, error)
	ListAllGrievances(ctx context.Context, principal domain.Principal, filter domain.GrievanceFilter) ([]domain.Grievance, int, error)
	RespondToGrievance(ctx context.Context, principal domain.Principal, id string, input ResponseInput) (*domain.Grievance, error)
}

type RatingInput struct {
	FlightID string
	Value    int
	Comment  string
}

type GrievanceInput struct {
	FlightID    string
	Subject     string
	Description string
}

type ResponseInput struct {
	Response string
	Status   domain.GrievanceStatus
}

// BookingChecker reports whether a user holds a booking on a flight in one of the statuses.
type BookingChecker interface {
	HasBooking(ctx context.Context, userID, flightID string, statuses []domain.BookingStatus) (bool, error)
}

type FlightGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
}

type FeedbackService struct {
	feedback  repository.FeedbackRepository
	bookings  BookingChecker
	flights   FlightGetter
	sequences repository.SequenceRepository
	tx        repository.Transactor
	log       logrus.FieldLogger
}

func NewFeedbackService(
	feedback repository.FeedbackRepository,
	bookings BookingChecker,
	flights FlightGetter,
	sequences repository.SequenceRepository,
	tx repository.Transactor,
	log logrus.FieldLogger,
) *FeedbackService {
	return &FeedbackService{
		feedback:  feedback,
		bookings:  bookings,
		flights:   flights,
		sequences: sequences,
		tx:        tx,
		log:       log,
	}
}

// SubmitRating creates or replaces the caller's rating of a flight. The bool result
// reports whether a new rating was created.
func (s *FeedbackService) SubmitRating(ctx context.Context, principal domain.Principal, input RatingInput) (*domain.Rating, bool, error) {
	if input.FlightID == "" {
		return nil, false, domain.ValidationError{Field: "flightId", Msg: "is required"}
	}
	if input.Value < domain.MinRating || input.Value > domain.MaxRating {
		return nil, false, domain.ValidationError{Field: "rating", Msg: fmt.Sprintf("must be between %d and %d", domain.MinRating, domain.MaxRating)}
	}

	travelled, err := s.bookings.HasBooking(ctx, principal.UserID, input.FlightID, ratingStatuses)
	if err != nil {
		return nil, false, err
	}
	if !travelled {
		return nil, false, domain.ValidationError{Msg: "you can only rate flights you have a confirmed or completed booking for"}
	}

	rating := &domain.Rating{
		UserID:   principal.UserID,
		FlightID: input.FlightID,
		Value:    input.Value,
		Comment:  strings.TrimSpace(input.Comment),
	}
	created, err := s.feedback.UpsertRating(ctx, rating)
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{"flight_id": rating.FlightID, "user_id": rating.UserID, "created": created}).Info("rating saved")
	return rating, created, nil
}

func (s *FeedbackService) ListRatings(ctx context.Context, principal domain.Principal) ([]domain.Rating, error) {
	return s.feedback.ListRatings(ctx, principal.UserID)
}

func (s *FeedbackService) SubmitGrievance(ctx context.Context, principal domain.Principal, input GrievanceInput) (*domain.Grievance, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	switch {
	case input.FlightID == "":
		return nil, domain.ValidationError{Field: "flightId", Msg: "is required"}
	case subject == "":
		return nil, domain.ValidationError{Field: "subject", Msg: "is required"}
	case description == "":
		return nil, domain.ValidationError{Field: "description", Msg: "is required"}
	}

	var grievance *domain.Grievance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.flights.GetByID(ctx, input.FlightID); err != nil {
			return err
		}
		id, err := s.sequences.Next(ctx, repository.GrievanceSequence)
		if err != nil {
			return err
		}
		grievance = &domain.Grievance{
			ID:          id,
			UserID:      principal.UserID,
			FlightID:    input.FlightID,
			Subject:     subject,
			Description: description,
			Status:      domain.GrievanceStatusPending,
		}
		return s.feedback.CreateGrievance(ctx, grievance)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("grievance_id", grievance.ID).Info("grievance submitted")
	return grievance, nil
}

func (s *FeedbackService) ListGrievances(ctx context.Context, principal domain.Principal, filter domain.GrievanceFilter) ([]domain.Grievance, int, error) {
	if principal.UserID == "" {
		return nil, 0, domain.ForbiddenError{Msg: "authentication required"}
	}
	return s.list(ctx, filter, principal.UserID)
}

func (s *FeedbackService) ListAllGrievances(ctx context.Context, principal domain.Principal, filter domain.GrievanceFilter) ([]domain.Grievance, int, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter, "")
}

func (s *FeedbackService) list(ctx context.Context, filter domain.GrievanceFilter, userID string) ([]domain.Grievance, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown grievance status %q", filter.Status)}
	}
	filter.Page = filter.Page.Normalize()
	return s.feedback.ListGrievances(ctx, filter, userID)
}

// RespondToGrievance closes a pending grievance. The status defaults to RESOLVED.
func (s *FeedbackService) RespondToGrievance(ctx context.Context, principal domain.Principal, id string, input ResponseInput) (*domain.Grievance, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	response := strings.TrimSpace(input.Response)
	if response == "" {
		return nil, domain.ValidationError{Field: "response", Msg: "is required"}
	}
	status := input.Status
	if status == "" {
		status = domain.GrievanceStatusResolved
	}
	if status != domain.GrievanceStatusResolved && status != domain.GrievanceStatusRejected {
		return nil, domain.ValidationError{Field: "status", Msg: "must be RESOLVED or REJECTED"}
	}

	var grievance *domain.Grievance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		grievance, err = s.feedback.GetGrievanceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if grievance.Status != domain.GrievanceStatusPending {
			return domain.ConflictError{Msg: fmt.Sprintf("grievance is already %s", strings.ToLower(string(grievance.Status)))}
		}
		grievance.Status = status
		grievance.Response = response
		return s.feedback.RespondGrievance(ctx, grievance)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"grievance_id": id, "status": status, "admin_id": principal.UserID}).Info("grievance answered")
	return grievance, nil
}

var _ FeedbackUseCase = (*FeedbackService)(nil)
