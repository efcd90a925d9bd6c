package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxPassengerAge = 130

type BookingUseCase interface {
	CreateBooking(ctx context.Context, principal domain.Principal, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, principal domain.Principal, bookingID string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, principal domain.Principal, bookingID string, status domain.BookingStatus, remark *string) (*domain.Booking, error)
	GetBooking(ctx context.Context, principal domain.Principal, bookingID string) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, principal domain.Principal, filter domain.BookingFilter) ([]domain.Booking, int, error)
	ListAllBookings(ctx context.Context, principal domain.Principal, filter domain.BookingFilter) ([]domain.Booking, int, error)
	Stats(ctx context.Context, principal domain.Principal) (*domain.BookingStats, error)
	CompleteDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type BookingService struct {
	bookings               repository.BookingRepository
	flights                repository.FlightRepository
	sequences              repository.SequenceRepository
	tx                     repository.Transactor
	producer               Producer
	bookingTopic           string
	notificationsTopic     string
	allowAnyStatusOverride bool
	log                    logrus.FieldLogger
	now                    func() time.Time
}

type PassengerInput struct {
	Name     string
	Age      int
	Gender   string
	Relation string
}

type CreateBookingInput struct {
	FlightID      string
	Passengers    []PassengerInput
	DepartureDate time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithAllowAnyStatusOverride lets administrators set any status, skipping the lifecycle check.
func WithAllowAnyStatusOverride(allow bool) BookingServiceOption {
	return func(s *BookingService) {
		s.allowAnyStatusOverride = allow
	}
}

func WithLogger(log logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	sequences repository.SequenceRepository,
	tx repository.Transactor,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		sequences:    sequences,
		tx:           tx,
		producer:     producer,
		bookingTopic: bookingTopic,
		log:          logrus.StandardLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func validateCreateInput(input CreateBookingInput) error {
	if strings.TrimSpace(input.FlightID) == "" {
		return domain.ValidationError{Field: "flightId", Msg: "is required"}
	}
	if len(input.Passengers) == 0 {
		return domain.ValidationError{Field: "passengers", Msg: "at least one passenger is required"}
	}
	for i, p := range input.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].name", i), Msg: "is required"}
		}
		if p.Age < 0 || p.Age > maxPassengerAge {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].age", i), Msg: fmt.Sprintf("must be between 0 and %d", maxPassengerAge)}
		}
	}
	return nil
}

// CreateBooking books seats for every passenger on the flight. The flight row is locked
// for the duration of the transaction, so the capacity check and the inserts see a
// consistent seat count.
func (s *BookingService) CreateBooking(ctx context.Context, principal domain.Principal, input CreateBookingInput) (*domain.Booking, error) {
	if principal.UserID == "" {
		return nil, domain.ForbiddenError{Msg: "authentication required"}
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var booking *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		flight, err := s.flights.GetForUpdate(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if flight.Status != domain.FlightStatusActive {
			return domain.ConflictError{Msg: "flight is not available for booking"}
		}

		booked, err := s.flights.BookedSeats(ctx, flight.ID)
		if err != nil {
			return err
		}
		if booked+len(input.Passengers) > flight.TotalSeats {
			return domain.ConflictError{Msg: "not enough seats available"}
		}

		id, err := s.sequences.Next(ctx, repository.BookingSequence)
		if err != nil {
			return err
		}
		departure := input.DepartureDate
		if departure.IsZero() {
			departure = flight.DepartureTime
		}
		booking = &domain.Booking{
			ID:            id,
			UserID:        principal.UserID,
			FlightID:      flight.ID,
			BookedAt:      s.now(),
			DepartureDate: departure,
			Status:        domain.BookingStatusUpcoming,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}

		used, err := s.bookings.SeatNumbers(ctx, booking.ID)
		if err != nil {
			return err
		}

		booking.Tickets = make([]domain.Ticket, 0, len(input.Passengers))
		for _, in := range input.Passengers {
			ticket, err := s.addPassenger(ctx, booking, in, domain.NextSeat(used))
			if err != nil {
				return err
			}
			used = append(used, ticket.SeatNumber)
			booking.Tickets = append(booking.Tickets, *ticket)
		}

		flight.SetBooked(booked + len(input.Passengers))
		booking.Flight = flight
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"flight_id":  booking.FlightID,
		"seats":      len(booking.Tickets),
	}).Info("booking created")
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) addPassenger(ctx context.Context, booking *domain.Booking, in PassengerInput, seat int) (*domain.Ticket, error) {
	passengerID, err := s.sequences.Next(ctx, repository.PassengerSequence)
	if err != nil {
		return nil, err
	}
	passenger := &domain.Passenger{
		ID:       passengerID,
		UserID:   booking.UserID,
		Name:     strings.TrimSpace(in.Name),
		Age:      in.Age,
		Gender:   in.Gender,
		Relation: in.Relation,
	}
	if err := s.bookings.CreatePassenger(ctx, passenger); err != nil {
		return nil, err
	}

	ticketID, err := s.sequences.Next(ctx, repository.TicketSequence)
	if err != nil {
		return nil, err
	}
	ticket := &domain.Ticket{
		ID:          ticketID,
		BookingID:   booking.ID,
		PassengerID: passenger.ID,
		SeatNumber:  seat,
		Status:      booking.Status,
		Passenger:   passenger,
	}
	if err := s.bookings.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, principal domain.Principal, bookingID string) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if current.UserID != principal.UserID {
			return domain.NotFoundError{Resource: "booking"}
		}
		if current.Status == domain.BookingStatusCancelled {
			return domain.ConflictError{Msg: "booking is already cancelled"}
		}
		if !current.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return domain.ConflictError{Msg: fmt.Sprintf("booking in status %s cannot be cancelled", current.Status)}
		}

		if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled, nil); err != nil {
			return err
		}
		booking, err = s.bookings.GetByID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("booking_id", booking.ID).Info("booking cancelled")
	s.publish(ctx, kafka.EventBookingCancelled, booking)
	return booking, nil
}

// UpdateBookingStatus is the administrative override. Setting the current status again
// only updates the remark.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, principal domain.Principal, bookingID string, status domain.BookingStatus, remark *string) (*domain.Booking, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown booking status %q", status)}
	}

	var (
		booking  *domain.Booking
		previous domain.BookingStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		previous = current.Status

		if current.Status != status {
			if !s.allowAnyStatusOverride && !current.Status.CanTransitionTo(status) {
				return domain.ConflictError{Msg: fmt.Sprintf("cannot change booking status from %s to %s", current.Status, status)}
			}
			if !current.Status.IsActive() && status.IsActive() {
				if err := s.checkCapacityForReactivation(ctx, current); err != nil {
					return err
				}
			}
		}

		if err := s.bookings.UpdateStatus(ctx, bookingID, status, remark); err != nil {
			return err
		}
		booking, err = s.bookings.GetByID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       previous,
		"to":         status,
		"admin_id":   principal.UserID,
	}).Info("booking status updated")

	event := kafka.EventBookingStatusUpdated
	if status == domain.BookingStatusCompleted {
		event = kafka.EventBookingCompleted
	}
	s.publish(ctx, event, booking)
	return booking, nil
}

// checkCapacityForReactivation makes sure the seats of an inactive booking still fit
// on its flight before the booking holds them again.
func (s *BookingService) checkCapacityForReactivation(ctx context.Context, b *domain.Booking) error {
	flight, err := s.flights.GetForUpdate(ctx, b.FlightID)
	if err != nil {
		return err
	}
	booked, err := s.flights.BookedSeats(ctx, flight.ID)
	if err != nil {
		return err
	}
	seats, err := s.bookings.SeatNumbers(ctx, b.ID)
	if err != nil {
		return err
	}
	if booked+len(seats) > flight.TotalSeats {
		return domain.ConflictError{Msg: "not enough seats available"}
	}
	return nil
}

// GetBooking returns one of the caller's own bookings. Bookings of other users are
// reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, principal domain.Principal, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != principal.UserID {
		return nil, domain.NotFoundError{Resource: "booking"}
	}
	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, principal domain.Principal, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	if principal.UserID == "" {
		return nil, 0, domain.ForbiddenError{Msg: "authentication required"}
	}
	filter.UserID = principal.UserID
	filter.FlightID = ""

	bookings, total, err := s.list(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range bookings {
		if bookings[i].Tickets, err = s.bookings.Tickets(ctx, bookings[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return bookings, total, nil
}

func (s *BookingService) ListAllBookings(ctx context.Context, principal domain.Principal, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, filter)
}

func (s *BookingService) list(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown booking status %q", filter.Status)}
	}
	filter.Page = filter.Page.Normalize()
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) Stats(ctx context.Context, principal domain.Principal) (*domain.BookingStats, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.bookings.Stats(ctx)
}

// CompleteDeparted completes every upcoming or confirmed booking that departed before
// the start of now's day.
func (s *BookingService) CompleteDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	y, m, d := now.Date()
	before := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var completed []domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		completed, err = s.bookings.CompleteDeparted(ctx, before)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range completed {
		s.publish(ctx, kafka.EventBookingCompleted, &completed[i])
	}
	if len(completed) > 0 {
		s.log.WithField("count", len(completed)).Info("departed bookings completed")
	}
	return completed, nil
}

// publish sends the event to the booking topic and, when configured, the notifications
// topic. Failures are logged and never returned to the caller.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		ID:         uuid.New(),
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		FlightID:   booking.FlightID,
		Status:     string(booking.Status),
		Passengers: len(booking.Tickets),
		OccurredAt: s.now(),
	}

	topics := []string{s.bookingTopic}
	if s.notificationsTopic != "" {
		topics = append(topics, s.notificationsTopic)
	}
	for _, topic := range topics {
		if err := s.producer.Publish(ctx, topic, booking.ID, event); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"event":      eventType,
				"booking_id": booking.ID,
				"topic":      topic,
			}).Warn("failed to publish booking event")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
