package flights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	AvailableSeats(ctx context.Context, id string) (*domain.Availability, error)
	List(ctx context.Context, principal domain.Principal, filter domain.FlightFilter) ([]domain.Flight, int, error)
	Create(ctx context.Context, principal domain.Principal, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, principal domain.Principal, id string, input UpdateFlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, principal domain.Principal, id string) error
	Stats(ctx context.Context, principal domain.Principal) (*domain.FlightStats, error)
}

type FlightService struct {
	repo repository.FlightRepository
	tx   repository.Transactor
	log  logrus.FieldLogger
}

type SearchInput struct {
	Origin      string
	Destination string
	Date        *time.Time
	Passengers  int
}

type CreateFlightInput struct {
	ID            string
	AirlineID     string
	Origin        string
	Destination   string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Duration      string
	TotalSeats    int
	PriceCents    int64
	Status        domain.FlightStatus
}

// UpdateFlightInput is a partial update; nil fields keep their current value.
type UpdateFlightInput struct {
	AirlineID     *string
	Origin        *string
	Destination   *string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	Duration      *string
	TotalSeats    *int
	PriceCents    *int64
	Status        *domain.FlightStatus
}

func NewFlightService(repo repository.FlightRepository, tx repository.Transactor, log logrus.FieldLogger) *FlightService {
	return &FlightService{repo: repo, tx: tx, log: log}
}

// Search lists active flights on the route. Flights without room for the requested
// number of passengers are left out.
func (s *FlightService) Search(ctx context.Context, input SearchInput) ([]domain.Flight, error) {
	origin := strings.ToUpper(strings.TrimSpace(input.Origin))
	destination := strings.ToUpper(strings.TrimSpace(input.Destination))
	if origin == "" || destination == "" {
		return nil, domain.ValidationError{Msg: "origin and destination are required"}
	}
	if input.Passengers < 0 {
		return nil, domain.ValidationError{Field: "passengers", Msg: "must not be negative"}
	}

	flights, err := s.repo.Search(ctx, domain.FlightSearch{Origin: origin, Destination: destination, Date: input.Date})
	if err != nil {
		return nil, err
	}
	if input.Passengers <= 1 {
		return flights, nil
	}

	fits := make([]domain.Flight, 0, len(flights))
	for _, f := range flights {
		if f.AvailableSeats >= input.Passengers {
			fits = append(fits, f)
		}
	}
	return fits, nil
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// AvailableSeats recomputes the seat count from the active bookings of the flight.
func (s *FlightService) AvailableSeats(ctx context.Context, id string) (*domain.Availability, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Availability{
		FlightID:       flight.ID,
		TotalSeats:     flight.TotalSeats,
		BookedSeats:    flight.BookedSeats,
		AvailableSeats: flight.AvailableSeats,
	}, nil
}

func (s *FlightService) List(ctx context.Context, principal domain.Principal, filter domain.FlightFilter) ([]domain.Flight, int, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown flight status %q", filter.Status)}
	}
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *FlightService) Create(ctx context.Context, principal domain.Principal, input CreateFlightInput) (*domain.Flight, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		ID:            strings.TrimSpace(input.ID),
		AirlineID:     strings.TrimSpace(input.AirlineID),
		Origin:        strings.ToUpper(strings.TrimSpace(input.Origin)),
		Destination:   strings.ToUpper(strings.TrimSpace(input.Destination)),
		DepartureTime: input.DepartureTime,
		ArrivalTime:   input.ArrivalTime,
		Duration:      input.Duration,
		TotalSeats:    input.TotalSeats,
		PriceCents:    input.PriceCents,
		Status:        input.Status,
	}
	if flight.Status == "" {
		flight.Status = domain.FlightStatusActive
	}
	if flight.ID == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := validateFlight(flight); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	s.log.WithField("flight_id", flight.ID).Info("flight created")
	return flight, nil
}

// Update applies a partial change. Capacity may not drop below the seats already
// held by active bookings.
func (s *FlightService) Update(ctx context.Context, principal domain.Principal, id string, input UpdateFlightInput) (*domain.Flight, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		flight, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(flight, input)
		if err := validateFlight(flight); err != nil {
			return err
		}

		if input.TotalSeats != nil {
			booked, err := s.repo.BookedSeats(ctx, id)
			if err != nil {
				return err
			}
			if flight.TotalSeats < booked {
				return domain.ConflictError{Msg: fmt.Sprintf("total seats cannot be lower than the %d seats already booked", booked)}
			}
		}
		return s.repo.Update(ctx, flight)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("flight_id", id).Info("flight updated")
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	if err := principal.RequireAdmin(); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		booked, err := s.repo.BookedSeats(ctx, id)
		if err != nil {
			return err
		}
		if booked > 0 {
			return domain.ConflictError{Msg: "flight has active bookings"}
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("flight_id", id).Info("flight deleted")
	return nil
}

func (s *FlightService) Stats(ctx context.Context, principal domain.Principal) (*domain.FlightStats, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}

func applyUpdate(f *domain.Flight, in UpdateFlightInput) {
	if in.AirlineID != nil {
		f.AirlineID = strings.TrimSpace(*in.AirlineID)
	}
	if in.Origin != nil {
		f.Origin = strings.ToUpper(strings.TrimSpace(*in.Origin))
	}
	if in.Destination != nil {
		f.Destination = strings.ToUpper(strings.TrimSpace(*in.Destination))
	}
	if in.DepartureTime != nil {
		f.DepartureTime = *in.DepartureTime
	}
	if in.ArrivalTime != nil {
		f.ArrivalTime = *in.ArrivalTime
	}
	if in.Duration != nil {
		f.Duration = *in.Duration
	}
	if in.TotalSeats != nil {
		f.TotalSeats = *in.TotalSeats
	}
	if in.PriceCents != nil {
		f.PriceCents = *in.PriceCents
	}
	if in.Status != nil {
		f.Status = *in.Status
	}
	if (in.DepartureTime != nil || in.ArrivalTime != nil) && in.Duration == nil {
		f.Duration = ""
	}
}

func validateFlight(f *domain.Flight) error {
	switch {
	case f.AirlineID == "":
		return domain.ValidationError{Field: "airlineId", Msg: "is required"}
	case f.Origin == "" || f.Destination == "":
		return domain.ValidationError{Msg: "origin and destination are required"}
	case f.Origin == f.Destination:
		return domain.ValidationError{Field: "destination", Msg: "must differ from origin"}
	case f.DepartureTime.IsZero() || f.ArrivalTime.IsZero():
		return domain.ValidationError{Msg: "departure and arrival times are required"}
	case !f.ArrivalTime.After(f.DepartureTime):
		return domain.ValidationError{Field: "arrivalTime", Msg: "must be after departure time"}
	case f.TotalSeats < 0:
		return domain.ValidationError{Field: "totalSeats", Msg: "must not be negative"}
	case f.PriceCents < 0:
		return domain.ValidationError{Field: "price", Msg: "must not be negative"}
	case !f.Status.IsValid():
		return domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown flight status %q", f.Status)}
	}
	if f.Duration == "" {
		f.Duration = formatDuration(f.ArrivalTime.Sub(f.DepartureTime))
	}
	return nil
}

// formatDuration renders a flight duration as "2h 05m".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

var _ FlightUseCase = (*FlightService)(nil)
