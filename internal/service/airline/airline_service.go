package airline

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type AirlineUseCase interface {
	Create(ctx context.Context, principal domain.Principal, input CreateAirlineInput) (*domain.Airline, error)
	List(ctx context.Context, principal domain.Principal, filter domain.AirlineFilter) ([]domain.Airline, int, error)
	Get(ctx context.Context, principal domain.Principal, id string) (*domain.Airline, error)
	Update(ctx context.Context, principal domain.Principal, id string, input UpdateAirlineInput) (*domain.Airline, error)
	Delete(ctx context.Context, principal domain.Principal, id string) error
}

type CreateAirlineInput struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	City          string
	State         string
	Address       string
	FleetSize     int
	EstablishedOn *time.Time
	Status        domain.AirlineStatus
}

// UpdateAirlineInput carries a partial change. Nil fields are left as they are.
type UpdateAirlineInput struct {
	Name          *string
	Email         *string
	Phone         *string
	City          *string
	State         *string
	Address       *string
	FleetSize     *int
	EstablishedOn *time.Time
	Status        *domain.AirlineStatus
}

type AirlineService struct {
	repo repository.AirlineRepository
	tx   repository.Transactor
	log  logrus.FieldLogger
}

func NewAirlineService(repo repository.AirlineRepository, tx repository.Transactor, log logrus.FieldLogger) *AirlineService {
	return &AirlineService{repo: repo, tx: tx, log: log}
}

func (s *AirlineService) Create(ctx context.Context, principal domain.Principal, input CreateAirlineInput) (*domain.Airline, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	airline := &domain.Airline{
		ID:            strings.ToUpper(strings.TrimSpace(input.ID)),
		Name:          strings.TrimSpace(input.Name),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:         strings.TrimSpace(input.Phone),
		City:          strings.TrimSpace(input.City),
		State:         strings.TrimSpace(input.State),
		Address:       strings.TrimSpace(input.Address),
		FleetSize:     input.FleetSize,
		EstablishedOn: input.EstablishedOn,
		Status:        input.Status,
	}
	if airline.Status == "" {
		airline.Status = domain.AirlineStatusActive
	}
	if airline.ID == "" {
		return nil, domain.ValidationError{Field: "id", Msg: "is required"}
	}
	if err := validateAirline(airline); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, airline); err != nil {
		return nil, err
	}
	s.log.WithField("airline_id", airline.ID).Info("airline created")
	return airline, nil
}

func (s *AirlineService) List(ctx context.Context, principal domain.Principal, filter domain.AirlineFilter) ([]domain.Airline, int, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown airline status %q", filter.Status)}
	}
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *AirlineService) Get(ctx context.Context, principal domain.Principal, id string) (*domain.Airline, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *AirlineService) Update(ctx context.Context, principal domain.Principal, id string, input UpdateAirlineInput) (*domain.Airline, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	var airline *domain.Airline
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		airline, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(airline, input)
		if err := validateAirline(airline); err != nil {
			return err
		}
		return s.repo.Update(ctx, airline)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("airline_id", id).Info("airline updated")
	return airline, nil
}

// Delete removes an airline that no flight refers to.
func (s *AirlineService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	if err := principal.RequireAdmin(); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := s.repo.FlightCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ConflictError{Msg: fmt.Sprintf("airline has %d flights, remove them first", n)}
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.WithField("airline_id", id).Info("airline deleted")
	return nil
}

func validateAirline(a *domain.Airline) error {
	switch {
	case a.Name == "":
		return domain.ValidationError{Field: "name", Msg: "is required"}
	case a.Email == "":
		return domain.ValidationError{Field: "email", Msg: "is required"}
	case a.FleetSize < 0:
		return domain.ValidationError{Field: "fleetSize", Msg: "must not be negative"}
	case !a.Status.IsValid():
		return domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown airline status %q", a.Status)}
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return domain.ValidationError{Field: "email", Msg: "must be a valid email address"}
	}
	if a.EstablishedOn != nil && a.EstablishedOn.After(time.Now()) {
		return domain.ValidationError{Field: "establishedOn", Msg: "must not be in the future"}
	}
	return nil
}

func applyUpdate(a *domain.Airline, in UpdateAirlineInput) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		a.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		a.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.City != nil {
		a.City = strings.TrimSpace(*in.City)
	}
	if in.State != nil {
		a.State = strings.TrimSpace(*in.State)
	}
	if in.Address != nil {
		a.Address = strings.TrimSpace(*in.Address)
	}
	if in.FleetSize != nil {
		a.FleetSize = *in.FleetSize
	}
	if in.EstablishedOn != nil {
		a.EstablishedOn = in.EstablishedOn
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
}

var _ AirlineUseCase = (*AirlineService)(nil)
