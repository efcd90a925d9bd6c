package customer

import (
	"context"
	"net/mail"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type CustomerUseCase interface {
	Profile(ctx context.Context, principal domain.Principal) (*domain.Customer, error)
	UpdateProfile(ctx context.Context, principal domain.Principal, input ProfileInput) (*domain.Customer, bool, error)
	FlightHistory(ctx context.Context, principal domain.Principal) ([]domain.FlightHistoryEntry, error)
	Stats(ctx context.Context, principal domain.Principal) (*domain.CustomerStats, error)
	ListCustomers(ctx context.Context, principal domain.Principal, filter domain.CustomerFilter) ([]domain.Customer, int, error)
	UpdateCustomer(ctx context.Context, principal domain.Principal, userID string, input ProfileInput) (*domain.Customer, error)
}

// ProfileInput carries a partial profile change. Nil fields are left as they are.
type ProfileInput struct {
	Name  *string
	Email *string
	Phone *string
	City  *string
}

type HistoryReader interface {
	FlightHistory(ctx context.Context, userID string) ([]domain.FlightHistoryEntry, error)
}

type CustomerService struct {
	customers repository.CustomerRepository
	history   HistoryReader
	tx        repository.Transactor
	log       logrus.FieldLogger
}

func NewCustomerService(customers repository.CustomerRepository, history HistoryReader, tx repository.Transactor, log logrus.FieldLogger) *CustomerService {
	return &CustomerService{customers: customers, history: history, tx: tx, log: log}
}

func (s *CustomerService) Profile(ctx context.Context, principal domain.Principal) (*domain.Customer, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	return s.customers.GetByUserID(ctx, principal.UserID)
}

// UpdateProfile changes the caller's profile, creating it on first use. Creation needs
// a name and an email. The bool result reports whether the profile was created.
func (s *CustomerService) UpdateProfile(ctx context.Context, principal domain.Principal, input ProfileInput) (*domain.Customer, bool, error) {
	if err := requireUser(principal); err != nil {
		return nil, false, err
	}

	var (
		profile *domain.Customer
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.customers.GetForUpdate(ctx, principal.UserID)
		switch {
		case domain.IsNotFound(err):
			created = true
			profile = &domain.Customer{UserID: principal.UserID}
		case err != nil:
			return err
		}

		applyProfile(profile, input)
		if err := validateProfile(profile); err != nil {
			return err
		}
		if created {
			return s.customers.Create(ctx, profile)
		}
		return s.customers.Update(ctx, profile)
	})
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{"user_id": principal.UserID, "created": created}).Info("customer profile saved")
	return profile, created, nil
}

// FlightHistory lists the caller's confirmed and completed bookings, newest departure first.
func (s *CustomerService) FlightHistory(ctx context.Context, principal domain.Principal) ([]domain.FlightHistoryEntry, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	return s.history.FlightHistory(ctx, principal.UserID)
}

func (s *CustomerService) Stats(ctx context.Context, principal domain.Principal) (*domain.CustomerStats, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}
	return s.customers.Stats(ctx, principal.UserID)
}

func (s *CustomerService) ListCustomers(ctx context.Context, principal domain.Principal, filter domain.CustomerFilter) ([]domain.Customer, int, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, 0, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page = filter.Page.Normalize()
	return s.customers.List(ctx, filter)
}

// UpdateCustomer lets an administrator correct an existing profile.
func (s *CustomerService) UpdateCustomer(ctx context.Context, principal domain.Principal, userID string, input ProfileInput) (*domain.Customer, error) {
	if err := principal.RequireAdmin(); err != nil {
		return nil, err
	}

	var profile *domain.Customer
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.customers.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		applyProfile(profile, input)
		if err := validateProfile(profile); err != nil {
			return err
		}
		return s.customers.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "admin_id": principal.UserID}).Info("customer profile updated")
	return profile, nil
}

func requireUser(p domain.Principal) error {
	if p.UserID == "" {
		return domain.ForbiddenError{Msg: "authentication required"}
	}
	return nil
}

func applyProfile(c *domain.Customer, in ProfileInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.City != nil {
		c.City = strings.TrimSpace(*in.City)
	}
}

func validateProfile(c *domain.Customer) error {
	if c.Name == "" {
		return domain.ValidationError{Field: "name", Msg: "is required"}
	}
	if c.Email == "" {
		return domain.ValidationError{Field: "email", Msg: "is required"}
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return domain.ValidationError{Field: "email", Msg: "must be a valid email address"}
	}
	return nil
}

var _ CustomerUseCase = (*CustomerService)(nil)
