package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/airline"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAirlineUseCase struct {
	mock.Mock
}

func (m *MockAirlineUseCase) Create(ctx context.Context, principal domain.Principal, input airline.CreateAirlineInput) (*domain.Airline, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Airline), args.Error(1)
}

func (m *MockAirlineUseCase) List(ctx context.Context, principal domain.Principal, filter domain.AirlineFilter) ([]domain.Airline, int, error) {
	args := m.Called(ctx, principal, filter)
	found, _ := args.Get(0).([]domain.Airline)
	return found, args.Int(1), args.Error(2)
}

func (m *MockAirlineUseCase) Get(ctx context.Context, principal domain.Principal, id string) (*domain.Airline, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Airline), args.Error(1)
}

func (m *MockAirlineUseCase) Update(ctx context.Context, principal domain.Principal, id string, input airline.UpdateAirlineInput) (*domain.Airline, error) {
	args := m.Called(ctx, principal, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Airline), args.Error(1)
}

func (m *MockAirlineUseCase) Delete(ctx context.Context, principal domain.Principal, id string) error {
	args := m.Called(ctx, principal, id)
	return args.Error(0)
}

func TestAirlineHandler_create(t *testing.T) {
	mockService := &MockAirlineUseCase{}
	log, _ := test.NewNullLogger()
	handler := NewAirlineHandler(mockService, log)

	c, w := newTestContext(jsonRequest(http.MethodPost, "/api/admin/airlines", `{
		"id": "AI",
		"name": "Air India",
		"email": "ops@airindia.example",
		"city": "Delhi",
		"fleetSize": 120,
		"establishedOn": "1932-10-15"
	}`), admin)

	est := time.Date(1932, 10, 15, 0, 0, 0, 0, time.UTC)
	input := airline.CreateAirlineInput{
		ID:            "AI",
		Name:          "Air India",
		Email:         "ops@airindia.example",
		City:          "Delhi",
		FleetSize:     120,
		EstablishedOn: &est,
	}
	mockService.On("Create", mock.Anything, admin, input).Return(&domain.Airline{ID: "AI", Name: "Air India"}, nil).Once()

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Airline created successfully.", body["message"])
	mockService.AssertExpectations(t)
}

func TestAirlineHandler_list(t *testing.T) {
	mockService := &MockAirlineUseCase{}
	log, _ := test.NewNullLogger()
	handler := NewAirlineHandler(mockService, log)

	c, w := newTestContext(httptest.NewRequest(http.MethodGet, "/api/admin/airlines?status=ACTIVE&page=2&limit=5", nil), admin)
	filter := domain.AirlineFilter{Status: domain.AirlineStatusActive, Page: domain.Page{Number: 2, Limit: 5}}
	mockService.On("List", mock.Anything, admin, filter).Return([]domain.Airline{{ID: "AI"}}, 6, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(6), body["total"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Len(t, body["airlines"], 1)
	mockService.AssertExpectations(t)
}

func TestAirlineHandler_update(t *testing.T) {
	mockService := &MockAirlineUseCase{}
	log, _ := test.NewNullLogger()
	handler := NewAirlineHandler(mockService, log)

	c, w := newTestContext(jsonRequest(http.MethodPut, "/api/admin/airlines/AI", `{"fleetSize":140,"status":"INACTIVE"}`), admin,
		gin.Param{Key: "airlineId", Value: "AI"})
	mockService.On("Update", mock.Anything, admin, "AI", mock.MatchedBy(func(in airline.UpdateAirlineInput) bool {
		return in.FleetSize != nil && *in.FleetSize == 140 &&
			in.Status != nil && *in.Status == domain.AirlineStatusInactive &&
			in.Name == nil && in.EstablishedOn == nil
	})).Return(&domain.Airline{ID: "AI", FleetSize: 140}, nil).Once()

	handler.update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Airline updated successfully.", decode(t, w)["message"])
	mockService.AssertExpectations(t)
}

func TestAirlineHandler_delete(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"deleted", nil, http.StatusOK, `{"message":"Airline deleted successfully."}`},
		{"has flights", domain.ConflictError{Msg: "airline has 2 flights, remove them first"}, http.StatusBadRequest, `{"message":"airline has 2 flights, remove them first"}`},
		{"missing", domain.NotFoundError{Resource: "airline"}, http.StatusNotFound, `{"message":"airline not found"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockAirlineUseCase{}
			log, _ := test.NewNullLogger()
			handler := NewAirlineHandler(mockService, log)

			c, w := newTestContext(httptest.NewRequest(http.MethodDelete, "/api/admin/airlines/AI", nil), admin,
				gin.Param{Key: "airlineId", Value: "AI"})
			mockService.On("Delete", mock.Anything, admin, "AI").Return(tc.err).Once()

			handler.delete(c)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}
