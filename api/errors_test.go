package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	os.Exit(m.Run())
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", fmt.Errorf("get: %w", domain.NotFoundError{Resource: "booking"}), http.StatusNotFound, `{"message":"get: booking not found"}`},
		{"validation", domain.ValidationError{Field: "flightId", Msg: "is required"}, http.StatusBadRequest, `{"message":"flightId: is required"}`},
		{"conflict", domain.ConflictError{Msg: "not enough seats available"}, http.StatusBadRequest, `{"message":"not enough seats available"}`},
		{"forbidden", domain.ForbiddenError{Msg: "require admin role"}, http.StatusForbidden, `{"message":"require admin role"}`},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, `{"message":"internal server error"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, hook := test.NewNullLogger()
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(c, log, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
			if tc.wantStatus == http.StatusInternalServerError {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestBindError_ValidatorMessages(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"missing flight", `{"passengers":[{"name":"Asha","age":30}]}`, "flightId: is required"},
		{"no passengers", `{"flightId":"FL100","passengers":[]}`, "passengers: must have at least 1 item(s)"},
		{"missing age", `{"flightId":"FL100","passengers":[{"name":"Asha"}]}`, "passengers[0].age: is required"},
		{"age too high", `{"flightId":"FL100","passengers":[{"name":"Asha","age":131}]}`, "passengers[0].age: must be at most 130"},
		{"bad date", `{"flightId":"FL100","passengers":[{"name":"Asha","age":3}],"departureDate":"05/01/2026"}`, "departureDate: must be a date in YYYY-MM-DD format"},
		{"wrong type", `{"flightId":7,"passengers":[]}`, "flightId: must be a string"},
		{"broken json", `{"flightId":`, "request body is not valid JSON"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = jsonRequest(http.MethodPost, "/api/bookings", tc.body)

			var req createBookingRequest
			err := bindError(c.ShouldBindJSON(&req))

			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestBindError_AirlineMessages(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"bad email", `{"id":"AI","name":"Air India","email":"ops"}`, "email: must be a valid email address"},
		{"long id", `{"id":"AIRINDIA01","name":"Air India","email":"ops@airindia.example"}`, "id: must be at most 8 characters long"},
		{"negative fleet", `{"id":"AI","name":"Air India","email":"ops@airindia.example","fleetSize":-2}`, "fleetSize: must be at least 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = jsonRequest(http.MethodPost, "/api/admin/airlines", tc.body)

			var req createAirlineRequest
			err := bindError(c.ShouldBindJSON(&req))

			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestBindError_QueryParams(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/bookings/user?limit=500&status=UPCOMING", nil)

	var q bookingListQuery
	err := bindError(c.ShouldBindQuery(&q))

	assert.Equal(t, "limit: must be at most 100", err.Error())
}

func TestBindError_PageUpperBound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/bookings/user?page=9223372036854775807", nil)

	var q bookingListQuery
	err := bindError(c.ShouldBindQuery(&q))

	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, "page: must be at most 100000", err.Error())
}
