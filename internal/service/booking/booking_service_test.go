package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	customer = domain.Principal{UserID: "U1", Role: domain.RoleCustomer}
	other    = domain.Principal{UserID: "U2", Role: domain.RoleCustomer}
	admin    = domain.Principal{UserID: "A1", Role: domain.RoleAdmin}
)

func testFlight(id string, seats int) domain.Flight {
	return domain.Flight{
		ID:            id,
		AirlineID:     "AL1",
		Origin:        "DEL",
		Destination:   "BOM",
		DepartureTime: fixedNow.Add(72 * time.Hour),
		ArrivalTime:   fixedNow.Add(74 * time.Hour),
		TotalSeats:    seats,
		PriceCents:    450000,
		Status:        domain.FlightStatusActive,
	}
}

func passengers(names ...string) []PassengerInput {
	in := make([]PassengerInput, 0, len(names))
	for i, n := range names {
		in = append(in, PassengerInput{Name: n, Age: 30 + i, Gender: "F", Relation: "Self"})
	}
	return in
}

func newTestService(store *memStore, opts ...BookingServiceOption) *BookingService {
	bookings, flights, sequences, tx := store.repos()
	log, _ := test.NewNullLogger()
	opts = append([]BookingServiceOption{WithClock(func() time.Time { return fixedNow }), WithLogger(log)}, opts...)
	return NewBookingService(bookings, flights, sequences, tx, nil, "", opts...)
}

func availability(t *testing.T, store *memStore, flightID string) int {
	t.Helper()
	_, flights, _, _ := store.repos()
	f, err := flights.GetByID(context.Background(), flightID)
	require.NoError(t, err)
	return f.AvailableSeats
}

func TestBookingService_CapacityScenario(t *testing.T) {
	store := newMemStore(testFlight("FL1", 2))
	service := newTestService(store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusUpcoming, first.Status)
	assert.Equal(t, 0, availability(t, store, "FL1"))

	_, err = service.CreateBooking(ctx, other, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Meera")})
	assert.True(t, domain.IsConflict(err))
	assert.EqualError(t, err, "not enough seats available")
	assert.Len(t, store.bookings, 1)
	assert.Len(t, store.tickets, 2)

	cancelled, err := service.CancelBooking(ctx, customer, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	for _, ticket := range cancelled.Tickets {
		assert.Equal(t, domain.BookingStatusCancelled, ticket.Status)
	}
	assert.Equal(t, 2, availability(t, store, "FL1"))
}

func TestBookingService_CreateBooking_ConcurrentNeverOverbooks(t *testing.T) {
	const (
		seats   = 5
		callers = 12
	)
	store := newMemStore(testFlight("FL1", seats))
	service := newTestService(store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p := domain.Principal{UserID: fmt.Sprintf("U%02d", i), Role: domain.RoleCustomer}
			_, err := service.CreateBooking(context.Background(), p, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Solo")})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case domain.IsConflict(err):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, seats, succeeded)
	assert.Equal(t, callers-seats, conflicts)
	assert.Len(t, store.tickets, seats)
	assert.LessOrEqual(t, store.bookedSeats("FL1"), seats)
	assert.Equal(t, 0, availability(t, store, "FL1"))
}

func TestMemStore_LockingCallsRequireTransaction(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	bookings, flights, sequences, _ := store.repos()
	ctx := context.Background()

	_, err := flights.GetForUpdate(ctx, "FL1")
	assert.ErrorIs(t, err, errNoTx)
	_, err = flights.BookedSeats(ctx, "FL1")
	assert.ErrorIs(t, err, errNoTx)
	_, err = sequences.Next(ctx, repository.BookingSequence)
	assert.ErrorIs(t, err, errNoTx)
	assert.ErrorIs(t, bookings.Create(ctx, &domain.Booking{ID: "BK1"}), errNoTx)
	assert.ErrorIs(t, bookings.CreateTicket(ctx, &domain.Ticket{ID: "TKT1"}), errNoTx)
}

func TestBookingService_CreateBooking_ZeroSeatFlight(t *testing.T) {
	store := newMemStore(testFlight("FL0", 0))
	service := newTestService(store)

	booking, err := service.CreateBooking(context.Background(), customer, CreateBookingInput{FlightID: "FL0", Passengers: passengers("Asha")})

	assert.Nil(t, booking)
	assert.True(t, domain.IsConflict(err))
	assert.Empty(t, store.bookings)
	assert.Empty(t, store.passengers)
	assert.Empty(t, store.tickets)
}

func TestBookingService_CreateBooking_SeatsAndIdentifiers(t *testing.T) {
	store := newMemStore(testFlight("FL1", 10))
	service := newTestService(store)

	booking, err := service.CreateBooking(context.Background(), customer, CreateBookingInput{
		FlightID:   "FL1",
		Passengers: passengers("A", "B", "C", "D"),
	})

	require.NoError(t, err)
	assert.Equal(t, "BK000001", booking.ID)
	assert.Equal(t, fixedNow, booking.BookedAt)
	assert.Equal(t, store.flights["FL1"].DepartureTime, booking.DepartureDate)
	require.Len(t, booking.Tickets, 4)
	for i, ticket := range booking.Tickets {
		assert.Equal(t, i+1, ticket.SeatNumber)
		assert.Equal(t, domain.BookingStatusUpcoming, ticket.Status)
		assert.Equal(t, booking.ID, ticket.BookingID)
	}
	assert.Equal(t, "TKT000001", booking.Tickets[0].ID)
	assert.Equal(t, "PSG000004", booking.Tickets[3].PassengerID)
	assert.Equal(t, 6, booking.Flight.AvailableSeats)
}

func TestBookingService_CreateBooking_RoundTrip(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store)
	ctx := context.Background()

	created, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})
	require.NoError(t, err)

	fetched, err := service.GetBooking(ctx, customer, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Status, fetched.Status)
	require.Len(t, fetched.Tickets, len(created.Tickets))
	for i := range created.Tickets {
		assert.Equal(t, created.Tickets[i].SeatNumber, fetched.Tickets[i].SeatNumber)
		assert.Equal(t, created.Tickets[i].Passenger.Name, fetched.Tickets[i].Passenger.Name)
		assert.Equal(t, created.Tickets[i].Passenger.Age, fetched.Tickets[i].Passenger.Age)
	}
	assert.Equal(t, "FL1", fetched.Flight.ID)
}

func TestBookingService_CreateBooking_ValidationErrors(t *testing.T) {
	service := newTestService(newMemStore(testFlight("FL1", 5)))

	testCases := []struct {
		name        string
		input       CreateBookingInput
		expectedErr string
	}{
		{
			name:        "No passengers",
			input:       CreateBookingInput{FlightID: "FL1"},
			expectedErr: "at least one passenger is required",
		},
		{
			name:        "Missing flight id",
			input:       CreateBookingInput{Passengers: passengers("Asha")},
			expectedErr: "flightId",
		},
		{
			name:        "Blank passenger name",
			input:       CreateBookingInput{FlightID: "FL1", Passengers: []PassengerInput{{Name: "  ", Age: 20}}},
			expectedErr: "passengers[0].name",
		},
		{
			name:        "Negative age",
			input:       CreateBookingInput{FlightID: "FL1", Passengers: []PassengerInput{{Name: "Asha", Age: -1}}},
			expectedErr: "passengers[0].age",
		},
		{
			name:        "Age above limit",
			input:       CreateBookingInput{FlightID: "FL1", Passengers: []PassengerInput{{Name: "Asha", Age: 30}, {Name: "Old", Age: 131}}},
			expectedErr: "passengers[1].age",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			booking, err := service.CreateBooking(context.Background(), customer, tc.input)
			assert.Nil(t, booking)
			assert.True(t, domain.IsValidation(err))
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestBookingService_CreateBooking_FlightState(t *testing.T) {
	inactive := testFlight("FL2", 5)
	inactive.Status = domain.FlightStatusInactive
	service := newTestService(newMemStore(inactive))
	ctx := context.Background()

	_, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL404", Passengers: passengers("Asha")})
	assert.True(t, domain.IsNotFound(err))

	_, err = service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL2", Passengers: passengers("Asha")})
	assert.True(t, domain.IsConflict(err))
}

func TestBookingService_CreateBooking_RollsBackOnPartialFailure(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	store.failTicketAt = 2
	service := newTestService(store)

	_, err := service.CreateBooking(context.Background(), customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("A", "B", "C")})

	assert.ErrorIs(t, err, errTicketWrite)
	assert.Empty(t, store.bookings)
	assert.Empty(t, store.passengers)
	assert.Empty(t, store.tickets)
	assert.Equal(t, 5, availability(t, store, "FL1"))
}

func TestBookingService_CancelBooking(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store)
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha")})
	require.NoError(t, err)

	_, err = service.CancelBooking(ctx, other, booking.ID)
	assert.True(t, domain.IsNotFound(err), "other users must not see the booking")

	_, err = service.CancelBooking(ctx, customer, "BK999999")
	assert.True(t, domain.IsNotFound(err))

	_, err = service.CancelBooking(ctx, customer, booking.ID)
	require.NoError(t, err)

	_, err = service.CancelBooking(ctx, customer, booking.ID)
	assert.True(t, domain.IsConflict(err))
	assert.EqualError(t, err, "booking is already cancelled")

	assert.Equal(t, domain.BookingStatusCancelled, store.bookings[booking.ID].Status)
	tickets := store.ticketsOf(booking.ID)
	require.Len(t, tickets, 1)
	for _, ticket := range tickets {
		assert.Equal(t, domain.BookingStatusCancelled, ticket.Status)
	}
}

func TestBookingService_CancelBooking_Completed(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store)
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha")})
	require.NoError(t, err)
	_, err = service.UpdateBookingStatus(ctx, admin, booking.ID, domain.BookingStatusCompleted, nil)
	require.NoError(t, err)

	_, err = service.CancelBooking(ctx, customer, booking.ID)

	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, domain.BookingStatusCompleted, store.bookings[booking.ID].Status)
}

func TestBookingService_UpdateBookingStatus(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store)
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})
	require.NoError(t, err)

	_, err = service.UpdateBookingStatus(ctx, customer, booking.ID, domain.BookingStatusConfirmed, nil)
	assert.True(t, domain.IsForbidden(err))

	_, err = service.UpdateBookingStatus(ctx, admin, booking.ID, "BOARDED", nil)
	assert.True(t, domain.IsValidation(err))

	remark := "paid at counter"
	updated, err := service.UpdateBookingStatus(ctx, admin, booking.ID, domain.BookingStatusConfirmed, &remark)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, remark, updated.Remark)
	for _, ticket := range updated.Tickets {
		assert.Equal(t, domain.BookingStatusConfirmed, ticket.Status)
	}

	_, err = service.UpdateBookingStatus(ctx, admin, booking.ID, domain.BookingStatusUpcoming, nil)
	assert.True(t, domain.IsConflict(err))

	note := "checked again"
	same, err := service.UpdateBookingStatus(ctx, admin, booking.ID, domain.BookingStatusConfirmed, &note)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, same.Status)
	assert.Equal(t, note, same.Remark)
}

func TestBookingService_UpdateBookingStatus_Override(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store, WithAllowAnyStatusOverride(true))
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha")})
	require.NoError(t, err)
	_, err = service.CancelBooking(ctx, customer, booking.ID)
	require.NoError(t, err)

	updated, err := service.UpdateBookingStatus(ctx, admin, booking.ID, domain.BookingStatusUpcoming, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusUpcoming, updated.Status)
	assert.Equal(t, 4, availability(t, store, "FL1"))
}

func TestBookingService_UpdateBookingStatus_ReactivationRechecksCapacity(t *testing.T) {
	store := newMemStore(testFlight("FL1", 2))
	service := newTestService(store)
	ctx := context.Background()

	first, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})
	require.NoError(t, err)
	_, err = service.UpdateBookingStatus(ctx, admin, first.ID, domain.BookingStatusCancellationRequested, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, availability(t, store, "FL1"))

	_, err = service.CreateBooking(ctx, other, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Meera")})
	require.NoError(t, err)

	_, err = service.UpdateBookingStatus(ctx, admin, first.ID, domain.BookingStatusUpcoming, nil)

	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, domain.BookingStatusCancellationRequested, store.bookings[first.ID].Status)
	assert.Equal(t, 1, availability(t, store, "FL1"))
}

func TestBookingService_GetBooking_Visibility(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	service := newTestService(store)
	ctx := context.Background()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha")})
	require.NoError(t, err)

	_, err = service.GetBooking(ctx, other, booking.ID)
	assert.True(t, domain.IsNotFound(err))

	_, err = service.GetBooking(ctx, admin, booking.ID)
	assert.True(t, domain.IsNotFound(err), "admins read other users' bookings through the admin listing")

	fetched, err := service.GetBooking(ctx, customer, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, fetched.ID)
}

func TestBookingService_ListBookings(t *testing.T) {
	store := newMemStore(testFlight("FL1", 10))
	service := newTestService(store)
	ctx := context.Background()

	for _, p := range []domain.Principal{customer, customer, other} {
		_, err := service.CreateBooking(ctx, p, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha")})
		require.NoError(t, err)
	}

	mine, total, err := service.ListUserBookings(ctx, customer, domain.BookingFilter{UserID: "U2"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, b := range mine {
		assert.Equal(t, "U1", b.UserID)
		assert.Len(t, b.Tickets, 1)
	}

	_, _, err = service.ListAllBookings(ctx, customer, domain.BookingFilter{})
	assert.True(t, domain.IsForbidden(err))

	all, total, err := service.ListAllBookings(ctx, admin, domain.BookingFilter{Page: domain.Page{Number: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 2)

	_, _, err = service.ListAllBookings(ctx, admin, domain.BookingFilter{Status: "LOST"})
	assert.True(t, domain.IsValidation(err))
}

func TestBookingService_CompleteDeparted(t *testing.T) {
	store := newMemStore(testFlight("FL1", 10))
	service := newTestService(store)
	ctx := context.Background()

	past, err := service.CreateBooking(ctx, customer, CreateBookingInput{
		FlightID:      "FL1",
		Passengers:    passengers("Asha"),
		DepartureDate: fixedNow.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	today, err := service.CreateBooking(ctx, customer, CreateBookingInput{
		FlightID:      "FL1",
		Passengers:    passengers("Ravi"),
		DepartureDate: fixedNow.Add(-time.Hour),
	})
	require.NoError(t, err)

	completed, err := service.CompleteDeparted(ctx, fixedNow)

	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, past.ID, completed[0].ID)
	assert.Equal(t, domain.BookingStatusCompleted, store.bookings[past.ID].Status)
	assert.Equal(t, domain.BookingStatusUpcoming, store.bookings[today.ID].Status)
	assert.Equal(t, 8, availability(t, store, "FL1"))
}

func TestBookingService_PublishesEvents(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5))
	bookings, flights, sequences, tx := store.repos()
	producer := &MockProducer{}
	log, hook := test.NewNullLogger()
	service := NewBookingService(bookings, flights, sequences, tx, producer, "booking_topic",
		WithNotificationsTopic("notifications"), WithLogger(log), WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	isCreated := mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingCreated && e.BookingID == "BK000001" && e.Passengers == 2
	})
	producer.On("Publish", ctx, "booking_topic", "BK000001", isCreated).Return(nil).Once()
	producer.On("Publish", ctx, "notifications", "BK000001", isCreated).Return(errors.New("broker down")).Once()

	booking, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})

	require.NoError(t, err)
	assert.Equal(t, "BK000001", booking.ID)
	producer.AssertExpectations(t)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["topic"] == "notifications" {
			warned = true
		}
	}
	assert.True(t, warned, "publish failure should be logged")
}

func TestBookingService_NoEventOnFailure(t *testing.T) {
	store := newMemStore(testFlight("FL0", 0))
	bookings, flights, sequences, tx := store.repos()
	producer := &MockProducer{}
	service := NewBookingService(bookings, flights, sequences, tx, producer, "booking_topic")

	_, err := service.CreateBooking(context.Background(), customer, CreateBookingInput{FlightID: "FL0", Passengers: passengers("Asha")})

	assert.Error(t, err)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFlightDelete_WithOnlyInactiveBookings(t *testing.T) {
	store := newMemStore(testFlight("FL1", 5), testFlight("FL2", 5))
	service := newTestService(store)
	_, flightRepo, _, tx := store.repos()
	log, _ := test.NewNullLogger()
	catalogue := flights.NewFlightService(flightRepo, tx, log)
	ctx := context.Background()

	cancelled, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Asha", "Ravi")})
	require.NoError(t, err)
	_, err = service.CancelBooking(ctx, customer, cancelled.ID)
	require.NoError(t, err)
	requested, err := service.CreateBooking(ctx, other, CreateBookingInput{FlightID: "FL1", Passengers: passengers("Meera")})
	require.NoError(t, err)
	_, err = service.UpdateBookingStatus(ctx, admin, requested.ID, domain.BookingStatusCancellationRequested, nil)
	require.NoError(t, err)
	held, err := service.CreateBooking(ctx, customer, CreateBookingInput{FlightID: "FL2", Passengers: passengers("Asha")})
	require.NoError(t, err)

	require.NoError(t, catalogue.Delete(ctx, admin, "FL1"))
	assert.NotContains(t, store.flights, "FL1")
	assert.NotContains(t, store.bookings, cancelled.ID)
	assert.NotContains(t, store.bookings, requested.ID)
	assert.Len(t, store.tickets, 1)
	assert.Len(t, store.passengers, 1)

	err = catalogue.Delete(ctx, admin, "FL2")
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, store.flights, "FL2")
	assert.Contains(t, store.bookings, held.ID)
}
