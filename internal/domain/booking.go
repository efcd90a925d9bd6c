package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusUpcoming              BookingStatus = "UPCOMING"
	BookingStatusConfirmed             BookingStatus = "CONFIRMED"
	BookingStatusCompleted             BookingStatus = "COMPLETED"
	BookingStatusCancelled             BookingStatus = "CANCELLED"
	BookingStatusCancellationRequested BookingStatus = "CANCELLATION_REQUESTED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusUpcoming: {
		BookingStatusConfirmed,
		BookingStatusCompleted,
		BookingStatusCancelled,
		BookingStatusCancellationRequested,
	},
	BookingStatusConfirmed: {
		BookingStatusCompleted,
		BookingStatusCancelled,
		BookingStatusCancellationRequested,
	},
	BookingStatusCancellationRequested: {
		BookingStatusCancelled,
		BookingStatusUpcoming,
	},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

// ActiveBookingStatuses hold seats on their flight.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusUpcoming,
	BookingStatusConfirmed,
	BookingStatusCompleted,
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveBookingStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return !ok || len(next) == 0
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", ValidationError{Field: "status", Msg: fmt.Sprintf("unknown booking status %q", s)}
	}
	return status, nil
}

type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	FlightID      string        `json:"flightId"`
	BookedAt      time.Time     `json:"bookedAt"`
	DepartureDate time.Time     `json:"departureDate"`
	Status        BookingStatus `json:"status"`
	Remark        string        `json:"remark,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	Flight  *Flight  `json:"flight,omitempty"`
	Tickets []Ticket `json:"tickets,omitempty"`
}

type Passenger struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender,omitempty"`
	Relation  string    `json:"relation,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ticket is one passenger's seat within a booking. Its status mirrors the booking.
type Ticket struct {
	ID          string        `json:"id"`
	BookingID   string        `json:"bookingId"`
	PassengerID string        `json:"passengerId"`
	SeatNumber  int           `json:"seatNumber"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`

	Passenger *Passenger `json:"passenger,omitempty"`
}

// NextSeat returns the smallest positive seat number not present in used.
func NextSeat(used []int) int {
	taken := make(map[int]struct{}, len(used))
	for _, n := range used {
		taken[n] = struct{}{}
	}
	seat := 1
	for {
		if _, ok := taken[seat]; !ok {
			return seat
		}
		seat++
	}
}

type BookingFilter struct {
	Status   BookingStatus
	FlightID string
	UserID   string
	Page     Page
}

type BookingStats struct {
	Total           int             `json:"total"`
	ByStatus        map[string]int  `json:"byStatus"`
	RevenueByFlight []FlightRevenue `json:"revenueByFlight"`
}

type FlightRevenue struct {
	FlightID     string `json:"flightId"`
	BookingCount int    `json:"bookingCount"`
	RevenueCents int64  `json:"revenueCents"`
}
