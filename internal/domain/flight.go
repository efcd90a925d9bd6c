package domain

import "time"

type FlightStatus string

const (
	FlightStatusActive   FlightStatus = "ACTIVE"
	FlightStatusInactive FlightStatus = "INACTIVE"
)

func (s FlightStatus) IsValid() bool {
	return s == FlightStatusActive || s == FlightStatusInactive
}

type Flight struct {
	ID             string       `json:"id"`
	AirlineID      string       `json:"airlineId"`
	AirlineName    string       `json:"airlineName,omitempty"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	DepartureTime  time.Time    `json:"departureTime"`
	ArrivalTime    time.Time    `json:"arrivalTime"`
	Duration       string       `json:"duration,omitempty"`
	TotalSeats     int          `json:"totalSeats"`
	BookedSeats    int          `json:"bookedSeats"`
	AvailableSeats int          `json:"availableSeats"`
	PriceCents     int64        `json:"priceCents"`
	Status         FlightStatus `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// SetBooked records the booked seat count and derives AvailableSeats from it.
func (f *Flight) SetBooked(booked int) {
	f.BookedSeats = booked
	f.AvailableSeats = f.TotalSeats - booked
}

type Availability struct {
	FlightID       string `json:"flightId"`
	TotalSeats     int    `json:"totalSeats"`
	BookedSeats    int    `json:"bookedSeats"`
	AvailableSeats int    `json:"availableSeats"`
}

type FlightSearch struct {
	Origin      string
	Destination string
	Date        *time.Time
}

type FlightFilter struct {
	Status    FlightStatus
	AirlineID string
	Page      Page
}

type FlightStats struct {
	Total     int              `json:"total"`
	Active    int              `json:"active"`
	Inactive  int              `json:"inactive"`
	ByAirline []AirlineFlights `json:"byAirline"`
}

type AirlineFlights struct {
	AirlineID   string `json:"airlineId"`
	AirlineName string `json:"airlineName"`
	Count       int    `json:"count"`
}
