package domain

import "time"

type AirlineStatus string

const (
	AirlineStatusActive   AirlineStatus = "ACTIVE"
	AirlineStatusInactive AirlineStatus = "INACTIVE"
)

func (s AirlineStatus) IsValid() bool {
	return s == AirlineStatusActive || s == AirlineStatusInactive
}

type Airline struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	City          string        `json:"city,omitempty"`
	State         string        `json:"state,omitempty"`
	Address       string        `json:"address,omitempty"`
	FleetSize     int           `json:"fleetSize"`
	EstablishedOn *time.Time    `json:"establishedOn,omitempty"`
	Status        AirlineStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type AirlineFilter struct {
	Status AirlineStatus
	Page   Page
}
