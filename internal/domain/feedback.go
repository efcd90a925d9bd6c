package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	FlightID  string    `json:"flightId"`
	Value     int       `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type GrievanceStatus string

const (
	GrievanceStatusPending  GrievanceStatus = "PENDING"
	GrievanceStatusResolved GrievanceStatus = "RESOLVED"
	GrievanceStatusRejected GrievanceStatus = "REJECTED"
)

func (s GrievanceStatus) IsValid() bool {
	switch s {
	case GrievanceStatusPending, GrievanceStatusResolved, GrievanceStatusRejected:
		return true
	}
	return false
}

type Grievance struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	FlightID    string          `json:"flightId"`
	Subject     string          `json:"subject"`
	Description string          `json:"description"`
	Status      GrievanceStatus `json:"status"`
	Response    string          `json:"response,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type GrievanceFilter struct {
	Status GrievanceStatus
	Page   Page
}
