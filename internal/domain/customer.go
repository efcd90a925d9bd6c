package domain

import "time"

// Customer is the profile kept for a customer account. UserID is the token subject.
type Customer struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CustomerFilter struct {
	Search string
	Page   Page
}

type CustomerStats struct {
	TotalBookings     int              `json:"totalBookings"`
	CompletedBookings int              `json:"completedBookings"`
	TotalRatings      int              `json:"totalRatings"`
	TotalGrievances   int              `json:"totalGrievances"`
	FavoriteAirlines  []AirlineFlights `json:"favoriteAirlines"`
}

// FlightHistoryEntry is a travelled booking with the rating the customer gave the flight.
type FlightHistoryEntry struct {
	Booking Booking `json:"booking"`
	Rating  *Rating `json:"rating,omitempty"`
}
