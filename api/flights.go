package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     logrus.FieldLogger
}

type searchQuery struct {
	Origin      string `form:"origin" binding:"required"`
	Destination string `form:"destination" binding:"required"`
	Date        string `form:"date" binding:"omitempty,isodate"`
	Passengers  int    `form:"passengers" binding:"omitempty,gte=1"`
}

type flightListQuery struct {
	pageQuery
	Status  string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Airline string `form:"airline"`
}

type createFlightRequest struct {
	ID            string    `json:"id" binding:"required"`
	AirlineID     string    `json:"airlineId" binding:"required"`
	Origin        string    `json:"origin" binding:"required,len=3"`
	Destination   string    `json:"destination" binding:"required,len=3"`
	DepartureTime time.Time `json:"departureTime" binding:"required"`
	ArrivalTime   time.Time `json:"arrivalTime" binding:"required"`
	Duration      string    `json:"duration"`
	TotalSeats    int       `json:"totalSeats" binding:"required,gte=1"`
	PriceCents    int64     `json:"priceCents" binding:"gte=0"`
	Status        string    `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type updateFlightRequest struct {
	AirlineID     *string    `json:"airlineId"`
	Origin        *string    `json:"origin" binding:"omitempty,len=3"`
	Destination   *string    `json:"destination" binding:"omitempty,len=3"`
	DepartureTime *time.Time `json:"departureTime"`
	ArrivalTime   *time.Time `json:"arrivalTime"`
	Duration      *string    `json:"duration"`
	TotalSeats    *int       `json:"totalSeats" binding:"omitempty,gte=1"`
	PriceCents    *int64     `json:"priceCents" binding:"omitempty,gte=0"`
	Status        *string    `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func NewFlightHandler(service flights.FlightUseCase, log logrus.FieldLogger) *FlightHandler {
	return &FlightHandler{service: service, log: log}
}

func (h *FlightHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	admin := mw.admin()

	router.GET("/search", h.search)
	router.GET("/:flightId", h.get)
	router.GET("/:flightId/availability", h.availability)

	router.GET("/admin/all", with(admin, h.list)...)
	router.GET("/admin/stats", with(admin, h.stats)...)
	router.POST("", with(admin, h.create)...)
	router.PUT("/:flightId", with(admin, h.update)...)
	router.DELETE("/:flightId", with(admin, h.delete)...)
}

func (h *FlightHandler) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	found, err := h.service.Search(c.Request.Context(), flights.SearchInput{
		Origin:      q.Origin,
		Destination: q.Destination,
		Date:        parseDate(q.Date),
		Passengers:  q.Passengers,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if found == nil {
		found = []domain.Flight{}
	}
	c.JSON(http.StatusOK, found)
}

func (h *FlightHandler) get(c *gin.Context) {
	flight, err := h.service.GetByID(c.Request.Context(), c.Param("flightId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) availability(c *gin.Context) {
	avail, err := h.service.AvailableSeats(c.Request.Context(), c.Param("flightId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *FlightHandler) list(c *gin.Context) {
	var q flightListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	page := q.page()
	found, total, err := h.service.List(c.Request.Context(), caller(c), domain.FlightFilter{
		Status:    domain.FlightStatus(q.Status),
		AirlineID: q.Airline,
		Page:      page,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("flights", found, total, page))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	flight, err := h.service.Create(c.Request.Context(), caller(c), flights.CreateFlightInput{
		ID:            req.ID,
		AirlineID:     req.AirlineID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		Duration:      req.Duration,
		TotalSeats:    req.TotalSeats,
		PriceCents:    req.PriceCents,
		Status:        domain.FlightStatus(req.Status),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"flight":  flight,
		"message": "Flight created successfully.",
	})
}

func (h *FlightHandler) update(c *gin.Context) {
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	input := flights.UpdateFlightInput{
		AirlineID:     req.AirlineID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		Duration:      req.Duration,
		TotalSeats:    req.TotalSeats,
		PriceCents:    req.PriceCents,
	}
	if req.Status != nil {
		status := domain.FlightStatus(*req.Status)
		input.Status = &status
	}

	flight, err := h.service.Update(c.Request.Context(), caller(c), c.Param("flightId"), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"flight":  flight,
		"message": "Flight updated successfully.",
	})
}

func (h *FlightHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), caller(c), c.Param("flightId")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Flight deleted successfully."})
}

func (h *FlightHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
