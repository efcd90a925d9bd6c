package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BookingHandler struct {
	service booking.BookingUseCase
	log     logrus.FieldLogger
}

type passengerRequest struct {
	Name     string `json:"name" binding:"required"`
	Age      *int   `json:"age" binding:"required,gte=0,lte=130"`
	Gender   string `json:"gender"`
	Relation string `json:"relation"`
}

type createBookingRequest struct {
	FlightID      string             `json:"flightId" binding:"required"`
	Passengers    []passengerRequest `json:"passengers" binding:"required,min=1,dive"`
	DepartureDate string             `json:"departureDate" binding:"omitempty,isodate"`
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required,bookingstatus"`
	Remark *string `json:"remark"`
}

type bookingListQuery struct {
	pageQuery
	Status string `form:"status" binding:"omitempty,bookingstatus"`
	Flight string `form:"flight"`
	User   string `form:"user"`
}

func NewBookingHandler(service booking.BookingUseCase, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	auth := mw.authenticated()
	admin := mw.admin()

	router.POST("", with(chain(mw.Auth, mw.RateLimit), h.create)...)
	router.GET("/user", with(auth, h.listUser)...)
	router.GET("/:bookingId", with(auth, h.get)...)
	router.PUT("/:bookingId/cancel", with(auth, h.cancel)...)

	router.GET("/admin/all", with(admin, h.listAll)...)
	router.PUT("/admin/:bookingId/status", with(admin, h.updateStatus)...)
	router.GET("/admin/stats", with(admin, h.stats)...)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	input := booking.CreateBookingInput{
		FlightID:   req.FlightID,
		Passengers: make([]booking.PassengerInput, 0, len(req.Passengers)),
	}
	if d := parseDate(req.DepartureDate); d != nil {
		input.DepartureDate = *d
	}
	for _, p := range req.Passengers {
		input.Passengers = append(input.Passengers, booking.PassengerInput{
			Name:     p.Name,
			Age:      *p.Age,
			Gender:   p.Gender,
			Relation: p.Relation,
		})
	}

	b, err := h.service.CreateBooking(c.Request.Context(), caller(c), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	tickets := b.Tickets
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	c.JSON(http.StatusCreated, gin.H{
		"booking": b,
		"tickets": tickets,
		"message": "Booking created successfully.",
	})
}

func (h *BookingHandler) listUser(c *gin.Context) {
	var q bookingListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	page := q.page()
	bookings, total, err := h.service.ListUserBookings(c.Request.Context(), caller(c), domain.BookingFilter{
		Status: domain.BookingStatus(q.Status),
		Page:   page,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("bookings", bookings, total, page))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), caller(c), c.Param("bookingId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), caller(c), c.Param("bookingId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking": b,
		"message": "Booking cancelled successfully.",
	})
}

func (h *BookingHandler) listAll(c *gin.Context) {
	var q bookingListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	page := q.page()
	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), caller(c), domain.BookingFilter{
		Status:   domain.BookingStatus(q.Status),
		FlightID: q.Flight,
		UserID:   q.User,
		Page:     page,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("bookings", bookings, total, page))
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	b, err := h.service.UpdateBookingStatus(c.Request.Context(), caller(c), c.Param("bookingId"), domain.BookingStatus(req.Status), req.Remark)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking": b,
		"message": "Booking status updated successfully.",
	})
}

func (h *BookingHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
