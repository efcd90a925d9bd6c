package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/airline"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AirlineHandler serves airline administration.
type AirlineHandler struct {
	service airline.AirlineUseCase
	log     logrus.FieldLogger
}

type airlineListQuery struct {
	pageQuery
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type createAirlineRequest struct {
	ID            string `json:"id" binding:"required,max=8"`
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone"`
	City          string `json:"city"`
	State         string `json:"state"`
	Address       string `json:"address"`
	FleetSize     int    `json:"fleetSize" binding:"gte=0"`
	EstablishedOn string `json:"establishedOn" binding:"omitempty,isodate"`
	Status        string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

type updateAirlineRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Phone         *string `json:"phone"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	Address       *string `json:"address"`
	FleetSize     *int    `json:"fleetSize" binding:"omitempty,gte=0"`
	EstablishedOn *string `json:"establishedOn" binding:"omitempty,isodate"`
	Status        *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func NewAirlineHandler(service airline.AirlineUseCase, log logrus.FieldLogger) *AirlineHandler {
	return &AirlineHandler{service: service, log: log}
}

func (h *AirlineHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	admin := mw.admin()

	router.POST("", with(admin, h.create)...)
	router.GET("", with(admin, h.list)...)
	router.GET("/:airlineId", with(admin, h.get)...)
	router.PUT("/:airlineId", with(admin, h.update)...)
	router.DELETE("/:airlineId", with(admin, h.delete)...)
}

func (h *AirlineHandler) create(c *gin.Context) {
	var req createAirlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), caller(c), airline.CreateAirlineInput{
		ID:            req.ID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		City:          req.City,
		State:         req.State,
		Address:       req.Address,
		FleetSize:     req.FleetSize,
		EstablishedOn: parseDate(req.EstablishedOn),
		Status:        domain.AirlineStatus(req.Status),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"airline": created, "message": "Airline created successfully."})
}

func (h *AirlineHandler) list(c *gin.Context) {
	var q airlineListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	page := q.page()
	airlines, total, err := h.service.List(c.Request.Context(), caller(c), domain.AirlineFilter{
		Status: domain.AirlineStatus(q.Status),
		Page:   page,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("airlines", airlines, total, page))
}

func (h *AirlineHandler) get(c *gin.Context) {
	found, err := h.service.Get(c.Request.Context(), caller(c), c.Param("airlineId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *AirlineHandler) update(c *gin.Context) {
	var req updateAirlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	input := airline.UpdateAirlineInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		City:      req.City,
		State:     req.State,
		Address:   req.Address,
		FleetSize: req.FleetSize,
	}
	if req.EstablishedOn != nil {
		input.EstablishedOn = parseDate(*req.EstablishedOn)
	}
	if req.Status != nil {
		status := domain.AirlineStatus(*req.Status)
		input.Status = &status
	}

	updated, err := h.service.Update(c.Request.Context(), caller(c), c.Param("airlineId"), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"airline": updated, "message": "Airline updated successfully."})
}

func (h *AirlineHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), caller(c), c.Param("airlineId")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Airline deleted successfully."})
}
