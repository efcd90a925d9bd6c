package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	customersvc "github.com/Domenick1991/flightbooking/internal/service/customer"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProfileHandler serves customer profiles, travel history and stats.
type ProfileHandler struct {
	service customersvc.CustomerUseCase
	log     logrus.FieldLogger
}

type profileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=120"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone" binding:"omitempty,max=32"`
	City  *string `json:"city" binding:"omitempty,max=80"`
}

func (r profileRequest) input() customersvc.ProfileInput {
	return customersvc.ProfileInput{Name: r.Name, Email: r.Email, Phone: r.Phone, City: r.City}
}

type customerListQuery struct {
	pageQuery
	Search string `form:"search" binding:"omitempty,max=100"`
}

func NewProfileHandler(service customersvc.CustomerUseCase, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{service: service, log: log}
}

// Register mounts the caller's own routes.
func (h *ProfileHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	auth := mw.authenticated()

	router.GET("/profile", with(auth, h.profile)...)
	router.PUT("/profile", with(auth, h.updateProfile)...)
	router.GET("/flight-history", with(auth, h.flightHistory)...)
	router.GET("/stats", with(auth, h.stats)...)
}

// RegisterAdmin mounts customer administration.
func (h *ProfileHandler) RegisterAdmin(router *gin.RouterGroup, mw Middlewares) {
	admin := mw.admin()

	router.GET("/customers", with(admin, h.listCustomers)...)
	router.PUT("/customers/:userId", with(admin, h.updateCustomer)...)
}

func (h *ProfileHandler) profile(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	profile, created, err := h.service.UpdateProfile(c.Request.Context(), caller(c), req.input())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"profile": profile, "message": "Profile created successfully."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "message": "Profile updated successfully."})
}

func (h *ProfileHandler) flightHistory(c *gin.Context) {
	history, err := h.service.FlightHistory(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if history == nil {
		history = []domain.FlightHistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"flights": history})
}

func (h *ProfileHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ProfileHandler) listCustomers(c *gin.Context) {
	var q customerListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	page := q.page()
	customers, total, err := h.service.ListCustomers(c.Request.Context(), caller(c), domain.CustomerFilter{Search: q.Search, Page: page})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("customers", customers, total, page))
}

func (h *ProfileHandler) updateCustomer(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	profile, err := h.service.UpdateCustomer(c.Request.Context(), caller(c), c.Param("userId"), req.input())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "message": "Customer updated successfully."})
}
