package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/feedback"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CustomerHandler serves the caller's own ratings and grievances.
type CustomerHandler struct {
	service feedback.FeedbackUseCase
	log     logrus.FieldLogger
}

type ratingRequest struct {
	FlightID string `json:"flightId" binding:"required"`
	Rating   int    `json:"rating" binding:"required,gte=1,lte=5"`
	Feedback string `json:"feedback"`
}

type grievanceRequest struct {
	FlightID    string `json:"flightId" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type grievanceListQuery struct {
	pageQuery
	Status string `form:"status" binding:"omitempty,oneof=PENDING RESOLVED REJECTED"`
}

func (q grievanceListQuery) filter() domain.GrievanceFilter {
	return domain.GrievanceFilter{Status: domain.GrievanceStatus(q.Status), Page: q.page()}
}

func NewCustomerHandler(service feedback.FeedbackUseCase, log logrus.FieldLogger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

func (h *CustomerHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	auth := mw.authenticated()

	router.POST("/rating", with(auth, h.submitRating)...)
	router.GET("/ratings", with(auth, h.listRatings)...)
	router.POST("/grievance", with(auth, h.submitGrievance)...)
	router.GET("/grievances", with(auth, h.listGrievances)...)
}

func (h *CustomerHandler) submitRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	rating, created, err := h.service.SubmitRating(c.Request.Context(), caller(c), feedback.RatingInput{
		FlightID: req.FlightID,
		Value:    req.Rating,
		Comment:  req.Feedback,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{"rating": rating, "message": "Rating submitted successfully."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": rating, "message": "Rating updated successfully."})
}

func (h *CustomerHandler) listRatings(c *gin.Context) {
	ratings, err := h.service.ListRatings(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	c.JSON(http.StatusOK, ratings)
}

func (h *CustomerHandler) submitGrievance(c *gin.Context) {
	var req grievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	grievance, err := h.service.SubmitGrievance(c.Request.Context(), caller(c), feedback.GrievanceInput{
		FlightID:    req.FlightID,
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"grievance": grievance, "message": "Grievance submitted successfully."})
}

func (h *CustomerHandler) listGrievances(c *gin.Context) {
	var q grievanceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	filter := q.filter()
	grievances, total, err := h.service.ListGrievances(c.Request.Context(), caller(c), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("grievances", grievances, total, filter.Page))
}
