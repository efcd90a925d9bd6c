package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/feedback"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	feedback feedback.FeedbackUseCase
	log      logrus.FieldLogger
}

type respondRequest struct {
	Response string `json:"response" binding:"required"`
	Status   string `json:"status" binding:"omitempty,oneof=RESOLVED REJECTED"`
}

func NewAdminHandler(feedback feedback.FeedbackUseCase, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{feedback: feedback, log: log}
}

func (h *AdminHandler) Register(router *gin.RouterGroup, mw Middlewares) {
	admin := mw.admin()

	router.GET("/grievances", with(admin, h.listGrievances)...)
	router.PUT("/grievances/:grievanceId/respond", with(admin, h.respond)...)
}

func (h *AdminHandler) listGrievances(c *gin.Context) {
	var q grievanceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	filter := q.filter()
	grievances, total, err := h.feedback.ListAllGrievances(c.Request.Context(), caller(c), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paginated("grievances", grievances, total, filter.Page))
}

func (h *AdminHandler) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}

	grievance, err := h.feedback.RespondToGrievance(c.Request.Context(), caller(c), c.Param("grievanceId"), feedback.ResponseInput{
		Response: req.Response,
		Status:   domain.GrievanceStatus(req.Status),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grievance": grievance, "message": "Response submitted successfully."})
}
