package api

import (
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/middleware"
	"github.com/gin-gonic/gin"
)

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,gte=1,lte=100000"`
	Limit int `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

func (q pageQuery) page() domain.Page {
	return domain.Page{Number: q.Page, Limit: q.Limit}.Normalize()
}

// paginated renders the list envelope {<key>, total, page, totalPages}.
func paginated[T any](key string, items []T, total int, page domain.Page) gin.H {
	if items == nil {
		items = []T{}
	}
	return gin.H{
		key:          items,
		"total":      total,
		"page":       page.Number,
		"totalPages": page.TotalPages(total),
	}
}

// caller returns the principal set by the auth middleware. Routes without it get the
// zero principal, which the services reject.
func caller(c *gin.Context) domain.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}
