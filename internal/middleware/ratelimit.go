package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightbooking/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimit throttles a route per caller, keyed by user id or client IP. Limiter
// errors let the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if p, ok := PrincipalFrom(c); ok {
			caller = "user:" + p.UserID
		}

		res, err := limiter.Allow(c.Request.Context(), scope+":"+caller)
		if err != nil {
			log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, please try again later."})
			return
		}
		c.Next()
	}
}
