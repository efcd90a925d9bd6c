package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Auth validates the HS256 bearer token and stores the caller's principal on the context.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || raw == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "No token provided!"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized!"})
			return
		}

		principal, ok := principalFromClaims(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized!"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func principalFromClaims(claims jwt.MapClaims) (domain.Principal, bool) {
	var id string
	switch v := claims["id"].(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		if sub, err := claims.GetSubject(); err == nil {
			id = sub
		}
	default:
		id = fmt.Sprint(v)
	}
	role, _ := claims["role"].(string)
	if id == "" {
		return domain.Principal{}, false
	}
	return domain.Principal{UserID: id, Role: domain.Role(role)}, true
}

// RequireRole rejects callers whose principal does not carry the role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": fmt.Sprintf("Require %s Role!", role)})
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// SetPrincipal stores p on the context. Used by tests and trusted internal callers.
func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(principalKey, p)
}
