package api

import "github.com/gin-gonic/gin"

// Middlewares are the guards handlers attach to their routes. Nil entries are skipped.
type Middlewares struct {
	Auth      gin.HandlerFunc
	Admin     gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func (m Middlewares) authenticated() []gin.HandlerFunc {
	return chain(m.Auth)
}

func (m Middlewares) admin() []gin.HandlerFunc {
	return chain(m.Auth, m.Admin)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// with appends the route handler to the guards.
func with(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(guards[:len(guards):len(guards)], h)
}
