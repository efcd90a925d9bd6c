package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/middleware"
	"github.com/Domenick1991/flightbooking/internal/ratelimit"
	"github.com/Domenick1991/flightbooking/internal/service/airline"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/customer"
	"github.com/Domenick1991/flightbooking/internal/service/feedback"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const swaggerDocURL = "/swagger/bookings.swagger.json"

// Deps are the services and infrastructure the servers expose.
type Deps struct {
	Flights   flights.FlightUseCase
	Bookings  booking.BookingUseCase
	Feedback  feedback.FeedbackUseCase
	Airlines  airline.AirlineUseCase
	Customers customer.CustomerUseCase
	Limiter   ratelimit.Limiter
	Log       logrus.FieldLogger
}

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
}

// Run starts the gRPC health server and the HTTP API, and blocks until ctx is canceled
// or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s := newServers(cfg, deps)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	deps.Log.WithFields(logrus.Fields{
		"http": cfg.HTTP.Address,
		"grpc": cfg.GRPC.Address,
	}).Info("servers started")

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		deps.Log.Info("shutting down")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, deps Deps) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: httpSrv,
	}
}

// NewRouter wires the HTTP API onto a gin engine.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	api.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Log), cors.New(corsConfig(cfg.HTTP)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocURL))))
	}

	mw := api.Middlewares{
		Auth:  middleware.Auth(cfg.Auth.JWTSecret),
		Admin: middleware.RequireRole(domain.RoleAdmin),
	}
	if cfg.RateLimit.Enabled && deps.Limiter != nil {
		mw.RateLimit = middleware.RateLimit(deps.Limiter, "bookings", deps.Log)
	}

	group := router.Group("/api")
	api.NewFlightHandler(deps.Flights, deps.Log).Register(group.Group("/flights"), mw)
	api.NewBookingHandler(deps.Bookings, deps.Log).Register(group.Group("/bookings"), mw)
	api.NewCustomerHandler(deps.Feedback, deps.Log).Register(group.Group("/customer"), mw)
	api.NewAdminHandler(deps.Feedback, deps.Log).Register(group.Group("/admin"), mw)
	api.NewAirlineHandler(deps.Airlines, deps.Log).Register(group.Group("/admin/airlines"), mw)

	profiles := api.NewProfileHandler(deps.Customers, deps.Log)
	profiles.Register(group.Group("/customer"), mw)
	profiles.RegisterAdmin(group.Group("/admin"), mw)

	return router
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	cc.ExposeHeaders = []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	if len(cfg.CORSOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.CORSOrigins
	}
	return cc
}
