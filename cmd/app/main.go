package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/ratelimit"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/airline"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/customer"
	"github.com/Domenick1991/flightbooking/internal/service/feedback"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.WithError(err).Warn("kafka unreachable, booking events will be retried per request")
	}
	cancel()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		client := ratelimit.NewRedisClient(cfg.Redis)
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimit)
	}

	tx := repository.NewTxManager(db)
	flightRepo := repository.NewFlightRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	sequences := repository.NewSequenceRepository(db)
	airlineRepo := repository.NewAirlineRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	flightService := flights.NewFlightService(flightRepo, tx, log)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		sequences,
		tx,
		kafka.RetryingProducer{Producer: producer, Attempts: cfg.Kafka.PublishAttempts},
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithAllowAnyStatusOverride(cfg.Booking.AllowAnyStatusOverride),
		booking.WithLogger(log),
	)
	feedbackService := feedback.NewFeedbackService(feedbackRepo, bookingRepo, flightRepo, sequences, tx, log)
	airlineService := airline.NewAirlineService(airlineRepo, tx, log)
	customerService := customer.NewCustomerService(customerRepo, bookingRepo, tx, log)

	err = bootstrap.Run(ctx, cfg, bootstrap.Deps{
		Flights:   flightService,
		Bookings:  bookingService,
		Feedback:  feedbackService,
		Airlines:  airlineService,
		Customers: customerService,
		Limiter:   limiter,
		Log:       log,
	})
	if err != nil {
		log.WithError(err).Error("server error")
		return
	}
	log.Info("server stopped")
}
