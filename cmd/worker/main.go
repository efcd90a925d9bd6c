package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/notification"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/worker"
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

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(db),
		repository.NewFlightRepository(db),
		repository.NewSequenceRepository(db),
		repository.NewTxManager(db),
		kafka.RetryingProducer{Producer: producer, Attempts: cfg.Kafka.PublishAttempts},
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLogger(log),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
	defer consumer.Close()

	w, err := worker.New(
		consumer,
		notification.NewSender(log),
		bookingService,
		time.Duration(cfg.Worker.CompletionSweepMinutes)*time.Minute,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("create worker")
	}

	if err := w.Run(ctx); err != nil {
		log.WithError(err).Error("worker stopped")
		return
	}
	log.Info("worker stopped")
}
