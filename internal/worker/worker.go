package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

type EventSource interface {
	ConsumeBookingEvents(ctx context.Context, handler func(context.Context, kafka.BookingEvent) error) error
}

type Notifier interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

type Completer interface {
	CompleteDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

// Worker delivers booking notifications and periodically completes departed bookings.
type Worker struct {
	events    EventSource
	notifier  Notifier
	completer Completer
	scheduler gocron.Scheduler
	interval  time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

func New(events EventSource, notifier Notifier, completer Completer, interval time.Duration, log logrus.FieldLogger) (*Worker, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Worker{
		events:    events,
		notifier:  notifier,
		completer: completer,
		scheduler: scheduler,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}, nil
}

// Run schedules the completion sweep, starting immediately, and consumes booking events
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.completeDeparted, ctx),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule completion sweep: %w", err)
	}
	w.scheduler.Start()
	defer func() {
		if err := w.scheduler.Shutdown(); err != nil {
			w.log.WithError(err).Warn("scheduler shutdown")
		}
	}()

	w.log.WithField("interval", w.interval.String()).Info("worker started")

	if w.events == nil {
		<-ctx.Done()
		return nil
	}
	err = w.events.ConsumeBookingEvents(ctx, w.notify)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume booking events: %w", err)
	}
	return nil
}

func (w *Worker) notify(ctx context.Context, event kafka.BookingEvent) error {
	if err := w.notifier.Send(ctx, event); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.WithError(err).WithField("booking_id", event.BookingID).Warn("notification failed")
	}
	return nil
}

func (w *Worker) completeDeparted(ctx context.Context) {
	completed, err := w.completer.CompleteDeparted(ctx, w.now())
	if err != nil {
		w.log.WithError(err).Error("complete departed bookings")
		return
	}
	w.log.WithField("count", len(completed)).Debug("completion sweep finished")
}
