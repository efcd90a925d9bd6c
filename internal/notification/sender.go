package notification

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender delivers booking notifications to customers. Delivery is a structured log
// line until a real channel is configured.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event":      event.Type,
		"user_id":    event.UserID,
		"booking_id": event.BookingID,
	}).Info(Message(event))
	return nil
}

func Message(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s on flight %s is confirmed for %d passenger(s).", event.BookingID, event.FlightID, event.Passengers)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s on flight %s has been cancelled.", event.BookingID, event.FlightID)
	case kafka.EventBookingCompleted:
		return fmt.Sprintf("Thank you for flying with us. Booking %s is completed.", event.BookingID)
	default:
		return fmt.Sprintf("Booking %s is now %s.", event.BookingID, event.Status)
	}
}
