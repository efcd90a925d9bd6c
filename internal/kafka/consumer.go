package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Consumer struct {
	reader *kafka.Reader
	log    logrus.FieldLogger
}

func NewConsumer(brokers []string, groupID, topic string, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads messages until ctx is cancelled. A handler error stops the loop.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}

// ConsumeBookingEvents decodes each message as a BookingEvent. Malformed payloads
// are logged and skipped.
func (c *Consumer) ConsumeBookingEvents(ctx context.Context, handler func(context.Context, BookingEvent) error) error {
	return c.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		event, err := DecodeBookingEvent(msg.Value)
		if err != nil {
			c.log.WithError(err).WithField("offset", msg.Offset).Warn("skipping malformed booking event")
			return nil
		}
		return handler(ctx, event)
	})
}

func DecodeBookingEvent(data []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if event.Type == "" || event.BookingID == "" {
		return BookingEvent{}, fmt.Errorf("decode booking event: missing type or booking id")
	}
	return event, nil
}
