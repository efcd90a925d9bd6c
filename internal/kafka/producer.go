package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingCancelled     = "booking_cancelled"
	EventBookingStatusUpdated = "booking_status_updated"
	EventBookingCompleted     = "booking_completed"
)

type BookingEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	FlightID   string    `json:"flight_id"`
	Status     string    `json:"status"`
	Passengers int       `json:"passengers"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	log     logrus.FieldLogger
}

func NewProducer(brokers []string, log logrus.FieldLogger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		log:     log,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}

	p.log.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("event published")
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		p.log.WithError(err).WithField("attempt", i+1).Warn("publish failed")

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("connect to kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("read partitions: %w", err)
	}

	p.log.WithField("partitions", len(partitions)).Info("connected to kafka")
	return nil
}

// RetryingProducer publishes through PublishWithRetry with a fixed attempt budget.
type RetryingProducer struct {
	*Producer
	Attempts int
}

func (r RetryingProducer) Publish(ctx context.Context, topic, key string, payload any) error {
	if r.Attempts <= 1 {
		return r.Producer.Publish(ctx, topic, key, payload)
	}
	return r.Producer.PublishWithRetry(ctx, topic, key, payload, r.Attempts)
}
