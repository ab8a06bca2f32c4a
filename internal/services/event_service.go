package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docaudit/internal/config"
	"docaudit/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventService publishes audit lifecycle events to Kafka for downstream
// consumers (reporting, retention). Delivery is not part of the upload
// request's success: a publish failure is logged by the caller, not
// surfaced to the user.
type EventService struct {
	writer *kafka.Writer
}

// NewEventService returns nil when no brokers are configured; the audit
// pipeline runs without event publishing in that case.
func NewEventService(cfg *config.KafkaConfig) *EventService {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	return &EventService{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// PublishAuditCompleted emits one event per finished audit, keyed by
// username so a user's events stay ordered within a partition.
func (s *EventService) PublishAuditCompleted(ctx context.Context, event models.AuditCompletedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Username),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

func (s *EventService) Close() error {
	return s.writer.Close()
}
