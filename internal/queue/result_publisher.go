package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/acme/call-dispatch/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ResultPublisher streams batch results to Kafka as they complete.
type ResultPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewResultPublisher constructs a publisher for the given topic.
func NewResultPublisher(k *Kafka, topic string) *ResultPublisher {
	return &ResultPublisher{writer: k.NewWriter(topic), now: time.Now}
}

// RecordResult publishes one result keyed by its batch id.
func (p *ResultPublisher) RecordResult(ctx context.Context, batchID uuid.UUID, position int, result domain.CallResult) error {
	msg, err := newResultMessage(batchID, position, result, p.now())
	if err != nil {
		return fmt.Errorf("result publisher: build message: %w", err)
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("result publisher: marshal message: %w", err)
	}
	record := kafka.Message{
		Key:   batchID[:],
		Value: value,
		Time:  msg.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("result publisher: write message: %w", err)
	}
	return nil
}

// Close closes the publisher.
func (p *ResultPublisher) Close() error {
	return p.writer.Close()
}
