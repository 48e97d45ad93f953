// Package kafka publishes order audit entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditSink writes one JSON message per entry, keyed by order id so an order's entries stay ordered.
type AuditSink struct {
	w messageWriter
}

var _ audit.Sink = (*AuditSink)(nil)

func NewAuditSink(brokers []string, topic string) *AuditSink {
	return &AuditSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func newAuditSinkWithWriter(w messageWriter) *AuditSink {
	return &AuditSink{w: w}
}

func (s *AuditSink) Record(ctx context.Context, e audit.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: data,
		Time:  e.RecordedAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(e.Action)},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka.WriteMessages: %w", err)
	}
	return nil
}

func (s *AuditSink) Close() error {
	return s.w.Close()
}
