// Package publisher streams finished risk assessments to Kafka so that
// downstream consumers (dashboards, extension-office tooling) can react
// without polling the database.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/warkadguard/riskwatch/internal/models"
)

// messageWriter is the subset of *kafka.Writer used here
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes assessments keyed by kebele
type Producer struct {
	writer messageWriter
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{}, // one partition per kebele keeps updates ordered
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes one assessment to the topic
func (p *Producer) Publish(ctx context.Context, runID string, a models.RiskAssessment) error {
	msg, err := buildMessage(runID, a)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(runID string, a models.RiskAssessment) (kafka.Message, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal assessment: %w", err)
	}
	return kafka.Message{
		Key:   []byte(a.Location),
		Value: value,
		Time:  a.LastUpdated,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "risk_level", Value: []byte(a.Level)},
		},
	}, nil
}
