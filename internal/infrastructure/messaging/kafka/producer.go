// Package kafka publishes alert-change events for downstream notification
// and audit consumers.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/pkg/errors"
)

// ErrProducerClosed is returned on publish after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// Config holds producer settings.
type Config struct {
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	Acks         string        `mapstructure:"acks" yaml:"acks"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// AlertEvent is the wire format of one alert change.
type AlertEvent struct {
	CaseID        string    `json:"case_id"`
	CaseType      string    `json:"case_type"`
	CaseStatus    string    `json:"case_status"`
	Tier          string    `json:"tier"`
	DaysRemaining int       `json:"days_remaining"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes alert events keyed by case id, so all events of one
// case land on one partition in order.
type Producer struct {
	writer writerInterface
	topic  string
	log    logging.Logger
	closed atomic.Bool
}

// NewProducer constructs a Producer.
func NewProducer(cfg Config, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.Validation("kafka brokers must not be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.Validation("kafka topic must not be empty")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks,
	}
	return &Producer{writer: writer, topic: cfg.Topic, log: log.Named("kafka")}, nil
}

// newProducerWithWriter wires a custom writer, for tests.
func newProducerWithWriter(w writerInterface, topic string, log logging.Logger) *Producer {
	return &Producer{writer: w, topic: topic, log: log.Named("kafka")}
}

// PublishAlertChanged implements the engine's AlertPublisher port.
func (p *Producer) PublishAlertChanged(ctx context.Context, c *cases.Case, a *cases.Alert) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	payload, err := json.Marshal(AlertEvent{
		CaseID:        c.ID,
		CaseType:      string(c.Type),
		CaseStatus:    string(c.Status),
		Tier:          string(a.Tier),
		DaysRemaining: a.DaysRemaining,
		OccurredAt:    a.UpdatedAt,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode alert event")
	}

	msg := kafka.Message{
		Key:   []byte(c.ID),
		Value: payload,
		Time:  a.UpdatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to publish alert event")
	}

	p.log.Debug("alert event published",
		logging.String("case_id", c.ID),
		logging.String("tier", string(a.Tier)))
	return nil
}

// Close flushes and shuts the writer down.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
