package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerValidation(t *testing.T) {
	_, err := NewProducer(Config{Topic: "alerts"}, logging.NewNopLogger())
	assert.Error(t, err)

	_, err = NewProducer(Config{Brokers: []string{"localhost:9092"}}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestPublishAlertChanged(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, "casetrack.alerts", logging.NewNopLogger())

	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	c := &cases.Case{ID: "case-1", Type: cases.CaseTypeOncological, Status: cases.StatusInProgress}
	a := &cases.Alert{CaseID: "case-1", DaysRemaining: 7, Tier: cases.TierAttention, UpdatedAt: now}

	require.NoError(t, p.PublishAlertChanged(context.Background(), c, a))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "case-1", string(msg.Key))

	var event AlertEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "ATTENTION", event.Tier)
	assert.Equal(t, 7, event.DaysRemaining)
	assert.Equal(t, "ONCOLOGICAL", event.CaseType)
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, "casetrack.alerts", logging.NewNopLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.PublishAlertChanged(context.Background(), &cases.Case{ID: "x"}, &cases.Alert{CaseID: "x"})
	assert.ErrorIs(t, err, ErrProducerClosed)

	// Close is idempotent.
	assert.NoError(t, p.Close())
}
