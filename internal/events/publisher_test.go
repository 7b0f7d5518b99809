package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"spark-service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memWriter) Close() error { return nil }

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	w := &memWriter{}
	p := NewKafkaPublisher(w, zap.NewNop())

	err := p.Publish(context.Background(), domain.Event{
		Type:    TypeApplicationCreated,
		UserID:  "u-1",
		Payload: map[string]any{"request_id": "42"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "u-1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, TypeApplicationCreated, string(msg.Headers[0].Value))

	var evt domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.OccurredAt.IsZero())
	assert.Equal(t, "42", evt.Payload["request_id"])
}

func TestKafkaPublisherReturnsWriterError(t *testing.T) {
	p := NewKafkaPublisher(&memWriter{err: errors.New("leader not available")}, zap.NewNop())
	assert.Error(t, p.Publish(context.Background(), domain.Event{Type: TypeUserLoggedIn}))
}

func TestNewWithoutBrokersIsNoop(t *testing.T) {
	p := New(nil, "spark.events", zap.NewNop())
	_, ok := p.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), domain.Event{}))
	assert.NoError(t, p.Close())
}
