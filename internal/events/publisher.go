package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spark-service/internal/domain"
	"spark-service/pkg/id"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeUserRegistered     = "user.registered"
	TypeUserLoggedIn       = "user.logged_in"
	TypeApplicationCreated = "application.created"
	TypeApplicationStatus  = "application.status_changed"
	TypeCertificateIssued  = "certificate.issued"
	TypeWorkflowExecuted   = "workflow.executed"
)

var publishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "spark_events_published_total",
		Help: "Events handed to the event stream, by type and result.",
	},
	[]string{"type", "result"},
)

type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
	Close() error
}

// New returns a kafka backed publisher, or a no-op one when no brokers are set.
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info("event stream disabled, no kafka brokers configured")
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Compression:  kafka.Snappy,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	logger.Info("kafka publisher initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return NewKafkaPublisher(writer, logger)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish keys messages by user id so one user's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, evt domain.Event) error {
	if evt.ID == "" {
		evt.ID = id.GenerateUUID("evt")
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(evt)
	if err != nil {
		publishedTotal.WithLabelValues(evt.Type, "error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishedTotal.WithLabelValues(evt.Type, "error").Inc()
		p.logger.Warn("event publish failed", zap.String("type", evt.Type), zap.Error(err))
		return err
	}
	publishedTotal.WithLabelValues(evt.Type, "ok").Inc()
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
func (NoopPublisher) Close() error                                { return nil }
