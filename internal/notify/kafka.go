package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	"flock/pkg/platform/circuit"
)

// Producer is the subset of *kgo.Client used to publish.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

var (
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_notifications_published_total",
		Help: "Notifications acknowledged by the broker, by kind",
	}, []string{"kind"})
	failed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flock_notifications_failed_total",
		Help: "Notifications that could not be published, by kind",
	}, []string{"kind"})
)

// KafkaDispatcher publishes notifications as JSON records keyed by subject,
// so every notification for one subject lands on the same partition.
//
// Failed publishes feed a circuit breaker. While the circuit is open, every
// failed notification is handed to the fallback dispatcher instead of being
// dropped.
type KafkaDispatcher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	breaker  *circuit.Breaker
	fallback Dispatcher
}

type Option func(*KafkaDispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *KafkaDispatcher) {
		d.logger = logger
	}
}

// WithFallback sets where notifications go while the broker circuit is open.
// Defaults to a LogDispatcher on the dispatcher's logger.
func WithFallback(fallback Dispatcher) Option {
	return func(d *KafkaDispatcher) {
		d.fallback = fallback
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *KafkaDispatcher) {
		d.breaker = b
	}
}

func NewKafkaDispatcher(producer Producer, topic string, opts ...Option) *KafkaDispatcher {
	d := &KafkaDispatcher{producer: producer, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	if d.breaker == nil {
		d.breaker = circuit.New("kafka-notifications")
	}
	if d.fallback == nil {
		d.fallback = NewLogDispatcher(d.logger)
	}
	return d
}

// Notify enqueues n and returns immediately. The record outlives the
// caller's context: a request finishing must not cancel its notification.
func (d *KafkaDispatcher) Notify(ctx context.Context, n Notification) {
	value, err := json.Marshal(n)
	if err != nil {
		failed.WithLabelValues(string(n.Kind)).Inc()
		d.logger.ErrorContext(ctx, "failed to encode notification", "kind", n.Kind, "subject", n.Subject, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: d.topic,
		Key:   []byte(n.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	detached := context.WithoutCancel(ctx)
	d.producer.Produce(detached, record, func(_ *kgo.Record, err error) {
		if err != nil {
			failed.WithLabelValues(string(n.Kind)).Inc()
			d.logger.Error("failed to publish notification", "kind", n.Kind, "subject", n.Subject, "error", err)
			useFallback, change := d.breaker.RecordFailure()
			if change.Opened {
				d.logger.Warn("notification circuit opened", "breaker", d.breaker.Name())
			}
			if useFallback {
				d.fallback.Notify(detached, n)
			}
			return
		}
		published.WithLabelValues(string(n.Kind)).Inc()
		if _, change := d.breaker.RecordSuccess(); change.Closed {
			d.logger.Info("notification circuit closed", "breaker", d.breaker.Name())
		}
	})
}

// LogDispatcher writes notifications to the log. Used when no broker is
// configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(ctx context.Context, n Notification) {
	d.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"subject", n.Subject,
		"recipient", n.Recipient,
		"payload", n.Payload,
	)
}
