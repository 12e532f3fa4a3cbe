package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"flock/pkg/platform/circuit"
)

type fakeProducer struct {
	records []*kgo.Record
	ctxErr  error
	err     error
}

func (p *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.records = append(p.records, r)
	p.ctxErr = ctx.Err()
	promise(r, p.err)
}

func TestKafkaDispatcher(t *testing.T) {
	n := Notification{
		Kind:       KindRegistrationInvite,
		Subject:    "visitor-1",
		Recipient:  "ada@example.com",
		Payload:    map[string]string{"token": "abc"},
		OccurredAt: time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC),
	}

	t.Run("publishes a keyed JSON record", func(t *testing.T) {
		producer := &fakeProducer{}
		d := NewKafkaDispatcher(producer, "flock.notifications")

		d.Notify(context.Background(), n)

		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "flock.notifications", rec.Topic)
		assert.Equal(t, []byte("visitor-1"), rec.Key)
		require.Len(t, rec.Headers, 1)
		assert.Equal(t, "registration_invite", string(rec.Headers[0].Value))

		var decoded Notification
		require.NoError(t, json.Unmarshal(rec.Value, &decoded))
		assert.Equal(t, n, decoded)
	})

	t.Run("cancelled caller context does not cancel the publish", func(t *testing.T) {
		producer := &fakeProducer{}
		d := NewKafkaDispatcher(producer, "flock.notifications")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Notify(ctx, n)

		require.Len(t, producer.records, 1)
		assert.NoError(t, producer.ctxErr)
	})

	t.Run("delivery failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		producer := &fakeProducer{err: errors.New("broker unavailable")}
		d := NewKafkaDispatcher(producer, "flock.notifications",
			WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		d.Notify(context.Background(), n)

		assert.Contains(t, buf.String(), "failed to publish notification")
		assert.Contains(t, buf.String(), "broker unavailable")
	})

	t.Run("open circuit routes failures to the fallback", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("broker unavailable")}
		fallback := &recordingDispatcher{}
		d := NewKafkaDispatcher(producer, "flock.notifications",
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
			WithFallback(fallback),
		)

		d.Notify(context.Background(), n)
		assert.Empty(t, fallback.sent, "one failure leaves the circuit closed")

		d.Notify(context.Background(), n)
		d.Notify(context.Background(), n)
		assert.Len(t, fallback.sent, 2)

		producer.err = nil
		d.Notify(context.Background(), n)
		d.Notify(context.Background(), n)
		assert.Len(t, fallback.sent, 2)
		assert.Len(t, producer.records, 5)
	})
}

type recordingDispatcher struct {
	sent []Notification
}

func (r *recordingDispatcher) Notify(_ context.Context, n Notification) {
	r.sent = append(r.sent, n)
}

func TestLogDispatcher(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(slog.New(slog.NewTextHandler(&buf, nil)))

	d.Notify(context.Background(), Notification{Kind: KindWelcome, Subject: "member-1"})

	assert.Contains(t, buf.String(), "kind=welcome")
	assert.Contains(t, buf.String(), "subject=member-1")
}
