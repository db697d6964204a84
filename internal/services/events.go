package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketd/internal/models"
	"ticketd/monitoring"
)

// PaymentEventsChannel carries completion/failure events emitted by the
// webhook reconciler after it commits a transition.
const PaymentEventsChannel = "payment-events"

const (
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
)

type PaymentEvent struct {
	Event     string               `json:"event"`
	Reference string               `json:"reference"`
	Status    models.PaymentStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// EventPublisher emits internal payment events. Failures are never fatal
// to the caller; the durable state already lives in the database.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// RedisEventPublisher publishes payment events on a Redis channel.
type RedisEventPublisher struct {
	client redis.Cmdable
}

func NewRedisEventPublisher(client redis.Cmdable) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (p *RedisEventPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, PaymentEventsChannel, payload).Err()
}

// CompletionListener subscribes to payment events and records outcomes.
// Notification delivery (mail etc.) would hang off this loop; here it
// logs and feeds metrics.
type CompletionListener struct {
	client *redis.Client
}

func NewCompletionListener(client *redis.Client) *CompletionListener {
	return &CompletionListener{client: client}
}

func (l *CompletionListener) Run(ctx context.Context) {
	sub := l.client.Subscribe(ctx, PaymentEventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event PaymentEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Error("failed to parse payment event", "error", err)
				continue
			}
			monitoring.RecordPaymentEvent(event.Event)
			slog.Info("payment settled",
				"event", event.Event,
				"reference", event.Reference,
				"status", event.Status,
			)

		case <-ctx.Done():
			return
		}
	}
}
