package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ticketd/internal/apperrors"
	"ticketd/internal/gateway"
	"ticketd/internal/models"
	"ticketd/internal/store"
	"ticketd/monitoring"
)

// webhookEvent is the envelope the gateway posts. Only the event name and
// the reference are trusted after signature verification; the claimed
// status of a success event is re-verified against the gateway.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// WebhookService reconciles gateway webhook events with local payment and
// purchase state, idempotently, inside one transaction per event.
type WebhookService struct {
	store    store.Store
	events   EventPublisher
	gateways map[string]gateway.Gateway
}

func NewWebhookService(st store.Store, events EventPublisher, gateways ...gateway.Gateway) *WebhookService {
	byName := make(map[string]gateway.Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &WebhookService{store: st, events: events, gateways: byName}
}

// HandleEvent processes one signed webhook delivery. It returns an error
// only when the caller must answer with a non-200: unknown gateway or
// bad signature. Reconciliation failures are logged and swallowed; the
// payment stays pending and settles on the gateway's next delivery for
// the same reference.
func (s *WebhookService) HandleEvent(ctx context.Context, gatewayName string, body []byte, signature string) error {
	gw, ok := s.gateways[gatewayName]
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "unknown payment gateway %q", gatewayName)
	}

	if signature == "" || !gw.VerifySignature(body, signature) {
		slog.Warn("rejected webhook with missing or invalid signature", "gateway", gatewayName)
		monitoring.RecordWebhookEvent("unknown", "bad_signature")
		return apperrors.New(apperrors.KindSignature, "missing or invalid webhook signature")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		slog.Error("failed to parse webhook body", "gateway", gatewayName, "error", err)
		monitoring.RecordWebhookEvent("unknown", "unparseable")
		return nil
	}

	var err error
	switch event.Event {
	case "charge.success", "transaction.success":
		err = s.reconcileSuccess(ctx, gw, event.Data.Reference)
	case "charge.failed", "transaction.failed":
		err = s.reconcileFailure(ctx, event.Data.Reference, body)
	default:
		slog.Info("ignoring unrecognized webhook event", "gateway", gatewayName, "event", event.Event)
		monitoring.RecordWebhookEvent(event.Event, "ignored")
		return nil
	}

	if err != nil {
		slog.Error("webhook reconciliation failed",
			"gateway", gatewayName,
			"event", event.Event,
			"reference", event.Data.Reference,
			"error", err,
		)
		monitoring.RecordWebhookEvent(event.Event, "error")
		return nil
	}
	monitoring.RecordWebhookEvent(event.Event, "processed")
	return nil
}

// reconcileSuccess settles a success claim. The webhook payload's status
// field is never trusted on its own: the transaction is re-verified
// against the gateway before any transition.
func (s *WebhookService) reconcileSuccess(ctx context.Context, gw gateway.Gateway, reference string) error {
	var outcome models.PaymentStatus
	err := s.store.Transactional(ctx, func(tx store.Tx) error {
		payment, err := tx.PaymentForUpdate(ctx, reference)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				slog.Warn("payment not found for webhook, skipping", "reference", reference)
				return nil
			}
			return err
		}
		if payment.Status.Terminal() {
			// Duplicate delivery after we already settled; a no-op.
			slog.Info("duplicate webhook delivery, payment already settled",
				"reference", reference, "status", payment.Status)
			return nil
		}

		verify, err := gw.Verify(ctx, reference)
		if err != nil {
			return err
		}

		if verify.Success {
			outcome = models.PaymentSuccess
		} else {
			// A success claim the gateway itself does not confirm.
			outcome = models.PaymentFailed
		}
		payment.Status = outcome
		payment.GatewayResponse = verify.RawResponse
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.settlePurchase(ctx, tx, reference, outcome)
	})
	if err != nil || outcome == "" {
		return err
	}
	s.publishOutcome(ctx, reference, outcome)
	return nil
}

// reconcileFailure settles a failure claim directly; a failure requires
// no trust upgrade, so there is no independent verification.
func (s *WebhookService) reconcileFailure(ctx context.Context, reference string, rawBody []byte) error {
	settled := false
	err := s.store.Transactional(ctx, func(tx store.Tx) error {
		payment, err := tx.PaymentForUpdate(ctx, reference)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				slog.Warn("payment not found for webhook, skipping", "reference", reference)
				return nil
			}
			return err
		}
		if payment.Status.Terminal() {
			slog.Info("duplicate webhook delivery, payment already settled",
				"reference", reference, "status", payment.Status)
			return nil
		}

		payment.Status = models.PaymentFailed
		payment.GatewayResponse = rawBody
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		settled = true
		return s.settlePurchase(ctx, tx, reference, models.PaymentFailed)
	})
	if err != nil || !settled {
		return err
	}
	s.publishOutcome(ctx, reference, models.PaymentFailed)
	return nil
}

func (s *WebhookService) settlePurchase(ctx context.Context, tx store.Tx, reference string, outcome models.PaymentStatus) error {
	purchase, err := tx.PurchaseByPaymentReference(ctx, reference)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			slog.Warn("no purchase recorded for payment", "reference", reference)
			return nil
		}
		return err
	}
	if purchase.Status.Terminal() {
		return nil
	}

	if outcome == models.PaymentSuccess {
		purchase.Status = models.PurchaseCompleted
	} else {
		purchase.Status = models.PurchaseCancelled
	}
	return tx.UpdatePurchase(ctx, purchase)
}

func (s *WebhookService) publishOutcome(ctx context.Context, reference string, outcome models.PaymentStatus) {
	name := EventPaymentSucceeded
	if outcome != models.PaymentSuccess {
		name = EventPaymentFailed
	}
	event := PaymentEvent{
		Event:     name,
		Reference: reference,
		Status:    outcome,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.PublishPaymentEvent(ctx, event); err != nil {
		slog.Error("failed to publish payment event", "reference", reference, "error", err)
	}
}
