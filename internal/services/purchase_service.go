package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketd/internal/apperrors"
	"ticketd/internal/gateway"
	"ticketd/internal/lock"
	"ticketd/internal/models"
	"ticketd/internal/store"
	"ticketd/monitoring"
	"ticketd/utils"
)

// OrchestratorConfig tunes the purchase/resale orchestrators. LockTTL is
// the crash-safety window for the distributed lock; the gateway client's
// timeout must stay well under it since the initialize call runs while
// the lock is held.
type OrchestratorConfig struct {
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	Currency string        `mapstructure:"currency"`
}

type PurchaseRequest struct {
	TicketID   string `json:"ticket_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
	BuyerEmail string `json:"buyer_email" validate:"required,email"`
}

// PurchaseResult is the pending purchase handed back to the caller while
// the gateway confirms or rejects the charge asynchronously.
type PurchaseResult struct {
	Purchase         *models.Purchase `json:"purchase"`
	PaymentReference string           `json:"payment_reference"`
	AuthorizationURL string           `json:"authorization_url,omitempty"`
}

// PurchaseService serializes inventory mutation per ticket: distributed
// lock first, pessimistic row lock inside the transaction as the second
// barrier.
type PurchaseService struct {
	store   store.Store
	locker  lock.Locker
	gateway gateway.Gateway
	cfg     OrchestratorConfig
}

func NewPurchaseService(st store.Store, locker lock.Locker, gw gateway.Gateway, cfg OrchestratorConfig) *PurchaseService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &PurchaseService{store: st, locker: locker, gateway: gw, cfg: cfg}
}

// Purchase runs the full purchase flow: lock, transaction, validation,
// payment initialization, inventory decrement, pending purchase row.
// Nothing durable survives any failure before commit.
func (s *PurchaseService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	if req.Quantity < 1 {
		return nil, apperrors.New(apperrors.KindValidation, "quantity must be a positive integer")
	}

	key := ticketLockKey(req.TicketID)
	acquired, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		monitoring.RecordLockAcquire("unavailable")
		return nil, err
	}
	if !acquired {
		monitoring.RecordLockAcquire("contended")
		return nil, apperrors.New(apperrors.KindContention, "ticket is currently being purchased, try again shortly")
	}
	monitoring.RecordLockAcquire("acquired")
	defer s.releaseLock(key)

	started := time.Now()
	var result *PurchaseResult
	err = s.store.Transactional(ctx, func(tx store.Tx) error {
		ticket, err := tx.TicketForUpdate(ctx, req.TicketID)
		if err != nil {
			return err
		}
		if err := validatePurchase(ticket, req.Quantity); err != nil {
			return err
		}

		amount := ticket.UnitPrice().Mul(decimal.NewFromInt(int64(req.Quantity)))
		reference := newPaymentReference()

		init, err := s.gateway.Initialize(ctx, &gateway.InitializeRequest{
			Amount:    amount,
			Currency:  s.cfg.Currency,
			Email:     req.BuyerEmail,
			Reference: reference,
		})
		if err != nil {
			// Rollback undoes the reservation; no partial state survives.
			return err
		}

		payment := &models.Payment{
			ID:               uuid.NewString(),
			Reference:        reference,
			GatewayReference: init.GatewayReference,
			Amount:           amount,
			Currency:         s.cfg.Currency,
			Email:            req.BuyerEmail,
			Status:           models.PaymentPending,
			GatewayResponse:  init.RawResponse,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		if ticket.RemainingQuantity != nil {
			remaining := *ticket.RemainingQuantity - req.Quantity
			ticket.RemainingQuantity = &remaining
			if remaining == 0 {
				ticket.Status = models.TicketSoldOut
			}
		}
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}

		purchase := &models.Purchase{
			ID:               uuid.NewString(),
			TicketID:         ticket.ID,
			Quantity:         req.Quantity,
			BuyerEmail:       req.BuyerEmail,
			PaymentReference: reference,
			Status:           models.PurchasePending,
		}
		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return err
		}

		result = &PurchaseResult{
			Purchase:         purchase,
			PaymentReference: reference,
			AuthorizationURL: init.AuthorizationURL,
		}
		return nil
	})
	if err != nil {
		monitoring.RecordPurchase("rejected")
		return nil, err
	}

	monitoring.RecordPurchase("pending")
	monitoring.ObservePurchaseDuration(time.Since(started))
	slog.Info("purchase committed pending payment",
		"purchase_id", result.Purchase.ID,
		"ticket_id", req.TicketID,
		"quantity", req.Quantity,
		"reference", result.PaymentReference,
	)
	return result, nil
}

// PurchaseByID returns a purchase with its current status, for polling
// while the webhook settles it.
func (s *PurchaseService) PurchaseByID(ctx context.Context, id string) (*models.Purchase, error) {
	return s.store.PurchaseByID(ctx, id)
}

// PaymentByReference looks up a payment by its caller-generated reference.
func (s *PurchaseService) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return s.store.PaymentByReference(ctx, reference)
}

func (s *PurchaseService) releaseLock(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Best effort: the TTL reclaims the lock if this fails.
	_ = s.locker.Release(ctx, key)
}

func validatePurchase(ticket *models.Ticket, quantity int) error {
	if ticket.Status != models.TicketAvailable {
		return apperrors.New(apperrors.KindValidation, "ticket is not available for purchase")
	}
	if ticket.RemainingQuantity != nil && quantity > *ticket.RemainingQuantity {
		return apperrors.New(apperrors.KindValidation, "requested quantity exceeds available tickets")
	}
	if ticket.PurchaseLimit != nil && quantity > *ticket.PurchaseLimit {
		return apperrors.Newf(apperrors.KindValidation, "purchase quantity exceeds limit of %d", *ticket.PurchaseLimit)
	}
	return nil
}

func ticketLockKey(ticketID string) string {
	return fmt.Sprintf("ticket:%s", ticketID)
}

func newPaymentReference() string {
	token, err := utils.GenerateCode(5)
	if err != nil {
		token = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	}
	return fmt.Sprintf("STKREF-%d-%s", time.Now().UnixMilli(), token)
}
