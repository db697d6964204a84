package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketd/internal/apperrors"
	"ticketd/internal/gateway"
	"ticketd/internal/lock"
	"ticketd/internal/models"
	"ticketd/internal/store"
	"ticketd/monitoring"
)

type CreateListingRequest struct {
	TicketID string          `json:"ticket_id" validate:"required"`
	SellerID string          `json:"seller_id" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
}

type ResalePurchaseRequest struct {
	ListingID  string `json:"listing_id" validate:"required"`
	BuyerID    string `json:"buyer_id" validate:"required"`
	BuyerEmail string `json:"buyer_email" validate:"required,email"`
}

type ResalePurchaseResult struct {
	Purchase         *models.Purchase      `json:"purchase"`
	Listing          *models.ResaleListing `json:"listing"`
	PaymentReference string                `json:"payment_reference"`
	AuthorizationURL string                `json:"authorization_url,omitempty"`
}

// ResaleService mirrors the purchase orchestrator against a resale
// listing instead of primary inventory.
type ResaleService struct {
	store   store.Store
	locker  lock.Locker
	gateway gateway.Gateway
	cfg     OrchestratorConfig
}

func NewResaleService(st store.Store, locker lock.Locker, gw gateway.Gateway, cfg OrchestratorConfig) *ResaleService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &ResaleService{store: st, locker: locker, gateway: gw, cfg: cfg}
}

// CreateListing offers a ticket for secondary sale after checking the
// resale rules on the ticket.
func (s *ResaleService) CreateListing(ctx context.Context, req *CreateListingRequest) (*models.ResaleListing, error) {
	if !req.Price.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "resale price must be positive")
	}

	var listing *models.ResaleListing
	err := s.store.Transactional(ctx, func(tx store.Tx) error {
		ticket, err := tx.TicketByID(ctx, req.TicketID)
		if err != nil {
			return err
		}
		if err := validateResale(ticket, req.Price); err != nil {
			return err
		}

		listing = &models.ResaleListing{
			ID:       uuid.NewString(),
			TicketID: ticket.ID,
			SellerID: req.SellerID,
			Price:    req.Price,
			Status:   models.ResaleListed,
		}
		return tx.CreateListing(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("resale listing created", "listing_id", listing.ID, "ticket_id", req.TicketID)
	return listing, nil
}

// PurchaseListing sells a listed ticket to a new owner: same lock +
// transaction + payment discipline as the primary purchase, with the
// listing row as the contended resource.
func (s *ResaleService) PurchaseListing(ctx context.Context, req *ResalePurchaseRequest) (*ResalePurchaseResult, error) {
	key := resaleLockKey(req.ListingID)
	acquired, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		monitoring.RecordLockAcquire("unavailable")
		return nil, err
	}
	if !acquired {
		monitoring.RecordLockAcquire("contended")
		return nil, apperrors.New(apperrors.KindContention, "listing is currently being purchased, try again shortly")
	}
	monitoring.RecordLockAcquire("acquired")
	defer s.releaseLock(key)

	var result *ResalePurchaseResult
	err = s.store.Transactional(ctx, func(tx store.Tx) error {
		listing, err := tx.ListingForUpdate(ctx, req.ListingID)
		if err != nil {
			return err
		}
		if listing.Status != models.ResaleListed {
			return apperrors.New(apperrors.KindValidation, "listing is no longer available")
		}

		ticket, err := tx.TicketForUpdate(ctx, listing.TicketID)
		if err != nil {
			return err
		}
		if err := validateResale(ticket, listing.Price); err != nil {
			return err
		}

		reference := newPaymentReference()
		init, err := s.gateway.Initialize(ctx, &gateway.InitializeRequest{
			Amount:    listing.Price,
			Currency:  s.cfg.Currency,
			Email:     req.BuyerEmail,
			Reference: reference,
		})
		if err != nil {
			return err
		}

		payment := &models.Payment{
			ID:               uuid.NewString(),
			Reference:        reference,
			GatewayReference: init.GatewayReference,
			Amount:           listing.Price,
			Currency:         s.cfg.Currency,
			Email:            req.BuyerEmail,
			Status:           models.PaymentPending,
			GatewayResponse:  init.RawResponse,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		listing.Status = models.ResaleSold
		if err := tx.UpdateListing(ctx, listing); err != nil {
			return err
		}

		history := &models.ResaleHistory{
			ID:              uuid.NewString(),
			TicketID:        listing.TicketID,
			ListingID:       listing.ID,
			PreviousOwnerID: listing.SellerID,
			NewOwnerID:      req.BuyerID,
			Price:           listing.Price,
		}
		if err := tx.CreateResaleHistory(ctx, history); err != nil {
			return err
		}

		ticket.CurrentOwnerID = req.BuyerID
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}

		purchase := &models.Purchase{
			ID:               uuid.NewString(),
			TicketID:         listing.TicketID,
			Quantity:         1,
			BuyerEmail:       req.BuyerEmail,
			PaymentReference: reference,
			Status:           models.PurchasePending,
		}
		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return err
		}

		result = &ResalePurchaseResult{
			Purchase:         purchase,
			Listing:          listing,
			PaymentReference: reference,
			AuthorizationURL: init.AuthorizationURL,
		}
		return nil
	})
	if err != nil {
		monitoring.RecordResale("rejected")
		return nil, err
	}

	monitoring.RecordResale("pending")
	slog.Info("resale purchase committed pending payment",
		"listing_id", req.ListingID,
		"purchase_id", result.Purchase.ID,
		"reference", result.PaymentReference,
	)
	return result, nil
}

func (s *ResaleService) releaseLock(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.locker.Release(ctx, key)
}

func validateResale(ticket *models.Ticket, price decimal.Decimal) error {
	if !ticket.ResaleEnabled {
		return apperrors.New(apperrors.KindValidation, "ticket resale is not enabled")
	}
	if ticket.MaxResalePrice != nil && price.GreaterThan(*ticket.MaxResalePrice) {
		return apperrors.Newf(apperrors.KindValidation, "resale price exceeds maximum allowed price of %s", ticket.MaxResalePrice)
	}
	return nil
}

func resaleLockKey(listingID string) string {
	return fmt.Sprintf("resale:%s", listingID)
}
