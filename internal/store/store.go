package store

import (
	"context"

	"ticketd/internal/models"
)

// Store is the transactional home of tickets, purchases, listings and
// payments. The orchestrators and the webhook reconciler are its only
// writers.
type Store interface {
	// Transactional runs fn inside one database transaction, committing on
	// nil and rolling back on error.
	Transactional(ctx context.Context, fn func(tx Tx) error) error

	PurchaseByID(ctx context.Context, id string) (*models.Purchase, error)
	PaymentByReference(ctx context.Context, reference string) (*models.Payment, error)

	Ping(ctx context.Context) error
}

// Tx is the set of row operations available inside one transaction.
// The ForUpdate reads take a pessimistic row lock: they block other
// transactions on the same row until this one ends.
type Tx interface {
	TicketByID(ctx context.Context, id string) (*models.Ticket, error)
	TicketForUpdate(ctx context.Context, id string) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, t *models.Ticket) error

	CreatePurchase(ctx context.Context, p *models.Purchase) error
	UpdatePurchase(ctx context.Context, p *models.Purchase) error
	PurchaseByPaymentReference(ctx context.Context, reference string) (*models.Purchase, error)

	CreateListing(ctx context.Context, l *models.ResaleListing) error
	ListingForUpdate(ctx context.Context, id string) (*models.ResaleListing, error)
	UpdateListing(ctx context.Context, l *models.ResaleListing) error
	CreateResaleHistory(ctx context.Context, h *models.ResaleHistory) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentForUpdate(ctx context.Context, reference string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
}
