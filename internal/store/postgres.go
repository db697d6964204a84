package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pocketbase/dbx"

	"ticketd/internal/apperrors"
	"ticketd/internal/models"
)

const (
	ticketColumns = "id, event_id, name, base_price, remaining_quantity, purchase_limit, status, resale_enabled, max_resale_price, current_owner_id, created_at, updated_at"

	purchaseColumns = "id, ticket_id, quantity, buyer_email, payment_reference, status, created_at, updated_at"

	listingColumns = "id, ticket_id, seller_id, price, status, created_at, updated_at"

	paymentColumns = "id, reference, gateway_reference, amount, currency, email, status, gateway_response, created_at, updated_at"
)

// PostgresStore implements Store on PostgreSQL through dbx.
type PostgresStore struct {
	db *dbx.DB
}

func Open(dsn string, maxOpenConns, maxIdleConns int) (*PostgresStore, error) {
	db, err := dbx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.DB().SetMaxOpenConns(maxOpenConns)
	db.DB().SetMaxIdleConns(maxIdleConns)
	db.DB().SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.DB().PingContext(ctx)
}

func (s *PostgresStore) Transactional(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PostgresStore) PurchaseByID(ctx context.Context, id string) (*models.Purchase, error) {
	var p models.Purchase
	err := s.db.NewQuery("SELECT "+purchaseColumns+" FROM purchases WHERE id={:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&p)
	if err != nil {
		return nil, notFoundOr(err, "purchase %s not found", id)
	}
	return &p, nil
}

func (s *PostgresStore) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.NewQuery("SELECT "+paymentColumns+" FROM payments WHERE reference={:ref}").
		Bind(dbx.Params{"ref": reference}).
		WithContext(ctx).
		One(&p)
	if err != nil {
		return nil, notFoundOr(err, "payment %s not found", reference)
	}
	return &p, nil
}

type pgTx struct {
	tx *dbx.Tx
}

func (t *pgTx) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := t.tx.NewQuery("SELECT "+ticketColumns+" FROM tickets WHERE id={:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&ticket)
	if err != nil {
		return nil, notFoundOr(err, "ticket %s not found", id)
	}
	return &ticket, nil
}

func (t *pgTx) TicketForUpdate(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := t.tx.NewQuery("SELECT "+ticketColumns+" FROM tickets WHERE id={:id} FOR UPDATE").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&ticket)
	if err != nil {
		return nil, notFoundOr(err, "ticket %s not found", id)
	}
	return &ticket, nil
}

func (t *pgTx) UpdateTicket(ctx context.Context, ticket *models.Ticket) error {
	ticket.UpdatedAt = time.Now().UTC()
	_, err := t.tx.Update("tickets", dbx.Params{
		"remaining_quantity": ticket.RemainingQuantity,
		"status":             string(ticket.Status),
		"resale_enabled":     ticket.ResaleEnabled,
		"current_owner_id":   ticket.CurrentOwnerID,
		"updated_at":         ticket.UpdatedAt,
	}, dbx.HashExp{"id": ticket.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (t *pgTx) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := t.tx.Insert("purchases", dbx.Params{
		"id":                p.ID,
		"ticket_id":         p.TicketID,
		"quantity":          p.Quantity,
		"buyer_email":       p.BuyerEmail,
		"payment_reference": p.PaymentReference,
		"status":            string(p.Status),
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (t *pgTx) UpdatePurchase(ctx context.Context, p *models.Purchase) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := t.tx.Update("purchases", dbx.Params{
		"status":     string(p.Status),
		"updated_at": p.UpdatedAt,
	}, dbx.HashExp{"id": p.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update purchase %s: %w", p.ID, err)
	}
	return nil
}

func (t *pgTx) PurchaseByPaymentReference(ctx context.Context, reference string) (*models.Purchase, error) {
	var p models.Purchase
	err := t.tx.NewQuery("SELECT "+purchaseColumns+" FROM purchases WHERE payment_reference={:ref}").
		Bind(dbx.Params{"ref": reference}).
		WithContext(ctx).
		One(&p)
	if err != nil {
		return nil, notFoundOr(err, "purchase for payment %s not found", reference)
	}
	return &p, nil
}

func (t *pgTx) CreateListing(ctx context.Context, l *models.ResaleListing) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := t.tx.Insert("resale_listings", dbx.Params{
		"id":         l.ID,
		"ticket_id":  l.TicketID,
		"seller_id":  l.SellerID,
		"price":      l.Price,
		"status":     string(l.Status),
		"created_at": l.CreatedAt,
		"updated_at": l.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("create resale listing: %w", err)
	}
	return nil
}

func (t *pgTx) ListingForUpdate(ctx context.Context, id string) (*models.ResaleListing, error) {
	var l models.ResaleListing
	err := t.tx.NewQuery("SELECT "+listingColumns+" FROM resale_listings WHERE id={:id} FOR UPDATE").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&l)
	if err != nil {
		return nil, notFoundOr(err, "resale listing %s not found", id)
	}
	return &l, nil
}

func (t *pgTx) UpdateListing(ctx context.Context, l *models.ResaleListing) error {
	l.UpdatedAt = time.Now().UTC()
	_, err := t.tx.Update("resale_listings", dbx.Params{
		"status":     string(l.Status),
		"updated_at": l.UpdatedAt,
	}, dbx.HashExp{"id": l.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update resale listing %s: %w", l.ID, err)
	}
	return nil
}

func (t *pgTx) CreateResaleHistory(ctx context.Context, h *models.ResaleHistory) error {
	h.CreatedAt = time.Now().UTC()
	_, err := t.tx.Insert("resale_history", dbx.Params{
		"id":                h.ID,
		"ticket_id":         h.TicketID,
		"listing_id":        h.ListingID,
		"previous_owner_id": h.PreviousOwnerID,
		"new_owner_id":      h.NewOwnerID,
		"price":             h.Price,
		"created_at":        h.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("create resale history: %w", err)
	}
	return nil
}

func (t *pgTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := t.tx.Insert("payments", dbx.Params{
		"id":                p.ID,
		"reference":         p.Reference,
		"gateway_reference": p.GatewayReference,
		"amount":            p.Amount,
		"currency":          p.Currency,
		"email":             p.Email,
		"status":            string(p.Status),
		"gateway_response":  p.GatewayResponse,
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (t *pgTx) PaymentForUpdate(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	err := t.tx.NewQuery("SELECT "+paymentColumns+" FROM payments WHERE reference={:ref} FOR UPDATE").
		Bind(dbx.Params{"ref": reference}).
		WithContext(ctx).
		One(&p)
	if err != nil {
		return nil, notFoundOr(err, "payment %s not found", reference)
	}
	return &p, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := t.tx.Update("payments", dbx.Params{
		"gateway_reference": p.GatewayReference,
		"status":            string(p.Status),
		"gateway_response":  p.GatewayResponse,
		"updated_at":        p.UpdatedAt,
	}, dbx.HashExp{"id": p.ID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	return nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Newf(apperrors.KindNotFound, format, args...)
	}
	return fmt.Errorf("query: %w", err)
}
