package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketSoldOut   TicketStatus = "sold_out"
)

// Ticket is one sellable inventory unit of an event. RemainingQuantity is
// nil for unlimited ticket types (free tickets); those skip quantity and
// sold-out accounting but still serialize through the per-ticket lock.
type Ticket struct {
	ID                string           `db:"id" json:"id"`
	EventID           string           `db:"event_id" json:"event_id"`
	Name              string           `db:"name" json:"name"`
	BasePrice         *decimal.Decimal `db:"base_price" json:"base_price,omitempty"`
	RemainingQuantity *int             `db:"remaining_quantity" json:"remaining_quantity,omitempty"`
	PurchaseLimit     *int             `db:"purchase_limit" json:"purchase_limit,omitempty"`
	Status            TicketStatus     `db:"status" json:"status"`
	ResaleEnabled     bool             `db:"resale_enabled" json:"resale_enabled"`
	MaxResalePrice    *decimal.Decimal `db:"max_resale_price" json:"max_resale_price,omitempty"`
	CurrentOwnerID    string           `db:"current_owner_id" json:"current_owner_id,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// UnitPrice returns the charge per ticket, zero when the ticket is free.
func (t *Ticket) UnitPrice() decimal.Decimal {
	if t.BasePrice == nil {
		return decimal.Zero
	}
	return *t.BasePrice
}
