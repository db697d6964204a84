package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ResaleStatus string

const (
	ResaleListed    ResaleStatus = "listed"
	ResaleSold      ResaleStatus = "sold"
	ResaleCancelled ResaleStatus = "cancelled"
)

// ResaleListing is a ticket offered for secondary sale by its current owner.
type ResaleListing struct {
	ID        string          `db:"id" json:"id"`
	TicketID  string          `db:"ticket_id" json:"ticket_id"`
	SellerID  string          `db:"seller_id" json:"seller_id"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Status    ResaleStatus    `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ResaleHistory records one completed ownership transfer.
type ResaleHistory struct {
	ID              string          `db:"id" json:"id"`
	TicketID        string          `db:"ticket_id" json:"ticket_id"`
	ListingID       string          `db:"listing_id" json:"listing_id"`
	PreviousOwnerID string          `db:"previous_owner_id" json:"previous_owner_id"`
	NewOwnerID      string          `db:"new_owner_id" json:"new_owner_id"`
	Price           decimal.Decimal `db:"price" json:"price"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
