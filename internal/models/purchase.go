package models

import "time"

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// Purchase is one buyer's claim on a ticket. It is created pending in the
// same transaction as the inventory decrement and only ever leaves pending
// through webhook reconciliation, exactly once.
type Purchase struct {
	ID               string         `db:"id" json:"id"`
	TicketID         string         `db:"ticket_id" json:"ticket_id"`
	Quantity         int            `db:"quantity" json:"quantity"`
	BuyerEmail       string         `db:"buyer_email" json:"buyer_email"`
	PaymentReference string         `db:"payment_reference" json:"payment_reference"`
	Status           PurchaseStatus `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the purchase has reached a final state.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseCompleted || s == PurchaseCancelled
}
