package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is one attempt to move money for a purchase. Reference is
// generated locally, is unique, and is the join key the webhook uses to
// locate the purchase it settles.
type Payment struct {
	ID               string          `db:"id" json:"id"`
	Reference        string          `db:"reference" json:"reference"`
	GatewayReference string          `db:"gateway_reference" json:"gateway_reference,omitempty"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	Email            string          `db:"email" json:"email"`
	Status           PaymentStatus   `db:"status" json:"status"`
	GatewayResponse  []byte          `db:"gateway_response" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}
