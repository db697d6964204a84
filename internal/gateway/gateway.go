package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// InitializeRequest asks the gateway to set up a charge. Reference is
// generated by us and is the key the webhook will later settle against.
type InitializeRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Email     string
	Reference string
}

// InitializeResult is the gateway's answer to a charge setup.
type InitializeResult struct {
	GatewayReference string
	AuthorizationURL string
	RawResponse      []byte
}

// VerifyResult is the gateway's authoritative view of a transaction,
// fetched out of band from any webhook claim.
type VerifyResult struct {
	Success     bool
	RawResponse []byte
}

// Gateway is the narrow payment-provider contract the orchestrators and
// the webhook reconciler consume. Implementations are plain HTTP clients
// with no local state.
type Gateway interface {
	// Name identifies the provider, e.g. "paystack".
	Name() string

	// Initialize sets up a remote charge. A declined initialization is an
	// error; no reservation may survive it.
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResult, error)

	// Verify fetches the transaction status for a reference.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)

	// VerifySignature checks a webhook's keyed-hash signature over the
	// raw, unparsed request body.
	VerifySignature(body []byte, signature string) bool
}
