// Package payment maps asynchronous provider notifications onto local order
// state transitions.
package payment

import "github.com/go-faster/errors"

// ErrInvalidSignature is returned when a webhook payload's signature does not
// match the one recomputed from the payload fields and the server key.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Transaction statuses sent by the provider.
const (
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusPending    = "pending"
	StatusDeny       = "deny"
	StatusExpire     = "expire"
	StatusCancel     = "cancel"

	FraudAccept = "accept"
)

// Notification is the JSON payload the provider posts to the webhook
// endpoint. OrderRef carries the per-attempt identifier that was submitted
// when the payment session was created.
type Notification struct {
	OrderRef          string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// Verifier authenticates a notification. Implementations recompute the
// provider signature from the payload and the configured server key.
type Verifier interface {
	Verify(n *Notification) error
}
