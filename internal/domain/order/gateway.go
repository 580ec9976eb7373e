package order

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentSession is an opaque hosted-payment session issued by the gateway
// for one checkout attempt.
type PaymentSession struct {
	Token       string
	RedirectURL string
}

// SessionItem describes one order line to the gateway.
type SessionItem struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// SessionRequest carries everything the gateway needs to open a payment
// session. OrderRef must be unique per attempt, not just per order.
type SessionRequest struct {
	OrderRef      string
	GrossAmount   decimal.Decimal
	CustomerName  string
	CustomerEmail string
	Items         []SessionItem
}

// PaymentGateway creates hosted-payment sessions with the external provider.
// The call is synchronous external I/O; implementations apply their own
// timeouts and return an error on any network or provider failure.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
}
