// Package order holds the order aggregate and the checkout orchestrator.
//
// An Order and its line items form one consistency boundary: they are created
// together with the matching stock decrements inside a single unit of work,
// and later mutated only through the lifecycle operations (cancel, complete,
// webhook reconciliation).
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the payment state of an order. Unpaid transitions to
// either paid or failed; both are terminal.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// Order is the aggregate root for a customer purchase.
type Order struct {
	ID            int64
	UserID        int64
	Status        Status
	PaymentStatus PaymentStatus

	// SnapToken is the opaque payment session token returned by the gateway.
	SnapToken string
	// PaymentRef is the identifier submitted to the gateway, unique per
	// checkout attempt. Webhook notifications carry it back.
	PaymentRef    string
	PaymentType   string
	TransactionID string
	// TotalAmount is the total snapshot submitted to the gateway. It is not
	// authoritative; TotalPrice is.
	TotalAmount decimal.Decimal

	Items     []Item
	CreatedAt time.Time
}

// Item is a single line of an order. UnitPrice is a snapshot of the product
// price at creation time; Subtotal is always Quantity x UnitPrice.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	// ProductName is denormalized from the products table when items are
	// loaded. It is not stored on the item row.
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	CreatedAt   time.Time
}

// Subtotal computes the line subtotal for a quantity at a unit price. Every
// construction or mutation of an Item must set Item.Subtotal through this
// function.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// TotalPrice is the authoritative order total, derived from line subtotals.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal)
	}
	return total
}

// TotalQuantity is the sum of line quantities.
func (o *Order) TotalQuantity() int {
	var n int
	for i := range o.Items {
		n += o.Items[i].Quantity
	}
	return n
}
