package order

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order lifecycle guards.
var (
	ErrNotFound          = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrOrderPaid         = errors.New("cannot modify a paid order")
	ErrPaymentNotPending = errors.New("order payment is not pending")
	ErrNotPending        = errors.New("order is not pending")
)

// ValidationError reports malformed input as per-field messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// Add appends a message to a field's error list.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field has errors.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// InsufficientStockError indicates a requested quantity exceeds the product's
// current stock.
type InsufficientStockError struct {
	ProductID int64
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Product, e.Available, e.Requested)
}

// GatewayError wraps a payment gateway failure during checkout.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
