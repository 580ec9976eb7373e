package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/anditama/go-shop-backend/internal/domain/product"
)

// Store is the transactional view over orders, items and stock used by the
// lifecycle operations. All methods run inside the transaction opened by the
// surrounding UnitOfWork; the *ForUpdate reads take row locks so concurrent
// requests touching the same order or product serialize.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	// OwnedOrderForUpdate loads an order with its items, locked, scoped to
	// its owner. Returns ErrNotFound when absent or owned by someone else.
	OwnedOrderForUpdate(ctx context.Context, id, userID int64) (*Order, error)
	// OrderByPaymentRef loads an order with its items, locked, by the
	// identifier that was submitted to the payment gateway.
	OrderByPaymentRef(ctx context.Context, ref string) (*Order, error)
	SetOrderStatus(ctx context.Context, id int64, st Status, ps PaymentStatus) error
	SetPaymentSession(ctx context.Context, id int64, snapToken, paymentRef string, total decimal.Decimal) error
	SetPaymentResult(ctx context.Context, id int64, paymentType, transactionID string) error
	DeleteOrder(ctx context.Context, id int64) error

	// ProductForUpdate loads a product row with a lock, so the stock value
	// read here cannot change before ReserveStock commits.
	ProductForUpdate(ctx context.Context, productID int64) (*product.Product, error)
	// ReserveStock decrements stock by qty. The decrement is conditional on
	// stock >= qty and fails with an InsufficientStockError otherwise, so
	// stock can never go negative even without the row lock.
	ReserveStock(ctx context.Context, productID int64, qty int) error
	// ReleaseStock increments stock by qty, undoing a reservation.
	ReleaseStock(ctx context.Context, productID int64, qty int) error

	AddItem(ctx context.Context, it *Item) error
	// OwnedItemForUpdate loads an item locked, scoped to the owner of its
	// order. Returns ErrItemNotFound when absent or not owned.
	OwnedItemForUpdate(ctx context.Context, itemID, userID int64) (*Item, error)
	UpdateItemQuantity(ctx context.Context, itemID int64, qty int, subtotal decimal.Decimal) error
	DeleteItem(ctx context.Context, itemID int64) error
}

// UnitOfWork runs fn inside a single database transaction. fn observing an
// error rolls back everything the Store did; otherwise the work commits as
// one atomic unit.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Repository defines the non-transactional read side for orders and items.
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// GetOwned loads an order with items, scoped to its owner.
	GetOwned(ctx context.Context, id, userID int64) (*Order, error)
	ListItemsByUser(ctx context.Context, userID int64) ([]Item, error)
	// ListItemsByOrder lists the items of one order owned by userID.
	ListItemsByOrder(ctx context.Context, orderID, userID int64) ([]Item, error)
	GetItemOwned(ctx context.Context, itemID, userID int64) (*Item, error)
}
