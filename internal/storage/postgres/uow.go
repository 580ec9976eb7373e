package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, status, payment_status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	ownedOrderForUpdateSQL = `SELECT ` + orderColumns + `
		FROM orders o WHERE o.id = $1 AND o.user_id = $2 FOR UPDATE`

	orderByPaymentRefSQL = `SELECT ` + orderColumns + `
		FROM orders o WHERE o.payment_ref = $1 FOR UPDATE`

	setOrderStatusSQL = `UPDATE orders
		SET status = $2, payment_status = $3, updated_at = now() WHERE id = $1`

	setPaymentSessionSQL = `UPDATE orders
		SET snap_token = $2, payment_ref = $3, total_amount = $4, updated_at = now()
		WHERE id = $1`

	setPaymentResultSQL = `UPDATE orders
		SET payment_type = $2, transaction_id = $3, updated_at = now() WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	productForUpdateSQL = `SELECT id, name, description, price, stock, image, created_at, updated_at
		FROM products WHERE id = $1 FOR UPDATE`

	// The decrement is conditional so stock cannot go negative even if the
	// caller skipped the locked read.
	reserveStockSQL = `UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	releaseStockSQL = `UPDATE products
		SET stock = stock + $2, updated_at = now() WHERE id = $1`

	productStockSQL = `SELECT name, stock FROM products WHERE id = $1`

	addItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	ownedItemForUpdateSQL = `SELECT ` + itemColumns + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		JOIN orders o ON o.id = i.order_id
		WHERE i.id = $1 AND o.user_id = $2 FOR UPDATE OF i`

	updateItemQuantitySQL = `UPDATE order_items SET quantity = $2, subtotal = $3 WHERE id = $1`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1`
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork implements order.UnitOfWork with a pgx transaction per call.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Within runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error rolls back every store operation fn performed.
func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, s order.Store) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ order.Store = (*txStore)(nil)

// txStore is the transaction-scoped implementation of order.Store.
type txStore struct {
	tx pgx.Tx
}

func (s *txStore) CreateOrder(ctx context.Context, o *order.Order) error {
	err := s.tx.QueryRow(ctx, createOrderSQL,
		o.UserID, o.Status, o.PaymentStatus,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

func (s *txStore) OwnedOrderForUpdate(ctx context.Context, id, userID int64) (*order.Order, error) {
	return s.lockOrder(ctx, ownedOrderForUpdateSQL, id, userID)
}

func (s *txStore) OrderByPaymentRef(ctx context.Context, ref string) (*order.Order, error) {
	return s.lockOrder(ctx, orderByPaymentRefSQL, ref)
}

func (s *txStore) lockOrder(ctx context.Context, query string, args ...any) (*order.Order, error) {
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("locking order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order: %w", err)
	}

	itemRows, err := s.tx.Query(ctx, listItemsByOrderIDsSQL, []int64{o.ID})
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	return &o, nil
}

func (s *txStore) SetOrderStatus(ctx context.Context, id int64, st order.Status, ps order.PaymentStatus) error {
	_, err := s.tx.Exec(ctx, setOrderStatusSQL, id, st, ps)
	if err != nil {
		return fmt.Errorf("setting order %d status: %w", id, err)
	}
	return nil
}

func (s *txStore) SetPaymentSession(ctx context.Context, id int64, snapToken, paymentRef string, total decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, setPaymentSessionSQL, id, snapToken, paymentRef, total)
	if err != nil {
		return fmt.Errorf("storing payment session for order %d: %w", id, err)
	}
	return nil
}

func (s *txStore) SetPaymentResult(ctx context.Context, id int64, paymentType, transactionID string) error {
	_, err := s.tx.Exec(ctx, setPaymentResultSQL, id, paymentType, transactionID)
	if err != nil {
		return fmt.Errorf("storing payment result for order %d: %w", id, err)
	}
	return nil
}

func (s *txStore) DeleteOrder(ctx context.Context, id int64) error {
	// Items go with the order via ON DELETE CASCADE.
	_, err := s.tx.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	return nil
}

func (s *txStore) ProductForUpdate(ctx context.Context, productID int64) (*product.Product, error) {
	rows, err := s.tx.Query(ctx, productForUpdateSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("locking product %d: %w", productID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("locking product %d: %w", productID, err)
	}
	return &p, nil
}

func (s *txStore) ReserveStock(ctx context.Context, productID int64, qty int) error {
	ct, err := s.tx.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("reserving stock for product %d: %w", productID, err)
	}
	if ct.RowsAffected() == 0 {
		// The conditional update did not match: either the product vanished
		// or the stock is short. Re-read to report which.
		var (
			name  string
			stock int
		)
		err := s.tx.QueryRow(ctx, productStockSQL, productID).Scan(&name, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reserving stock for product %d: %w", productID, err)
		}
		return &order.InsufficientStockError{
			ProductID: productID,
			Product:   name,
			Available: stock,
			Requested: qty,
		}
	}
	return nil
}

func (s *txStore) ReleaseStock(ctx context.Context, productID int64, qty int) error {
	_, err := s.tx.Exec(ctx, releaseStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("releasing stock for product %d: %w", productID, err)
	}
	return nil
}

func (s *txStore) AddItem(ctx context.Context, it *order.Item) error {
	err := s.tx.QueryRow(ctx, addItemSQL,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal,
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding order item: %w", err)
	}
	return nil
}

func (s *txStore) OwnedItemForUpdate(ctx context.Context, itemID, userID int64) (*order.Item, error) {
	rows, err := s.tx.Query(ctx, ownedItemForUpdateSQL, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("locking item %d: %w", itemID, err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("locking item %d: %w", itemID, err)
	}
	return &it, nil
}

func (s *txStore) UpdateItemQuantity(ctx context.Context, itemID int64, qty int, subtotal decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, updateItemQuantitySQL, itemID, qty, subtotal)
	if err != nil {
		return fmt.Errorf("updating item %d: %w", itemID, err)
	}
	return nil
}

func (s *txStore) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := s.tx.Exec(ctx, deleteItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", itemID, err)
	}
	return nil
}
