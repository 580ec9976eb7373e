package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

const (
	orderColumns = `o.id, o.user_id, o.status, o.payment_status, o.snap_token,
		COALESCE(o.payment_ref, ''), o.payment_type, o.transaction_id, o.total_amount, o.created_at`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
		FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`

	getOwnedOrderSQL = `SELECT ` + orderColumns + `
		FROM orders o WHERE o.id = $1 AND o.user_id = $2`

	itemColumns = `i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_price, i.subtotal, i.created_at`

	listItemsByOrderIDsSQL = `SELECT ` + itemColumns + `
		FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1) ORDER BY i.id`

	listItemsByUserSQL = `SELECT ` + itemColumns + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		JOIN orders o ON o.id = i.order_id
		WHERE o.user_id = $1 ORDER BY i.id`

	getOwnedItemSQL = `SELECT ` + itemColumns + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		JOIN orders o ON o.id = i.order_id
		WHERE i.id = $1 AND o.user_id = $2`

	orderExistsSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1 AND user_id = $2)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements the read side of order.Repository backed by
// PostgreSQL. Writes go through the UnitOfWork store.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ListByUser returns all orders owned by userID, newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	itemRows, err := r.pool.Query(ctx, listItemsByOrderIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return orders, nil
}

// GetOwned returns one order with its items, scoped to its owner.
func (r *OrderRepository) GetOwned(ctx context.Context, id, userID int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOwnedOrderSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, listItemsByOrderIDsSQL, []int64{o.ID})
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	return &o, nil
}

// ListItemsByUser returns every order item across the caller's orders.
func (r *OrderRepository) ListItemsByUser(ctx context.Context, userID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// ListItemsByOrder returns the items of one order owned by userID.
func (r *OrderRepository) ListItemsByOrder(ctx context.Context, orderID, userID int64) ([]order.Item, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, orderID, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking order %d: %w", orderID, err)
	}
	if !exists {
		return nil, order.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, listItemsByOrderIDsSQL, []int64{orderID})
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetItemOwned returns one order item scoped to the owner of its order.
func (r *OrderRepository) GetItemOwned(ctx context.Context, itemID, userID int64) (*order.Item, error) {
	rows, err := r.pool.Query(ctx, getOwnedItemSQL, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", itemID, err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting item %d: %w", itemID, err)
	}
	return &it, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o  order.Order
		ta decimal.NullDecimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.SnapToken,
		&o.PaymentRef, &o.PaymentType, &o.TransactionID, &ta, &o.CreatedAt,
	)
	if ta.Valid {
		o.TotalAmount = ta.Decimal
	}
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.Quantity, &it.UnitPrice, &it.Subtotal, &it.CreatedAt,
	)
	return it, err
}
