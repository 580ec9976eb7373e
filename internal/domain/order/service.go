package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/anditama/go-shop-backend/internal/domain/product"
	"github.com/anditama/go-shop-backend/internal/domain/user"
)

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CheckoutRequest is the input for Checkout and Summary.
type CheckoutRequest struct {
	Items []CheckoutItem
}

// CheckoutResult is the outcome of a successful checkout: the fully loaded
// order aggregate plus the payment session for the client to redirect to.
type CheckoutResult struct {
	Order   *Order
	Session *PaymentSession
}

// SummaryLine is one row of a checkout dry run.
type SummaryLine struct {
	ProductID       int64
	ProductName     string
	ProductPrice    decimal.Decimal
	Quantity        int
	Subtotal        decimal.Decimal
	StockAvailable  int
	StockSufficient bool
}

// Summary is the result of a side-effect-free checkout preview.
type Summary struct {
	Items         []SummaryLine
	TotalPrice    decimal.Decimal
	TotalQuantity int
	TotalItems    int
	// Errors lists items that could not be resolved (missing products).
	// Insufficient stock is flagged per line, not reported here.
	Errors []string
}

// Service orchestrates the order lifecycle: checkout, preview, cancellation,
// manual completion and line-item management.
type Service struct {
	uow      UnitOfWork
	repo     Repository
	products product.Repository
	users    user.Repository
	gateway  PaymentGateway

	now func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	uow UnitOfWork,
	repo Repository,
	products product.Repository,
	users user.Repository,
	gateway PaymentGateway,
) *Service {
	return &Service{
		uow:      uow,
		repo:     repo,
		products: products,
		users:    users,
		gateway:  gateway,
		now:      time.Now,
	}
}

func validateCheckout(req CheckoutRequest) error {
	var ve ValidationError
	if len(req.Items) == 0 {
		ve.Add("items", "at least one item is required")
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			ve.Add(fmt.Sprintf("items.%d.product_id", i), "product_id is required")
		}
		if it.Quantity < 1 {
			ve.Add(fmt.Sprintf("items.%d.quantity", i), "quantity must be at least 1")
		}
	}
	if !ve.Empty() {
		return &ve
	}
	return nil
}

// Checkout creates an order with its line items, reserves stock and opens a
// payment session, all as one atomic unit. Any failure, including a gateway
// failure after stock was reserved, rolls the whole unit back: no order, no
// items and no stock change survive.
func (s *Service) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	buyer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load buyer")
	}

	var result *CheckoutResult
	err = s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		o := &Order{
			UserID:        userID,
			Status:        StatusPending,
			PaymentStatus: PaymentUnpaid,
		}
		if err := st.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		total := decimal.Zero
		sessionItems := make([]SessionItem, 0, len(req.Items))
		for _, line := range req.Items {
			p, err := st.ProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p.Stock < line.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Product:   p.Name,
					Available: p.Stock,
					Requested: line.Quantity,
				}
			}
			if err := st.ReserveStock(ctx, p.ID, line.Quantity); err != nil {
				return err
			}

			it := &Item{
				OrderID:     o.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   p.Price,
				Subtotal:    Subtotal(line.Quantity, p.Price),
			}
			if err := st.AddItem(ctx, it); err != nil {
				return errors.Wrap(err, "add item")
			}

			o.Items = append(o.Items, *it)
			total = total.Add(it.Subtotal)
			sessionItems = append(sessionItems, SessionItem{
				ID:       p.ID,
				Name:     p.Name,
				Price:    p.Price,
				Quantity: line.Quantity,
			})
		}

		// The reference sent to the gateway is unique per attempt, so a
		// retried checkout never collides with an earlier submission of the
		// same order id on the provider side.
		ref := fmt.Sprintf("%d-%d", o.ID, s.now().Unix())

		sess, err := s.gateway.CreateSession(ctx, SessionRequest{
			OrderRef:      ref,
			GrossAmount:   total,
			CustomerName:  buyer.Name,
			CustomerEmail: buyer.Email,
			Items:         sessionItems,
		})
		if err != nil {
			return &GatewayError{Err: err}
		}

		if err := st.SetPaymentSession(ctx, o.ID, sess.Token, ref, total); err != nil {
			return errors.Wrap(err, "store payment session")
		}

		o.SnapToken = sess.Token
		o.PaymentRef = ref
		o.TotalAmount = total
		result = &CheckoutResult{Order: o, Session: sess}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Summary is a read-only dry run of a checkout: it resolves the products,
// computes line subtotals and totals, and flags lines whose quantity exceeds
// the available stock. It never mutates stock or creates an order. Missing
// products are collected into Summary.Errors instead of failing the call.
func (s *Service) Summary(ctx context.Context, req CheckoutRequest) (*Summary, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	sum := &Summary{TotalPrice: decimal.Zero}
	for _, line := range req.Items {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				sum.Errors = append(sum.Errors, fmt.Sprintf("product %d not found", line.ProductID))
				continue
			}
			return nil, errors.Wrapf(err, "get product %d", line.ProductID)
		}

		subtotal := Subtotal(line.Quantity, p.Price)
		sum.Items = append(sum.Items, SummaryLine{
			ProductID:       p.ID,
			ProductName:     p.Name,
			ProductPrice:    p.Price,
			Quantity:        line.Quantity,
			Subtotal:        subtotal,
			StockAvailable:  p.Stock,
			StockSufficient: p.Stock >= line.Quantity,
		})
		sum.TotalPrice = sum.TotalPrice.Add(subtotal)
		sum.TotalQuantity += line.Quantity
	}
	sum.TotalItems = len(sum.Items)
	return sum, nil
}

// Cancel cancels an unpaid order owned by userID: every line item's stock is
// released and the order moves to cancelled/failed. Paid orders cannot be
// cancelled.
func (s *Service) Cancel(ctx context.Context, orderID, userID int64) (*Order, error) {
	var cancelled *Order
	err := s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		o, err := st.OwnedOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == PaymentPaid {
			return ErrOrderPaid
		}

		for i := range o.Items {
			if err := st.ReleaseStock(ctx, o.Items[i].ProductID, o.Items[i].Quantity); err != nil {
				return err
			}
		}
		if err := st.SetOrderStatus(ctx, o.ID, StatusCancelled, PaymentFailed); err != nil {
			return err
		}

		o.Status = StatusCancelled
		o.PaymentStatus = PaymentFailed
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CompletePayment is the manual/simulated completion path. The order must be
// owned by userID and currently unpaid. paymentType and transactionID default
// to "manual" values when empty and a real gateway callback has not set them.
func (s *Service) CompletePayment(ctx context.Context, orderID, userID int64, paymentType, transactionID string) (*Order, error) {
	var completed *Order
	err := s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		o, err := st.OwnedOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if o.PaymentStatus != PaymentUnpaid {
			return ErrPaymentNotPending
		}

		// A pending gateway notification may already have recorded payment
		// metadata; only fall back to the manual defaults when nothing did.
		if paymentType == "" {
			paymentType = o.PaymentType
		}
		if paymentType == "" {
			paymentType = "manual"
		}
		if transactionID == "" {
			transactionID = o.TransactionID
		}
		if transactionID == "" {
			transactionID = fmt.Sprintf("manual-%d", s.now().Unix())
		}
		if err := st.SetPaymentResult(ctx, o.ID, paymentType, transactionID); err != nil {
			return err
		}
		if err := st.SetOrderStatus(ctx, o.ID, StatusCompleted, PaymentPaid); err != nil {
			return err
		}

		o.Status = StatusCompleted
		o.PaymentStatus = PaymentPaid
		o.PaymentType = paymentType
		o.TransactionID = transactionID
		completed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// Get returns an order with its items, scoped to its owner.
func (s *Service) Get(ctx context.Context, orderID, userID int64) (*Order, error) {
	return s.repo.GetOwned(ctx, orderID, userID)
}

// List returns all orders owned by userID, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes a pending order and its items, releasing the stock the
// items had reserved. Orders past pending cannot be deleted.
func (s *Service) Delete(ctx context.Context, orderID, userID int64) error {
	return s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		o, err := st.OwnedOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return ErrNotPending
		}

		for i := range o.Items {
			if err := st.ReleaseStock(ctx, o.Items[i].ProductID, o.Items[i].Quantity); err != nil {
				return err
			}
		}
		return st.DeleteOrder(ctx, o.ID)
	})
}

// AddItem appends a line to an order owned by userID, reserving stock and
// snapshotting the product's current price.
func (s *Service) AddItem(ctx context.Context, userID, orderID, productID int64, qty int) (*Item, error) {
	if qty < 1 {
		ve := &ValidationError{}
		ve.Add("quantity", "quantity must be at least 1")
		return nil, ve
	}

	var created *Item
	err := s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		if _, err := st.OwnedOrderForUpdate(ctx, orderID, userID); err != nil {
			return err
		}
		p, err := st.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			return &InsufficientStockError{
				ProductID: p.ID,
				Product:   p.Name,
				Available: p.Stock,
				Requested: qty,
			}
		}
		if err := st.ReserveStock(ctx, p.ID, qty); err != nil {
			return err
		}

		it := &Item{
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			UnitPrice:   p.Price,
			Subtotal:    Subtotal(qty, p.Price),
		}
		if err := st.AddItem(ctx, it); err != nil {
			return err
		}
		created = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItemQuantity changes a line's quantity, adjusting stock by the delta
// and recomputing the subtotal from the stored unit price snapshot.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID int64, qty int) (*Item, error) {
	if qty < 1 {
		ve := &ValidationError{}
		ve.Add("quantity", "quantity must be at least 1")
		return nil, ve
	}

	var updated *Item
	err := s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		it, err := st.OwnedItemForUpdate(ctx, itemID, userID)
		if err != nil {
			return err
		}

		delta := qty - it.Quantity
		switch {
		case delta > 0:
			p, err := st.ProductForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p.Stock < delta {
				return &InsufficientStockError{
					ProductID: p.ID,
					Product:   p.Name,
					Available: p.Stock,
					Requested: delta,
				}
			}
			if err := st.ReserveStock(ctx, it.ProductID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := st.ReleaseStock(ctx, it.ProductID, -delta); err != nil {
				return err
			}
		}

		it.Quantity = qty
		it.Subtotal = Subtotal(qty, it.UnitPrice)
		if err := st.UpdateItemQuantity(ctx, it.ID, qty, it.Subtotal); err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem deletes a line from one of the caller's orders and restores the
// stock it had reserved.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return s.uow.Within(ctx, func(ctx context.Context, st Store) error {
		it, err := st.OwnedItemForUpdate(ctx, itemID, userID)
		if err != nil {
			return err
		}
		if err := st.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
		return st.DeleteItem(ctx, it.ID)
	})
}

// ListItems lists the caller's order items, optionally scoped to one order.
func (s *Service) ListItems(ctx context.Context, userID int64, orderID *int64) ([]Item, error) {
	if orderID != nil {
		return s.repo.ListItemsByOrder(ctx, *orderID, userID)
	}
	return s.repo.ListItemsByUser(ctx, userID)
}

// GetItem returns one of the caller's order items.
func (s *Service) GetItem(ctx context.Context, userID, itemID int64) (*Item, error) {
	return s.repo.GetItemOwned(ctx, itemID, userID)
}
