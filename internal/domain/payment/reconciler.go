package payment

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

// Reconciler consumes provider notifications and transitions order payment
// state. Processing for a given order is serialized by the row lock the
// store takes, and every transition is guarded by the current state, so a
// redelivered terminal notification is a no-op: stock is never released
// twice and a paid order never moves again.
type Reconciler struct {
	uow      order.UnitOfWork
	verifier Verifier
}

// NewReconciler creates a Reconciler.
func NewReconciler(uow order.UnitOfWork, verifier Verifier) *Reconciler {
	return &Reconciler{uow: uow, verifier: verifier}
}

// HandleNotification validates a notification's authenticity, resolves the
// order it refers to and applies the matching state transition:
//
//	capture (fraud accept), settlement -> paid/completed
//	pending                            -> no change
//	deny, expire, cancel               -> failed/cancelled, stock released
//	anything else                      -> acknowledged no-op
//
// Payment type and transaction id from the payload are recorded regardless
// of branch. The call is idempotent: replaying a notification for an order
// already in a terminal state changes nothing.
func (r *Reconciler) HandleNotification(ctx context.Context, n *Notification) error {
	if err := r.verifier.Verify(n); err != nil {
		return err
	}

	lg := zctx.From(ctx).With(
		zap.String("order_ref", n.OrderRef),
		zap.String("transaction_status", n.TransactionStatus),
	)

	return r.uow.Within(ctx, func(ctx context.Context, st order.Store) error {
		o, err := st.OrderByPaymentRef(ctx, n.OrderRef)
		if err != nil {
			return err
		}

		if err := st.SetPaymentResult(ctx, o.ID, n.PaymentType, n.TransactionID); err != nil {
			return err
		}

		switch n.TransactionStatus {
		case StatusCapture:
			if n.FraudStatus != FraudAccept {
				lg.Info("capture not accepted, ignoring", zap.String("fraud_status", n.FraudStatus))
				return nil
			}
			return r.markPaid(ctx, st, o, lg)

		case StatusSettlement:
			return r.markPaid(ctx, st, o, lg)

		case StatusPending:
			lg.Info("payment still pending")
			return nil

		case StatusDeny, StatusExpire, StatusCancel:
			return r.markFailed(ctx, st, o, lg)

		default:
			lg.Info("unhandled transaction status, acknowledging")
			return nil
		}
	})
}

// markPaid moves an unpaid order to paid/completed. Orders already in a
// terminal state are left untouched.
func (r *Reconciler) markPaid(ctx context.Context, st order.Store, o *order.Order, lg *zap.Logger) error {
	if o.PaymentStatus != order.PaymentUnpaid {
		lg.Info("order already in terminal state, skipping",
			zap.String("payment_status", string(o.PaymentStatus)))
		return nil
	}
	if err := st.SetOrderStatus(ctx, o.ID, order.StatusCompleted, order.PaymentPaid); err != nil {
		return err
	}
	lg.Info("order marked paid", zap.Int64("order_id", o.ID))
	return nil
}

// markFailed moves an unpaid order to failed/cancelled and releases the
// stock its items had reserved. The transition guard is what makes replays
// safe: stock is only released when actually transitioning out of unpaid.
func (r *Reconciler) markFailed(ctx context.Context, st order.Store, o *order.Order, lg *zap.Logger) error {
	if o.PaymentStatus != order.PaymentUnpaid {
		lg.Info("order already in terminal state, skipping",
			zap.String("payment_status", string(o.PaymentStatus)))
		return nil
	}

	for i := range o.Items {
		if err := st.ReleaseStock(ctx, o.Items[i].ProductID, o.Items[i].Quantity); err != nil {
			return err
		}
	}
	if err := st.SetOrderStatus(ctx, o.ID, order.StatusCancelled, order.PaymentFailed); err != nil {
		return err
	}
	lg.Info("order marked failed, stock released", zap.Int64("order_id", o.ID))
	return nil
}
