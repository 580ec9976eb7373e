package handler

import (
	"net/http"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

type checkoutItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items"`
}

func (req *checkoutRequest) toDomain() order.CheckoutRequest {
	items := make([]order.CheckoutItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return order.CheckoutRequest{Items: items}
}

// Checkout creates an order from the submitted cart, reserves stock and opens
// a payment session. The response carries the snap token the client hands to
// the provider's widget.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}

	u := userFromContext(r.Context())
	res, err := h.orders.Checkout(r.Context(), u.ID, req.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Checkout successful", checkoutResponse{
		Order: newOrderResponse(res.Order),
		Payment: paymentResponse{
			SnapToken:  res.Session.Token,
			PaymentURL: res.Session.RedirectURL,
		},
	})
}

// CheckoutSummary previews a cart without touching stock or creating rows.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}

	sum, err := h.orders.Summary(r.Context(), req.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newSummaryResponse(sum))
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	orders, err := h.orders.List(r.Context(), u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newOrderList(orders))
}

// GetOrder returns one of the caller's orders with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrNotFound)
		return
	}
	u := userFromContext(r.Context())
	o, err := h.orders.Get(r.Context(), id, u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newOrderResponse(o))
}

// DeleteOrder removes a pending order and releases its reserved stock.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrNotFound)
		return
	}
	u := userFromContext(r.Context())
	if err := h.orders.Delete(r.Context(), id, u.ID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order deleted")
}

// CancelOrder cancels an unpaid order, releasing its reserved stock.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrNotFound)
		return
	}
	u := userFromContext(r.Context())
	o, err := h.orders.Cancel(r.Context(), id, u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Order cancelled", newOrderResponse(o))
}

// PaymentStatus reports the payment state of one of the caller's orders.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrNotFound)
		return
	}
	u := userFromContext(r.Context())
	o, err := h.orders.Get(r.Context(), id, u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newPaymentStatusResponse(o))
}

type completePaymentRequest struct {
	PaymentType   string `json:"payment_type"`
	TransactionID string `json:"transaction_id"`
}

// CompletePayment marks an unpaid order as paid through the manual path.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrNotFound)
		return
	}

	var req completePaymentRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondBadJSON(w)
			return
		}
	}

	u := userFromContext(r.Context())
	o, err := h.orders.CompletePayment(r.Context(), id, u.ID, req.PaymentType, req.TransactionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Payment completed", newOrderResponse(o))
}
