package handler

import (
	"net/http"
	"strconv"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

type createItemRequest struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (req *createItemRequest) validate() *order.ValidationError {
	ve := &order.ValidationError{}
	if req.OrderID <= 0 {
		ve.Add("order_id", "order_id is required")
	}
	if req.ProductID <= 0 {
		ve.Add("product_id", "product_id is required")
	}
	if req.Quantity < 1 {
		ve.Add("quantity", "quantity must be at least 1")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// ListOrderItems lists the caller's order items, optionally filtered by the
// order_id query parameter.
func (h *Handler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())

	var orderID *int64
	if raw := r.URL.Query().Get("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			ve := &order.ValidationError{}
			ve.Add("order_id", "order_id must be a positive integer")
			respondError(w, r, ve)
			return
		}
		orderID = &id
	}

	items, err := h.orders.ListItems(r.Context(), u.ID, orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newItemList(items))
}

// CreateOrderItem appends a line to one of the caller's orders.
func (h *Handler) CreateOrderItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}
	if ve := req.validate(); ve != nil {
		respondError(w, r, ve)
		return
	}

	u := userFromContext(r.Context())
	it, err := h.orders.AddItem(r.Context(), u.ID, req.OrderID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Order item created", newItemResponse(it))
}

// GetOrderItem returns one of the caller's order items.
func (h *Handler) GetOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrItemNotFound)
		return
	}
	u := userFromContext(r.Context())
	it, err := h.orders.GetItem(r.Context(), u.ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newItemResponse(it))
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateOrderItem changes a line's quantity, adjusting stock by the delta.
func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrItemNotFound)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}

	u := userFromContext(r.Context())
	it, err := h.orders.UpdateItemQuantity(r.Context(), u.ID, id, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Order item updated", newItemResponse(it))
}

// DeleteOrderItem removes a line and restores the stock it reserved.
func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, order.ErrItemNotFound)
		return
	}
	u := userFromContext(r.Context())
	if err := h.orders.RemoveItem(r.Context(), u.ID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Order item deleted")
}
