package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/product"
)

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image"`
}

func (req *productRequest) validate() *order.ValidationError {
	ve := &order.ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "name is required")
	}
	if req.Price < 0 {
		ve.Add("price", "price must not be negative")
	}
	if req.Stock < 0 {
		ve.Add("stock", "stock must not be negative")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newProductList(ps))
}

// GetProduct returns one catalog item.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, product.ErrNotFound)
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", newProductResponse(p))
}

// CreateProduct adds a catalog item.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}
	if ve := req.validate(); ve != nil {
		respondError(w, r, ve)
		return
	}

	p := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		Image:       req.Image,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Product created", newProductResponse(p))
}

// UpdateProduct replaces a catalog item's fields.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, product.ErrNotFound)
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadJSON(w)
		return
	}
	if ve := req.validate(); ve != nil {
		respondError(w, r, ve)
		return
	}

	p := &product.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		Image:       req.Image,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Product updated", newProductResponse(p))
}

// DeleteProduct removes a catalog item.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, product.ErrNotFound)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Product deleted")
}
