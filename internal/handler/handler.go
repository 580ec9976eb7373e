// Package handler exposes the HTTP API: auth, catalog, orders, checkout and
// the payment webhook.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/anditama/go-shop-backend/internal/domain/auth"
	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/payment"
	"github.com/anditama/go-shop-backend/internal/domain/product"
)

// Handler holds the HTTP handlers and their domain dependencies.
type Handler struct {
	auth       *auth.Service
	orders     *order.Service
	products   product.Repository
	reconciler *payment.Reconciler
}

// New constructs a Handler with the required domain dependencies.
func New(
	authSvc *auth.Service,
	orders *order.Service,
	products product.Repository,
	reconciler *payment.Reconciler,
) *Handler {
	return &Handler{
		auth:       authSvc,
		orders:     orders,
		products:   products,
		reconciler: reconciler,
	}
}

// Routes registers every API route on r. The webhook and the auth endpoints
// are public; everything else requires a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/webhooks/midtrans", h.MidtransNotification)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/user", h.CurrentUser)
		r.Post("/logout", h.Logout)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Post("/{id}/cancel", h.CancelOrder)
		})

		r.Route("/order-items", func(r chi.Router) {
			r.Get("/", h.ListOrderItems)
			r.Post("/", h.CreateOrderItem)
			r.Get("/{id}", h.GetOrderItem)
			r.Put("/{id}", h.UpdateOrderItem)
			r.Delete("/{id}", h.DeleteOrderItem)
		})

		r.Post("/checkout", h.Checkout)
		r.Post("/checkout/summary", h.CheckoutSummary)
		r.Get("/payment/{id}/status", h.PaymentStatus)
		r.Post("/payment/{id}/complete", h.CompletePayment)
	})
}
