package handler

import (
	"time"

	"github.com/anditama/go-shop-backend/internal/domain/order"
	"github.com/anditama/go-shop-backend/internal/domain/product"
	"github.com/anditama/go-shop-backend/internal/domain/user"
)

// Money values cross the wire as float64, matching what payment providers
// and storefront clients expect. Internally everything stays decimal.

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductList(ps []product.Product) []productResponse {
	out := make([]productResponse, len(ps))
	for i := range ps {
		out[i] = newProductResponse(&ps[i])
	}
	return out
}

type itemResponse struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Subtotal    float64   `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
}

func newItemResponse(it *order.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		OrderID:     it.OrderID,
		ProductID:   it.ProductID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice.InexactFloat64(),
		Subtotal:    it.Subtotal.InexactFloat64(),
		CreatedAt:   it.CreatedAt,
	}
}

func newItemList(items []order.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = newItemResponse(&items[i])
	}
	return out
}

type orderResponse struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	PaymentType   string         `json:"payment_type,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	TotalPrice    float64        `json:"total_price"`
	TotalQuantity int            `json:"total_quantity"`
	Items         []itemResponse `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentType:   o.PaymentType,
		TransactionID: o.TransactionID,
		TotalPrice:    o.TotalPrice().InexactFloat64(),
		TotalQuantity: o.TotalQuantity(),
		Items:         newItemList(o.Items),
		CreatedAt:     o.CreatedAt,
	}
}

func newOrderList(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = newOrderResponse(&orders[i])
	}
	return out
}

type paymentResponse struct {
	SnapToken  string `json:"snap_token"`
	PaymentURL string `json:"payment_url,omitempty"`
}

type checkoutResponse struct {
	Order   orderResponse   `json:"order"`
	Payment paymentResponse `json:"payment"`
}

type summaryLineResponse struct {
	ProductID       int64   `json:"product_id"`
	ProductName     string  `json:"product_name"`
	ProductPrice    float64 `json:"product_price"`
	Quantity        int     `json:"quantity"`
	Subtotal        float64 `json:"subtotal"`
	StockAvailable  int     `json:"stock_available"`
	StockSufficient bool    `json:"stock_sufficient"`
}

type summaryResponse struct {
	Items         []summaryLineResponse `json:"items"`
	TotalPrice    float64               `json:"total_price"`
	TotalQuantity int                   `json:"total_quantity"`
	TotalItems    int                   `json:"total_items"`
	Errors        []string              `json:"errors,omitempty"`
}

func newSummaryResponse(s *order.Summary) summaryResponse {
	lines := make([]summaryLineResponse, len(s.Items))
	for i, l := range s.Items {
		lines[i] = summaryLineResponse{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			ProductPrice:    l.ProductPrice.InexactFloat64(),
			Quantity:        l.Quantity,
			Subtotal:        l.Subtotal.InexactFloat64(),
			StockAvailable:  l.StockAvailable,
			StockSufficient: l.StockSufficient,
		}
	}
	return summaryResponse{
		Items:         lines,
		TotalPrice:    s.TotalPrice.InexactFloat64(),
		TotalQuantity: s.TotalQuantity,
		TotalItems:    s.TotalItems,
		Errors:        s.Errors,
	}
}

type paymentStatusResponse struct {
	OrderID       int64  `json:"order_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentType   string `json:"payment_type,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func newPaymentStatusResponse(o *order.Order) paymentStatusResponse {
	return paymentStatusResponse{
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentType:   o.PaymentType,
		TransactionID: o.TransactionID,
	}
}
