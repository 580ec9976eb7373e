package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Stock is the authoritative quantity counter for
// the item; it is mutated only through the order lifecycle (reserve/release)
// and never goes negative.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository defines catalog CRUD operations. Stock mutations are not part of
// this interface; they happen through the order store inside a transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}
