// Command seed-db loads the catalog from a JSON file and creates an initial
// user, running migrations first. It is idempotent: products are upserted by
// name and the user is skipped when the email already exists.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/anditama/go-shop-backend/internal/storage/postgres"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		userEmail    string
		userPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&userEmail, "user-email", "", "initial user email (or SHOP_SEED_EMAIL env)")
	flag.StringVar(&userPassword, "user-password", "", "initial user password (or SHOP_SEED_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if userEmail == "" {
		userEmail = os.Getenv("SHOP_SEED_EMAIL")
	}
	if userPassword == "" {
		userPassword = os.Getenv("SHOP_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, userEmail, userPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, userEmail, userPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if userEmail != "" && userPassword != "" {
		if err := seedUser(ctx, pool, userEmail, userPassword); err != nil {
			return errors.Wrap(err, "seed user")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	const upsertSQL = `
		INSERT INTO products (name, description, price, stock, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			price       = EXCLUDED.price,
			stock       = EXCLUDED.stock,
			image       = EXCLUDED.image,
			updated_at  = now()`

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertSQL, p.Name, p.Description, p.Price, p.Stock, p.Image); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}

		slog.Info("upserted product", slog.String("name", p.Name))
	}

	return nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	slog.Info("seeding initial user", slog.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	const insertSQL = `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING`

	if _, err := pool.Exec(ctx, insertSQL, "Admin", email, string(hash)); err != nil {
		return errors.Wrap(err, "insert user")
	}

	return nil
}
