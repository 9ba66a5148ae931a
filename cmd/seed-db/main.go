// Command seed-db loads development fixtures: catalog variants, shipping
// methods, demo coupons, a user projection, and API keys for both roles.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/storage/postgres"
)

type variantJSON struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	ListPrice   decimal.Decimal `json:"listPrice"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		variantsFile string
		customerKey  string
		adminKey     string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&variantsFile, "variants-file", "db/seed/variants.json", "path to variants JSON file")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or CHECKOUT_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or CHECKOUT_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHECKOUT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("CHECKOUT_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("CHECKOUT_SEED_ADMIN_KEY")
	}
	if customerKey == "" || adminKey == "" {
		slog.Error("API keys are required: set --customer-key and --admin-key")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, variantsFile, customerKey, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, variantsFile, customerKey, adminKey, pepper string) error {
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

	if err := seedVariants(ctx, pool, variantsFile); err != nil {
		return errors.Wrap(err, "seed variants")
	}
	if err := seedShippingMethods(ctx, pool); err != nil {
		return errors.Wrap(err, "seed shipping methods")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedAPIKey(ctx, pool, "customer-default", "Default customer key", "customer", customerKey, pepper); err != nil {
		return errors.Wrap(err, "seed customer api key")
	}
	if err := seedAPIKey(ctx, pool, "admin-default", "Default admin key", "admin", adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed admin api key")
	}

	return nil
}

const upsertVariantSQL = `INSERT INTO variants
		(id, product_id, product_name, sku, list_price, sale_price, weight_kg, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		product_id = EXCLUDED.product_id,
		product_name = EXCLUDED.product_name,
		sku = EXCLUDED.sku,
		list_price = EXCLUDED.list_price,
		sale_price = EXCLUDED.sale_price,
		weight_kg = EXCLUDED.weight_kg,
		stock = EXCLUDED.stock`

func seedVariants(ctx context.Context, pool *pgxpool.Pool, variantsFile string) error {
	slog.Info("reading variants file", slog.String("path", variantsFile))

	data, err := os.ReadFile(variantsFile)
	if err != nil {
		return errors.Wrap(err, "read variants file")
	}

	var variants []variantJSON
	if err := json.Unmarshal(data, &variants); err != nil {
		return errors.Wrap(err, "parse variants JSON")
	}

	slog.Info("upserting variants", slog.Int("count", len(variants)))

	for _, v := range variants {
		_, err := pool.Exec(ctx, upsertVariantSQL,
			v.ID, v.ProductID, v.ProductName, v.SKU, v.ListPrice, v.SalePrice, v.WeightKg, v.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.ID)
		}

		slog.Info("upserted variant", slog.String("id", v.ID), slog.String("sku", v.SKU))
	}

	return nil
}

const upsertShippingMethodSQL = `INSERT INTO shipping_methods
		(id, name, base_fee, extra_fee_per_kg, free_threshold)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		base_fee = EXCLUDED.base_fee,
		extra_fee_per_kg = EXCLUDED.extra_fee_per_kg,
		free_threshold = EXCLUDED.free_threshold`

func seedShippingMethods(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding shipping methods")

	methods := []struct {
		id, name                      string
		baseFee, perKg, freeThreshold string
	}{
		{"standard", "Standard delivery", "30000", "5000", "0"},
		{"express", "Express delivery", "55000", "8000", "0"},
		{"economy", "Economy delivery", "20000", "3000", "1000000"},
	}

	for _, m := range methods {
		_, err := pool.Exec(ctx, upsertShippingMethodSQL, m.id, m.name, m.baseFee, m.perKg, m.freeThreshold)
		if err != nil {
			return errors.Wrapf(err, "upsert shipping method %s", m.id)
		}

		slog.Info("upserted shipping method", slog.String("id", m.id))
	}

	return nil
}

const upsertCouponSQL = `INSERT INTO coupons
		(code, discount_type, value, min_order_amount, max_discount, usage_limit, active)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type,
		value = EXCLUDED.value,
		min_order_amount = EXCLUDED.min_order_amount,
		max_discount = EXCLUDED.max_discount,
		usage_limit = EXCLUDED.usage_limit,
		active = TRUE`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	coupons := []struct {
		code, discountType                 string
		value, minOrderAmount, maxDiscount string
		usageLimit                         int
	}{
		{"WELCOME10", "percentage", "10", "0", "50000", 0},
		{"SAVE50K", "fixed_amount", "50000", "300000", "0", 0},
		{"FLASH25", "percentage", "25", "200000", "100000", 100},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType, c.value, c.minOrderAmount, c.maxDiscount, c.usageLimit)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

const upsertUserSQL = `INSERT INTO users (id, email) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo users")

	users := [][2]string{
		{"user-demo", "demo@example.com"},
	}
	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u[0], u[1]); err != nil {
			return errors.Wrapf(err, "upsert user %s", u[0])
		}
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, role, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash,
		name = EXCLUDED.name,
		role = EXCLUDED.role,
		active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, name, role, key, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name, role); err != nil {
		return errors.Wrapf(err, "upsert api key %s", id)
	}

	slog.Info("upserted API key", slog.String("id", id), slog.String("role", role))

	return nil
}
