package core_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB. Product 4 is deliberately out of stock.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE return_items, return_orders, order_items, orders,
			support_tickets, shipping_rates, products RESTART IDENTITY CASCADE;

		INSERT INTO products (id, name, description, specifications, category, price, stock_quantity, weight_lbs) VALUES
		(1, 'Wireless Mouse',      'Ergonomic wireless mouse',        'DPI: 1600',          'electronics',  24.99, 100, 0.25),
		(2, 'Mechanical Keyboard', 'Tenkeyless mechanical keyboard',  'Switches: brown',    'electronics',  89.99,  50, 2.10),
		(3, 'Laptop Stand',        'Adjustable aluminum laptop stand','Fits 10-17 inch',    'accessories', 32.99,  10, 2.80),
		(4, 'Webcam 1080p',        'Full HD webcam with autofocus',   'FOV: 78 degrees',    'electronics',  49.99,   0, 0.40);
		SELECT setval('products_id_seq', 4);

		INSERT INTO shipping_rates (carrier, service_type, base_rate, per_lb_rate, estimated_days, zip_code) VALUES
		('UPS',   'Ground',        5.99, 0.50, 5, '94107'),
		('FedEx', 'Overnight',    24.99, 2.00, 1, '94107'),
		('FedEx', 'Express Saver',10.99, 0.90, 3, '94107'),
		('USPS',  'Priority',      8.99, 0.75, 3, '94107');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
