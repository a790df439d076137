// seed-db is a one-shot tool to load demo catalog and shipping data.
// It is idempotent: products are keyed by name and rates by
// (carrier, service_type, zip_code), so re-running is a no-op.
//
// Usage: go run ./cmd/seed-db
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"support-agent/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (name, description, specifications, category, price, stock_quantity, weight_lbs)
		VALUES
		    ('Wireless Mouse',        'Ergonomic 2.4GHz wireless mouse with silent clicks',       'DPI: 800-1600; Battery: 1x AA; Range: 10m',             'electronics',  24.99, 120, 0.25),
		    ('Mechanical Keyboard',   'Tenkeyless mechanical keyboard with hot-swap switches',    'Layout: TKL; Switches: brown; Connection: USB-C',       'electronics',  89.99,  45, 2.10),
		    ('USB-C Hub',             '7-in-1 USB-C hub with HDMI and card reader',               'Ports: 2x USB-A, HDMI 4K, SD, microSD, PD 100W',        'electronics',  39.99,  80, 0.30),
		    ('27in 4K Monitor',       '27 inch IPS monitor with 4K resolution and HDR',           'Resolution: 3840x2160; Panel: IPS; Refresh: 60Hz',      'electronics', 329.99,  18, 12.50),
		    ('Noise-Cancel Earbuds',  'True wireless earbuds with active noise cancellation',     'ANC: -35dB; Battery: 6h + 24h case; Bluetooth 5.3',     'electronics',  79.99,  60, 0.15),
		    ('Webcam 1080p',          'Full HD webcam with autofocus and dual microphones',       'Resolution: 1920x1080@30fps; FOV: 78 degrees',          'electronics',  49.99,  35, 0.40),
		    ('Laptop Stand',          'Adjustable aluminum laptop stand',                         'Height: 6 levels; Fits: 10-17 inch laptops',            'accessories', 32.99,  70, 2.80),
		    ('Keyboard Wrist Rest',   'Memory foam wrist rest for full-size keyboards',           'Length: 17.3 inch; Material: memory foam',              'accessories', 14.99, 150, 0.70),
		    ('Cable Organizer Kit',   'Desk cable management kit with sleeves and clips',         'Contents: 2 sleeves, 10 clips, 20 ties',                'accessories',  9.99, 200, 0.50),
		    ('Monitor Light Bar',     'Screen-mounted LED light bar with touch dimming',       'CRI: 95+; Power: USB; Width: 17.7 inch',                'accessories', 44.99,  55, 1.20)
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	log.Println("Seeding shipping rates...")
	_, err = tx.Exec(ctx, `
		INSERT INTO shipping_rates (carrier, service_type, base_rate, per_lb_rate, estimated_days, zip_code)
		VALUES
		    ('UPS',   'Ground',    5.99, 0.50, 5, '94107'),
		    ('UPS',   '2-Day Air', 12.99, 1.20, 2, '94107'),
		    ('FedEx', 'Ground',    6.49, 0.45, 5, '94107'),
		    ('FedEx', 'Overnight', 24.99, 2.00, 1, '94107'),
		    ('USPS',  'Priority',  8.99, 0.75, 3, '94107'),
		    ('UPS',   'Ground',    6.99, 0.55, 6, '10001'),
		    ('UPS',   '2-Day Air', 13.99, 1.25, 2, '10001'),
		    ('FedEx', 'Ground',    7.49, 0.50, 6, '10001'),
		    ('FedEx', 'Overnight', 27.99, 2.20, 1, '10001'),
		    ('USPS',  'Priority',  9.99, 0.80, 3, '10001')
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed shipping rates: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
}
