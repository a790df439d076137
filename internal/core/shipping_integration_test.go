package core_test

import (
	"context"
	"errors"
	"testing"

	"support-agent/internal/core"

	"github.com/shopspring/decimal"
)

func TestShippingService_EstimateShipping(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewShippingService(pool, testLogger())

	estimates, err := svc.EstimateShipping(ctx, "94107", decimal.RequireFromString("2.5"))
	if err != nil {
		t.Fatalf("EstimateShipping failed: %v", err)
	}
	if len(estimates) != 4 {
		t.Fatalf("Expected 4 options, got %d", len(estimates))
	}

	// Ordered by days ascending, ties broken by cost:
	// Overnight (1d), Priority (3d, cheaper), Express Saver (3d), Ground (5d).
	wantOrder := []string{"Overnight", "Priority", "Express Saver", "Ground"}
	for i, want := range wantOrder {
		if estimates[i].ServiceType != want {
			t.Errorf("position %d: got %s, want %s", i, estimates[i].ServiceType, want)
		}
	}

	// Cost is base + per-lb × weight, rounded to cents:
	// Overnight: 24.99 + 2.00 × 2.5 = 29.99
	// Ground:     5.99 + 0.50 × 2.5 =  7.24
	if got := estimates[0].Cost.StringFixed(2); got != "29.99" {
		t.Errorf("Overnight: expected 29.99, got %s", got)
	}
	if got := estimates[3].Cost.StringFixed(2); got != "7.24" {
		t.Errorf("Ground: expected 7.24, got %s", got)
	}
}

func TestShippingService_NoRatesForZip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewShippingService(pool, testLogger())

	_, err := svc.EstimateShipping(ctx, "00000", decimal.RequireFromString("1"))
	if !errors.Is(err, core.ErrNoShippingRates) {
		t.Errorf("Expected ErrNoShippingRates, got %v", err)
	}
}

func TestShippingService_ListRates(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewShippingService(pool, testLogger())

	all, err := svc.ListRates(ctx, "", "")
	if err != nil {
		t.Fatalf("ListRates failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 rates, got %d", len(all))
	}

	fedex, err := svc.ListRates(ctx, "FedEx", "")
	if err != nil {
		t.Fatalf("ListRates FedEx failed: %v", err)
	}
	if len(fedex) != 2 {
		t.Errorf("Expected 2 FedEx rates, got %d", len(fedex))
	}

	overnight, err := svc.ListRates(ctx, "FedEx", "Overnight")
	if err != nil {
		t.Fatalf("ListRates FedEx Overnight failed: %v", err)
	}
	if len(overnight) != 1 || overnight[0].ServiceType != "Overnight" {
		t.Errorf("Expected one Overnight rate, got %+v", overnight)
	}
}
