package core_test

import (
	"context"
	"errors"
	"testing"

	"support-agent/internal/core"

	"github.com/shopspring/decimal"
)

func TestProductService_SearchCatalog(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewProductService(pool, testLogger())

	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name      string
		filter    core.CatalogFilter
		wantNames []string
	}{
		{
			name:      "category exact",
			filter:    core.CatalogFilter{Category: "accessories"},
			wantNames: []string{"Laptop Stand"},
		},
		{
			name:      "category mixed case",
			filter:    core.CatalogFilter{Category: "Electronics"},
			wantNames: []string{"Mechanical Keyboard", "Webcam 1080p", "Wireless Mouse"},
		},
		{
			name:      "category overpluralized",
			filter:    core.CatalogFilter{Category: "electronicss"},
			wantNames: []string{"Mechanical Keyboard", "Webcam 1080p", "Wireless Mouse"},
		},
		{
			name:      "single word matches name",
			filter:    core.CatalogFilter{SearchQuery: "keyboard"},
			wantNames: []string{"Mechanical Keyboard"},
		},
		{
			name:      "words are conjunctive",
			filter:    core.CatalogFilter{SearchQuery: "wireless keyboard"},
			wantNames: nil,
		},
		{
			name:      "word matches any text field",
			filter:    core.CatalogFilter{SearchQuery: "autofocus"},
			wantNames: []string{"Webcam 1080p"},
		},
		{
			name:      "price less than",
			filter:    core.CatalogFilter{Price: price("30"), PriceOp: "lt"},
			wantNames: []string{"Wireless Mouse"},
		},
		{
			name:      "price greater than",
			filter:    core.CatalogFilter{Price: price("40"), PriceOp: "gt"},
			wantNames: []string{"Mechanical Keyboard", "Webcam 1080p"},
		},
		{
			name:      "price equal",
			filter:    core.CatalogFilter{Price: price("32.99"), PriceOp: "eq"},
			wantNames: []string{"Laptop Stand"},
		},
		{
			name:      "category and search combined",
			filter:    core.CatalogFilter{Category: "electronics", SearchQuery: "mouse"},
			wantNames: []string{"Wireless Mouse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := svc.SearchCatalog(ctx, tt.filter)
			if err != nil {
				t.Fatalf("SearchCatalog failed: %v", err)
			}
			if len(products) != len(tt.wantNames) {
				t.Fatalf("Expected %d products, got %d: %+v", len(tt.wantNames), len(products), products)
			}
			for i, want := range tt.wantNames {
				if products[i].Name != want {
					t.Errorf("position %d: got %s, want %s", i, products[i].Name, want)
				}
			}
		})
	}
}

func TestProductService_GetProductAndStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewProductService(pool, testLogger())

	p, err := svc.GetProduct(ctx, 2)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p.Name != "Mechanical Keyboard" || p.Category != "electronics" {
		t.Errorf("Unexpected product: %+v", p)
	}
	if got := p.Price.StringFixed(2); got != "89.99" {
		t.Errorf("Expected price 89.99, got %s", got)
	}

	stock, err := svc.CheckStock(ctx, 4)
	if err != nil {
		t.Fatalf("CheckStock failed: %v", err)
	}
	if stock != 0 {
		t.Errorf("Expected 0 stock for product 4, got %d", stock)
	}

	if _, err := svc.GetProduct(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CheckStock(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
