package core_test

import (
	"context"
	"errors"
	"testing"

	"support-agent/internal/core"

	"github.com/shopspring/decimal"
)

func validOrderInput(productIDs, quantities []int) core.CreateOrderInput {
	return core.CreateOrderInput{
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		CustomerPhone: "555-0101",
		StreetAddress: "1 Market St",
		City:          "San Francisco",
		State:         "CA",
		ZipCode:       "94107",
		ProductIDs:    productIDs,
		Quantities:    quantities,
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	// 2 × Wireless Mouse @ 24.99 + 1 × Mechanical Keyboard @ 89.99 = 139.97
	orderID, err := svc.CreateOrder(ctx, validOrderInput([]int{1, 2}, []int{2, 1}))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	order, err := svc.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.Status != core.OrderStatusPending {
		t.Errorf("Expected pending, got %s", order.Status)
	}
	if got := order.TotalAmount.StringFixed(2); got != "139.97" {
		t.Errorf("Expected total 139.97, got %s", got)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(order.Items))
	}
	if got := order.Items[0].PriceAtPurchase.StringFixed(2); got != "24.99" {
		t.Errorf("Expected captured price 24.99, got %s", got)
	}

	// Stock must have been decremented in the same transaction.
	products := core.NewProductService(pool, testLogger())
	stock, err := products.CheckStock(ctx, 1)
	if err != nil {
		t.Fatalf("CheckStock failed: %v", err)
	}
	if stock != 98 {
		t.Errorf("Expected stock 98 after ordering 2, got %d", stock)
	}
}

func TestOrderService_CreateOrder_PriceCapture(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	orderID, err := svc.CreateOrder(ctx, validOrderInput([]int{1}, []int{1}))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// A later price change must not affect the recorded order.
	if _, err := pool.Exec(ctx, "UPDATE products SET price = 99.99 WHERE id = 1"); err != nil {
		t.Fatalf("Failed to change price: %v", err)
	}

	order, err := svc.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got := order.Items[0].PriceAtPurchase.StringFixed(2); got != "24.99" {
		t.Errorf("Expected historical price 24.99, got %s", got)
	}
	if got := order.TotalAmount.StringFixed(2); got != "24.99" {
		t.Errorf("Expected total 24.99, got %s", got)
	}
}

func TestOrderService_CreateOrder_InputValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	tests := []struct {
		name       string
		productIDs []int
		quantities []int
		wantErr    error
	}{
		{"mismatched arrays", []int{1, 2}, []int{1}, core.ErrMismatchedArrays},
		{"empty order", nil, nil, core.ErrInvalidQuantities},
		{"zero quantity", []int{1}, []int{0}, core.ErrInvalidQuantities},
		{"negative quantity", []int{1}, []int{-3}, core.ErrInvalidQuantities},
		{"unknown product", []int{999}, []int{1}, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, validOrderInput(tt.productIDs, tt.quantities))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOrderService_CreateOrder_OutOfStockIsAtomic(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	// Product 1 has plenty of stock; product 4 has none. The whole order must
	// be rejected with no partial writes.
	_, err := svc.CreateOrder(ctx, validOrderInput([]int{1, 4}, []int{1, 1}))
	if !errors.Is(err, core.ErrOutOfStock) {
		t.Fatalf("Expected ErrOutOfStock, got %v", err)
	}

	var orderCount, itemCount, stock int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&orderCount); err != nil {
		t.Fatalf("Failed to count orders: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM order_items").Scan(&itemCount); err != nil {
		t.Fatalf("Failed to count order items: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT stock_quantity FROM products WHERE id = 1").Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}

	if orderCount != 0 || itemCount != 0 {
		t.Errorf("Rejected order left rows behind: %d orders, %d items", orderCount, itemCount)
	}
	if stock != 100 {
		t.Errorf("Rejected order changed stock of product 1: got %d, want 100", stock)
	}
}

func TestOrderService_GetOrderWithProductNames(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	orderID, err := svc.CreateOrder(ctx, validOrderInput([]int{2, 3}, []int{1, 2}))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	order, err := svc.GetOrderWithProductNames(ctx, orderID)
	if err != nil {
		t.Fatalf("GetOrderWithProductNames failed: %v", err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(order.Items))
	}
	if order.Items[0].ProductName != "Mechanical Keyboard" {
		t.Errorf("Expected Mechanical Keyboard, got %q", order.Items[0].ProductName)
	}
	if order.Items[1].ProductName != "Laptop Stand" {
		t.Errorf("Expected Laptop Stand, got %q", order.Items[1].ProductName)
	}

	want := decimal.RequireFromString("89.99").Add(decimal.RequireFromString("65.98"))
	if !order.TotalAmount.Equal(want) {
		t.Errorf("Expected total %s, got %s", want, order.TotalAmount)
	}
}

func TestOrderService_ListAndUpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewOrderService(pool, testLogger())

	first, err := svc.CreateOrder(ctx, validOrderInput([]int{1}, []int{1}))
	if err != nil {
		t.Fatalf("CreateOrder 1 failed: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, validOrderInput([]int{2}, []int{1})); err != nil {
		t.Fatalf("CreateOrder 2 failed: %v", err)
	}

	if err := svc.UpdateOrderStatus(ctx, first, core.OrderStatusShipped); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}

	status := core.OrderStatusShipped
	shipped, err := svc.ListOrders(ctx, &status)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(shipped) != 1 || shipped[0].ID != first {
		t.Errorf("Expected exactly order %d shipped, got %+v", first, shipped)
	}

	all, err := svc.ListOrders(ctx, nil)
	if err != nil {
		t.Fatalf("ListOrders all failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 orders, got %d", len(all))
	}

	if err := svc.UpdateOrderStatus(ctx, 9999, core.OrderStatusShipped); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown order, got %v", err)
	}
}
