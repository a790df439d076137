package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderService manages customer orders. CreateOrder is the only stock-mutating
// operation: header insert, item inserts, and stock decrements happen in one
// transaction, so either all of them persist or none do.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (int, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	// GetOrderWithProductNames joins items with current product names for
	// display. Names reflect the product table at read time; quantities and
	// prices come from the historical item rows.
	GetOrderWithProductNames(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, status *string) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int, status string) error
}

type orderService struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewOrderService(pool *pgxpool.Pool, log *slog.Logger) OrderService {
	return &orderService{pool: pool, log: log}
}

const orderColumns = `id, customer_name, customer_email, customer_phone,
	street_address, city, state, zip_code, status, total_amount, created_at, updated_at`

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (int, error) {
	if len(input.ProductIDs) != len(input.Quantities) {
		return 0, ErrMismatchedArrays
	}
	if len(input.ProductIDs) == 0 {
		return 0, fmt.Errorf("order must have at least one item: %w", ErrInvalidQuantities)
	}
	for _, q := range input.Quantities {
		if q < 1 {
			return 0, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidQuantities)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock each product row, verify stock, and capture the current price.
	// FOR UPDATE prevents two concurrent orders from both seeing sufficient
	// stock and together overselling.
	type line struct {
		productID int
		quantity  int
		price     decimal.Decimal
	}
	var total decimal.Decimal
	var lines []line

	for i, productID := range input.ProductIDs {
		quantity := input.Quantities[i]

		var name string
		var price decimal.Decimal
		var stock int
		err = tx.QueryRow(ctx,
			"SELECT name, price, stock_quantity FROM products WHERE id = $1 FOR UPDATE",
			productID,
		).Scan(&name, &price, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
			}
			return 0, fmt.Errorf("failed to lock product %d: %w", productID, err)
		}
		if stock < quantity {
			return 0, fmt.Errorf("%s (product %d): requested %d, available %d: %w",
				name, productID, quantity, stock, ErrOutOfStock)
		}

		total = total.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
		lines = append(lines, line{productID: productID, quantity: quantity, price: price})
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_email, customer_phone,
			street_address, city, state, zip_code, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING id
	`, input.CustomerName, input.CustomerEmail, input.CustomerPhone,
		input.StreetAddress, input.City, input.State, input.ZipCode, total).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, l := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)
		`, orderID, l.productID, l.quantity, l.price)
		if err != nil {
			return 0, fmt.Errorf("failed to insert order item for product %d: %w", l.productID, err)
		}

		_, err = tx.Exec(ctx,
			"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2",
			l.quantity, l.productID)
		if err != nil {
			return 0, fmt.Errorf("failed to decrement stock for product %d: %w", l.productID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit order creation: %w", err)
	}

	s.log.Info("order created", "order_id", orderID, "customer", input.CustomerName,
		"total", total.String())
	return orderID, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	o, err := s.fetchOrderHeader(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (s *orderService) GetOrderWithProductNames(ctx context.Context, orderID int) (*Order, error) {
	o, err := s.fetchOrderHeader(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (s *orderService) fetchOrderHeader(ctx context.Context, orderID int) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID,
	).Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.StreetAddress, &o.City, &o.State, &o.ZipCode,
		&o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	return &o, nil
}

func (s *orderService) ListOrders(ctx context.Context, status *string) ([]Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []any
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.StreetAddress, &o.City, &o.State, &o.ZipCode,
			&o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID int, status string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	s.log.Info("order status updated", "order_id", orderID, "status", status)
	return nil
}
