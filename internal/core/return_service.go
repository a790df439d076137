package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Return statuses. ProcessedAt is set exactly when status becomes "processed".
const (
	ReturnStatusPending   = "pending"
	ReturnStatusApproved  = "approved"
	ReturnStatusRejected  = "rejected"
	ReturnStatusCompleted = "completed"
	ReturnStatusProcessed = "processed"
)

// ReturnOrder is a refund request against an existing order. RefundTotal is
// derived from the historical price-at-purchase of its items and the returned
// quantities.
type ReturnOrder struct {
	ID          int             `json:"return_id"`
	OrderID     int             `json:"order_id"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	RefundTotal decimal.Decimal `json:"refund_total_amount"`
	Items       []ReturnItem    `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// ReturnItem is one returned line. The (order, product) pair must exist on
// the referenced order and the quantity may not exceed what remains
// returnable after earlier non-rejected returns.
type ReturnItem struct {
	ID              int             `json:"return_item_id,omitempty"`
	ReturnID        int             `json:"return_id"`
	ProductID       int             `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// ReturnService manages return requests.
type ReturnService interface {
	// CreateReturn records a return against orderID. With empty productIDs and
	// quantities the entire order is returned; otherwise each pair is
	// validated against the order's items and prior returns.
	CreateReturn(ctx context.Context, orderID int, reason string, productIDs, quantities []int) (int, error)
	GetReturn(ctx context.Context, returnID int) (*ReturnOrder, error)
	ListReturns(ctx context.Context, status *string) ([]ReturnOrder, error)
	UpdateReturnStatus(ctx context.Context, returnID int, status string) error
}

type returnService struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewReturnService(pool *pgxpool.Pool, log *slog.Logger) ReturnService {
	return &returnService{pool: pool, log: log}
}

func (s *returnService) CreateReturn(ctx context.Context, orderID int, reason string, productIDs, quantities []int) (int, error) {
	if len(productIDs) != len(quantities) {
		return 0, ErrMismatchedArrays
	}
	for _, q := range quantities {
		if q < 1 {
			return 0, fmt.Errorf("return quantity must be at least 1: %w", ErrInvalidQuantities)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check order %d: %w", orderID, err)
	}
	if !exists {
		return 0, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}

	// Full-order return when no specific products are named.
	if len(productIDs) == 0 {
		rows, err := tx.Query(ctx,
			"SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
		if err != nil {
			return 0, fmt.Errorf("failed to query order items: %w", err)
		}
		for rows.Next() {
			var productID, quantity int
			if err := rows.Scan(&productID, &quantity); err != nil {
				rows.Close()
				return 0, fmt.Errorf("failed to scan order item: %w", err)
			}
			productIDs = append(productIDs, productID)
			quantities = append(quantities, quantity)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, err
		}
		if len(productIDs) == 0 {
			return 0, fmt.Errorf("no items found for order %d: %w", orderID, ErrNotFound)
		}
	}

	type line struct {
		productID int
		quantity  int
		price     decimal.Decimal
	}
	var refundTotal decimal.Decimal
	var lines []line

	for i, productID := range productIDs {
		quantity := quantities[i]

		var price decimal.Decimal
		var ordered int
		err = tx.QueryRow(ctx, `
			SELECT price_at_purchase, quantity
			FROM order_items
			WHERE order_id = $1 AND product_id = $2
		`, orderID, productID).Scan(&price, &ordered)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("product %d is not on order %d: %w", productID, orderID, ErrProductNotInOrder)
			}
			return 0, fmt.Errorf("failed to fetch order item: %w", err)
		}

		// Count quantities already returned in earlier non-rejected returns,
		// so repeated partial returns cannot exceed the ordered quantity.
		var alreadyReturned int
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(ri.quantity), 0)
			FROM return_items ri
			JOIN return_orders ro ON ro.id = ri.return_id
			WHERE ro.order_id = $1 AND ri.product_id = $2 AND ro.status <> 'rejected'
		`, orderID, productID).Scan(&alreadyReturned)
		if err != nil {
			return 0, fmt.Errorf("failed to sum prior returns: %w", err)
		}

		if quantity+alreadyReturned > ordered {
			return 0, fmt.Errorf("cannot return %d of product %d: ordered %d, already returned %d: %w",
				quantity, productID, ordered, alreadyReturned, ErrQuantityExceedsOrdered)
		}

		refundTotal = refundTotal.Add(price.Mul(decimal.NewFromInt(int64(quantity))))
		lines = append(lines, line{productID: productID, quantity: quantity, price: price})
	}

	var returnID int
	err = tx.QueryRow(ctx, `
		INSERT INTO return_orders (order_id, return_reason, status, refund_total_amount)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id
	`, orderID, reason, refundTotal).Scan(&returnID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert return: %w", err)
	}

	for _, l := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO return_items (return_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)
		`, returnID, l.productID, l.quantity, l.price)
		if err != nil {
			return 0, fmt.Errorf("failed to insert return item for product %d: %w", l.productID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit return creation: %w", err)
	}

	s.log.Info("return created", "return_id", returnID, "order_id", orderID,
		"refund_total", refundTotal.String())
	return returnID, nil
}

const returnColumns = `id, order_id, return_reason, status, refund_total_amount,
	created_at, updated_at, processed_at`

func (s *returnService) GetReturn(ctx context.Context, returnID int) (*ReturnOrder, error) {
	var r ReturnOrder
	err := s.pool.QueryRow(ctx,
		"SELECT "+returnColumns+" FROM return_orders WHERE id = $1", returnID,
	).Scan(&r.ID, &r.OrderID, &r.Reason, &r.Status, &r.RefundTotal,
		&r.CreatedAt, &r.UpdatedAt, &r.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("return %d: %w", returnID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch return %d: %w", returnID, err)
	}

	items, err := s.fetchReturnItems(ctx, returnID)
	if err != nil {
		return nil, err
	}
	r.Items = items
	return &r, nil
}

func (s *returnService) fetchReturnItems(ctx context.Context, returnID int) ([]ReturnItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, return_id, product_id, quantity, price_at_purchase
		FROM return_items
		WHERE return_id = $1
		ORDER BY id
	`, returnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query return items: %w", err)
	}
	defer rows.Close()

	var items []ReturnItem
	for rows.Next() {
		var it ReturnItem
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan return item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *returnService) ListReturns(ctx context.Context, status *string) ([]ReturnOrder, error) {
	query := "SELECT " + returnColumns + " FROM return_orders"
	var args []any
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	var returns []ReturnOrder
	for rows.Next() {
		var r ReturnOrder
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Reason, &r.Status, &r.RefundTotal,
			&r.CreatedAt, &r.UpdatedAt, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range returns {
		items, err := s.fetchReturnItems(ctx, returns[i].ID)
		if err != nil {
			return nil, err
		}
		returns[i].Items = items
	}
	return returns, nil
}

func (s *returnService) UpdateReturnStatus(ctx context.Context, returnID int, status string) error {
	query := "UPDATE return_orders SET status = $1, updated_at = NOW() WHERE id = $2"
	if status == ReturnStatusProcessed {
		query = "UPDATE return_orders SET status = $1, updated_at = NOW(), processed_at = NOW() WHERE id = $2"
	}
	tag, err := s.pool.Exec(ctx, query, status, returnID)
	if err != nil {
		return fmt.Errorf("failed to update return %d status: %w", returnID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("return %d: %w", returnID, ErrNotFound)
	}
	s.log.Info("return status updated", "return_id", returnID, "status", status)
	return nil
}
