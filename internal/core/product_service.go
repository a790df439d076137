package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductService exposes read operations over the product catalog.
type ProductService interface {
	// SearchCatalog filters products by canonicalized category, per-word text
	// search, and an optional price comparison. Results are ordered by name.
	SearchCatalog(ctx context.Context, filter CatalogFilter) ([]Product, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)
	// CheckStock returns the current stock quantity for a product.
	CheckStock(ctx context.Context, productID int) (int, error)
}

type productService struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewProductService(pool *pgxpool.Pool, log *slog.Logger) ProductService {
	return &productService{pool: pool, log: log}
}

// pluralCategories are category names whose trailing "s" is part of the word,
// not a plural marker.
var pluralCategories = map[string]bool{
	"accessories": true,
	"electronics": true,
}

// CanonicalCategory lowercases and strips a pluralizing "s" so that
// "Electronics", "electronics", and "electronicss" all resolve to the same
// stored form.
func CanonicalCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if strings.HasSuffix(c, "s") && !pluralCategories[c] {
		c = strings.TrimSuffix(c, "s")
	}
	return c
}

const productColumns = `id, name, description, specifications, category, price, stock_quantity, weight_lbs, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Specifications, &p.Category,
		&p.Price, &p.StockQuantity, &p.WeightLbs, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productService) SearchCatalog(ctx context.Context, filter CatalogFilter) ([]Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	var args []any

	if filter.Category != "" {
		args = append(args, CanonicalCategory(filter.Category))
		query += fmt.Sprintf(" AND LOWER(category) = $%d", len(args))
	}

	if filter.SearchQuery != "" {
		// Each word must match at least one of the text fields; words combine
		// conjunctively, fields disjunctively.
		for _, word := range strings.Fields(filter.SearchQuery) {
			args = append(args, "%"+word+"%")
			n := len(args)
			query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d OR specifications ILIKE $%d)", n, n, n)
		}
	}

	if filter.Price != nil {
		op, ok := map[string]string{"gt": ">", "lt": "<", "eq": "="}[filter.PriceOp]
		if !ok {
			op = "="
		}
		args = append(args, *filter.Price)
		query += fmt.Sprintf(" AND price %s $%d", op, len(args))
	}

	query += " ORDER BY name"

	s.log.Debug("catalog search", "query", query, "args", fmt.Sprint(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Specifications, &p.Category,
			&p.Price, &p.StockQuantity, &p.WeightLbs, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *productService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return p, nil
}

func (s *productService) CheckStock(ctx context.Context, productID int) (int, error) {
	var stock int
	err := s.pool.QueryRow(ctx,
		"SELECT stock_quantity FROM products WHERE id = $1", productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to check stock for product %d: %w", productID, err)
	}
	return stock, nil
}
