package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ShippingRate is one carrier/service price row. An estimate for weight W is
// BaseRate + PerLbRate × W.
type ShippingRate struct {
	ID            int             `json:"id"`
	Carrier       string          `json:"carrier"`
	ServiceType   string          `json:"service_type"`
	BaseRate      decimal.Decimal `json:"base_rate"`
	PerLbRate     decimal.Decimal `json:"per_lb_rate"`
	EstimatedDays int             `json:"estimated_days"`
	ZipCode       string          `json:"zip_code"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ShippingEstimate is one priced service option for a destination.
type ShippingEstimate struct {
	Carrier       string          `json:"carrier"`
	ServiceType   string          `json:"service_type"`
	Cost          decimal.Decimal `json:"estimated_cost"`
	EstimatedDays int             `json:"estimated_days"`
}

// ShippingService answers shipping-rate lookups and cost estimates.
type ShippingService interface {
	ListRates(ctx context.Context, carrier, serviceType string) ([]ShippingRate, error)
	// EstimateShipping prices every service option for the destination zip,
	// ordered by delivery days ascending then cost ascending. Returns
	// ErrNoShippingRates when no rates exist for the zip.
	EstimateShipping(ctx context.Context, destinationZip string, weightLbs decimal.Decimal) ([]ShippingEstimate, error)
}

type shippingService struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewShippingService(pool *pgxpool.Pool, log *slog.Logger) ShippingService {
	return &shippingService{pool: pool, log: log}
}

func (s *shippingService) ListRates(ctx context.Context, carrier, serviceType string) ([]ShippingRate, error) {
	query := `SELECT id, carrier, service_type, base_rate, per_lb_rate, estimated_days, zip_code, created_at
		FROM shipping_rates WHERE 1=1`
	var args []any
	if carrier != "" {
		args = append(args, carrier)
		query += fmt.Sprintf(" AND carrier = $%d", len(args))
	}
	if serviceType != "" {
		args = append(args, serviceType)
		query += fmt.Sprintf(" AND service_type = $%d", len(args))
	}
	query += " ORDER BY base_rate"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipping rates: %w", err)
	}
	defer rows.Close()

	var rates []ShippingRate
	for rows.Next() {
		var r ShippingRate
		if err := rows.Scan(&r.ID, &r.Carrier, &r.ServiceType, &r.BaseRate, &r.PerLbRate,
			&r.EstimatedDays, &r.ZipCode, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shipping rate: %w", err)
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

func (s *shippingService) EstimateShipping(ctx context.Context, destinationZip string, weightLbs decimal.Decimal) ([]ShippingEstimate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT carrier, service_type, base_rate, per_lb_rate, estimated_days
		FROM shipping_rates
		WHERE zip_code = $1
	`, destinationZip)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipping rates for %s: %w", destinationZip, err)
	}
	defer rows.Close()

	var estimates []ShippingEstimate
	for rows.Next() {
		var carrier, serviceType string
		var baseRate, perLb decimal.Decimal
		var days int
		if err := rows.Scan(&carrier, &serviceType, &baseRate, &perLb, &days); err != nil {
			return nil, fmt.Errorf("failed to scan shipping rate: %w", err)
		}
		estimates = append(estimates, ShippingEstimate{
			Carrier:       carrier,
			ServiceType:   serviceType,
			Cost:          baseRate.Add(perLb.Mul(weightLbs)).Round(2),
			EstimatedDays: days,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(estimates) == 0 {
		return nil, fmt.Errorf("zip %s: %w", destinationZip, ErrNoShippingRates)
	}

	SortEstimates(estimates)

	s.log.Debug("shipping estimated", "zip", destinationZip,
		"weight_lbs", weightLbs.String(), "options", len(estimates))
	return estimates, nil
}

// SortEstimates orders estimates by delivery days ascending, then cost
// ascending.
func SortEstimates(estimates []ShippingEstimate) {
	sort.SliceStable(estimates, func(i, j int) bool {
		if estimates[i].EstimatedDays != estimates[j].EstimatedDays {
			return estimates[i].EstimatedDays < estimates[j].EstimatedDays
		}
		return estimates[i].Cost.LessThan(estimates[j].Cost)
	})
}
