package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable item in the store catalog.
// Stock changes only through order creation (decrement); returns are recorded
// but never restock automatically.
type Product struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Specifications string          `json:"specifications"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int             `json:"stock_quantity"`
	WeightLbs      decimal.Decimal `json:"weight_lbs"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CatalogFilter narrows a catalog search. Zero values mean "no filter".
// PriceOp is one of "gt", "lt", "eq"; when Price is set with an unknown
// operator, "eq" is assumed.
type CatalogFilter struct {
	Category    string
	SearchQuery string
	Price       *decimal.Decimal
	PriceOp     string
}
