package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Transitions are monotone through the fulfilment sequence;
// cancelled may be entered from any non-terminal status. The adapter does not
// guard transitions — lifecycle policy belongs to callers.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is a customer order header. TotalAmount is derived at creation from
// the item prices captured in the same transaction and is immutable after.
type Order struct {
	ID            int             `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	StreetAddress string          `json:"street_address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	ZipCode       string          `json:"zip_code"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []OrderItem     `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is one line on an order. PriceAtPurchase is captured from the
// product at order creation and never tracks later price changes.
type OrderItem struct {
	ID              int             `json:"order_item_id,omitempty"`
	OrderID         int             `json:"order_id"`
	ProductID       int             `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"` // joined at read time
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// CreateOrderInput carries everything needed to place an order.
// ProductIDs and Quantities are parallel arrays.
type CreateOrderInput struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StreetAddress string
	City          string
	State         string
	ZipCode       string
	ProductIDs    []int
	Quantities    []int
}
