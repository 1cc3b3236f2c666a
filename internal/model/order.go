package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus normalizes input; empty => pending.
// Returns (value, true) if valid; otherwise (pending, false).
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return OrderStatusPending, true
	case "paid":
		return OrderStatusPaid, true
	case "shipped":
		return OrderStatusShipped, true
	case "cancelled":
		return OrderStatusCancelled, true
	default:
		return OrderStatusPending, false
	}
}

// OrderItem is one line of an order. Prices are minor units (cents).
type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

// OrderItems is stored as a JSON column on both the orders table and the
// order_views table.
type OrderItems []OrderItem

func (it OrderItems) Value() (driver.Value, error) {
	if it == nil {
		it = OrderItems{}
	}
	return json.Marshal(it)
}

func (it *OrderItems) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*it = nil
		return nil
	case []byte:
		return json.Unmarshal(v, it)
	case string:
		return json.Unmarshal([]byte(v), it)
	default:
		return fmt.Errorf("order items: cannot scan %T", src)
	}
}

// Total is sum(unit_price * quantity) over the lines.
func (it OrderItems) Total() int64 {
	var sum int64
	for _, i := range it {
		sum += i.UnitPrice * i.Quantity
	}
	return sum
}

// Address is the shipping/billing address snapshot.
type Address struct {
	Street     string `json:"street"      db:"street"`
	City       string `json:"city"        db:"city"`
	PostalCode string `json:"postal_code" db:"postal_code"`
	Country    string `json:"country"     db:"country"`
}

// Payment is the payment method snapshot. CardNumber is stored masked.
type Payment struct {
	CardName   string `json:"card_name"   db:"card_name"`
	CardNumber string `json:"card_number" db:"card_number"`
	Expiration string `json:"expiration"  db:"card_expiration"`
}

// Order is the write-side aggregate persisted in the orders table.
// RowVersion is the optimistic-concurrency token: bumped by exactly one on
// every successful mutation and copied onto the outbox record as version_id.
type Order struct {
	ID         string      `db:"id"` // ULID
	BuyerID    string      `db:"buyer_id"`
	BuyerName  string      `db:"buyer_name"`
	Items      OrderItems  `db:"items"`
	Address    Address     `db:"address"`
	Payment    Payment     `db:"payment"`
	Status     OrderStatus `db:"status"`
	TotalPrice int64       `db:"total_price"`
	RowVersion int64       `db:"row_version"`
	IsDeleted  bool        `db:"is_deleted"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}
