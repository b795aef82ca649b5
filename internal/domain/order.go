package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus captures where an order sits in the kitchen workflow.
type OrderStatus string

const (
	// OrderStatusPending is assigned to every newly placed order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed marks an order accepted by staff.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing marks an order being blended.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusDelivered marks an order handed to the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled marks an order that will not be fulfilled.
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// OrderStatuses lists every status in workflow order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus normalises the raw value and reports whether it is a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	candidate := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range orderStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// OrderItem is a snapshot of a cart line at the moment the order was placed.
type OrderItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a persisted customer order.
type Order struct {
	ID            string
	CustomerName  string
	CustomerEmail string
	Items         []OrderItem
	Total         decimal.Decimal
	Status        OrderStatus
	CreatedAt     time.Time
}

// OrderDraft is what a storefront submits to place an order.
type OrderDraft struct {
	CustomerName  string
	CustomerEmail string
	Items         []OrderItem
	Total         decimal.Decimal
}

// SumItems totals the supplied items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DashboardStats summarises the store for the admin landing page.
type DashboardStats struct {
	Products   int
	Categories int
	Orders     int
	Revenue    decimal.Decimal
}
