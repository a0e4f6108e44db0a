package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusFailed     OrderStatus = "FAILED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusPartial    OrderStatus = "PARTIAL"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusProcessing, OrderStatusCompleted, OrderStatusPartial},
}

// Valid reports whether status is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusFailed, OrderStatusCompleted, OrderStatusPartial:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from status.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a purchase of engagement units relayed to the fulfillment provider.
type Order struct {
	ID             string
	UserID         string
	ServiceID      string
	TargetURL      string
	Quantity       int
	PricePerUnit   decimal.Decimal
	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	Charge         decimal.Decimal
	FinalPrice     decimal.Decimal

	Status      OrderStatus
	APIOrderID  *string
	APIError    *string
	Progress    int
	Attempts    int
	ClaimToken  string
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder carries caller supplied fields for order creation.
// Nil DiscountAmount defaults to zero, nil FinalPrice defaults to Charge.
type NewOrder struct {
	UserID         string
	ServiceID      string
	TargetURL      string
	Quantity       int
	PricePerUnit   decimal.Decimal
	BaseAmount     decimal.Decimal
	DiscountAmount *decimal.Decimal
	Charge         decimal.Decimal
	FinalPrice     *decimal.Decimal
}

// OrderUpdate is applied by a conditional store update.
// Nil APIOrderID, Progress and ProcessedAt keep the stored value; nil APIError clears it.
type OrderUpdate struct {
	Status      OrderStatus
	APIOrderID  *string
	APIError    *string
	Progress    *int
	ProcessedAt *time.Time
}

// OrderFilter narrows paged order listing.
type OrderFilter struct {
	Status OrderStatus
	UserID string
	Search string
	Page   int
	Limit  int
}

// Offset returns number of rows skipped for the filter page. Pages too large
// to address saturate at math.MaxInt, which lists nothing.
func (f OrderFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// OrderPage is one page of listed orders.
type OrderPage struct {
	Items []Order
	Total int
	Page  int
	Limit int
	Pages int
}
