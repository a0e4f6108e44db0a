package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest describes order placement payload. Amounts accept JSON
// numbers or strings.
type CreateOrderRequest struct {
	UserID         string           `json:"userId"`
	ServiceID      string           `json:"serviceId"`
	TargetURL      string           `json:"targetUrl"`
	Quantity       int              `json:"quantity"`
	PricePerUnit   decimal.Decimal  `json:"pricePerUnit"`
	BaseAmount     decimal.Decimal  `json:"baseAmount"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	Charge         decimal.Decimal  `json:"charge"`
	FinalPrice     *decimal.Decimal `json:"finalPrice,omitempty"`
}

// OrderResponse describes an order in API responses.
type OrderResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ServiceID      string          `json:"serviceId"`
	TargetURL      string          `json:"targetUrl"`
	Quantity       int             `json:"quantity"`
	PricePerUnit   decimal.Decimal `json:"pricePerUnit"`
	BaseAmount     decimal.Decimal `json:"baseAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Charge         decimal.Decimal `json:"charge"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	Status         string          `json:"status"`
	APIOrderID     *string         `json:"apiOrderId,omitempty"`
	APIError       *string         `json:"apiError,omitempty"`
	Progress       int             `json:"progress"`
	Attempts       int             `json:"attempts"`
	ProcessedAt    *time.Time      `json:"processedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderPageResponse is one page of orders.
type OrderPageResponse struct {
	Items []OrderResponse `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Pages int             `json:"pages"`
}

// ProgressRequest reports provider side progress.
type ProgressRequest struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// SweepResponse summarizes a sweep run.
type SweepResponse struct {
	Selected   int `json:"selected"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// StatusEvent is the payload of a status server-sent event.
type StatusEvent struct {
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorResponse carries a short error description.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status string `json:"status"`
}
