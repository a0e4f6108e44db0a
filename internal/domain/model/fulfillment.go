package model

import "time"

// FulfillmentRequest is submitted to the external provider.
type FulfillmentRequest struct {
	OrderID   string
	ServiceID string
	TargetURL string
	Quantity  int
}

// FulfillmentResult is the provider's answer to a submission.
type FulfillmentResult struct {
	Success         bool
	ExternalOrderID string
	ErrorMessage    string
}

// StatusUpdate is pushed to subscribers after an order changes state.
type StatusUpdate struct {
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	Progress  int         `json:"progress"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ProgressUpdate reports provider side progress for an order in flight.
type ProgressUpdate struct {
	Status   OrderStatus
	Progress int
}

// SweepReport summarizes one stale order sweep. Skipped counts candidates that
// were still PENDING after dispatch, typically because another worker holds the claim.
type SweepReport struct {
	Selected   int
	Dispatched int
	Skipped    int
	Failed     int
}
