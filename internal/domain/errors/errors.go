package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidProgress   = errors.New("progress must be between 0 and 100")
)
