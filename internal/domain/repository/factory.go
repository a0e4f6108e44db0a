package repository

import "context"

// Store is a storage backend exposing domain repositories.
type Store interface {
	Orders() OrderRepository
	HealthCheck(ctx context.Context) error
	Close()
}
