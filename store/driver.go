package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Delivery model related methods.
	CreateDelivery(ctx context.Context, create *Delivery) (*Delivery, error)
	ListDeliveries(ctx context.Context, find *FindDelivery) ([]*Delivery, error)
	DeleteDeliveries(ctx context.Context, delete *DeleteDelivery) (int64, error)
}
