package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by drivers when an update or delete matches no row.
var ErrNotFound = errors.New("not found")

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Name returns the migration directory name of the driver.
	Name() string
	IsInitialized(ctx context.Context) (bool, error)

	// Schedule model related methods.
	CreateSchedule(ctx context.Context, create *Schedule) (*Schedule, error)
	ListSchedules(ctx context.Context, find *FindSchedule) ([]*Schedule, error)
	UpdateSchedule(ctx context.Context, update *UpdateSchedule) error
	DeleteSchedule(ctx context.Context, delete *DeleteSchedule) error
}
