package masterdata

import (
	"context"
	"errors"
)

// Tank represents a monitored vessel. ApexHost, when set, is the
// address of the Apex controller to poll for readings.
type Tank struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ApexHost *string `json:"apexHost"`
}

// Validate checks tank invariants.
func (t Tank) Validate() error {
	if t.Name == "" {
		return errors.New("tank: empty name")
	}
	return nil
}

// TankRepository manages tank persistence.
type TankRepository interface {
	List(ctx context.Context) ([]Tank, error)
	Get(ctx context.Context, id int64) (*Tank, error)
	Create(ctx context.Context, tank *Tank) (*Tank, error)
	Update(ctx context.Context, id int64, tank *Tank) (*Tank, error)
	Delete(ctx context.Context, id int64) error
}
