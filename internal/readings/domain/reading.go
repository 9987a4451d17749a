package readings

import (
	"context"
	"errors"
	"time"
)

// ParameterReading is one measurement for a (tank, parameter) pair.
// The (TankID, ParameterID, Time) triple is the idempotence key.
type ParameterReading struct {
	ID              int64     `json:"id"`
	TankID          int64     `json:"tankId"`
	ParameterID     int64     `json:"parameterId"`
	Value           float64   `json:"value"`
	Time            time.Time `json:"time"`
	ShowInDashboard bool      `json:"showInDashboard"`
}

// Validate checks reading invariants.
func (r ParameterReading) Validate() error {
	if r.TankID == 0 {
		return errors.New("reading: empty tank id")
	}
	if r.ParameterID == 0 {
		return errors.New("reading: empty parameter id")
	}
	if r.Time.IsZero() {
		return errors.New("reading: zero time")
	}
	return nil
}

// StoreOutcome is the per-row result of a bulk store. Exactly one of
// the two cases holds: Reading is the newly stored row, or
// AlreadyExists marks a reading that was present before the call.
type StoreOutcome struct {
	Reading       *ParameterReading `json:"reading"`
	AlreadyExists bool              `json:"alreadyExists"`
}

// ReadingRepository persists parameter readings.
type ReadingRepository interface {
	// BulkStore inserts readings idempotently. The result has the same
	// length and order as the input; individual conflicts are reported
	// as outcomes, never as errors.
	BulkStore(ctx context.Context, rows []ParameterReading) ([]StoreOutcome, error)
	Create(ctx context.Context, row *ParameterReading) (*ParameterReading, error)
	Latest(ctx context.Context, tankID, parameterID int64) (*ParameterReading, error)
	History(ctx context.Context, tankID, parameterID int64, numDays int) ([]ParameterReading, error)
	SetShowInDashboard(ctx context.Context, id int64, show bool) (*ParameterReading, error)
	Delete(ctx context.Context, id int64) error
}
