package readings

import (
	"context"
	"errors"
)

// ParameterGoal is the desired range for a (tank, parameter) pair,
// displayed on the dashboard alongside readings.
type ParameterGoal struct {
	ID          int64   `json:"id"`
	TankID      int64   `json:"tankId"`
	ParameterID int64   `json:"parameterId"`
	LowLimit    float64 `json:"lowLimit"`
	HighLimit   float64 `json:"highLimit"`
}

// Validate checks goal invariants.
func (g ParameterGoal) Validate() error {
	if g.TankID == 0 {
		return errors.New("goal: empty tank id")
	}
	if g.ParameterID == 0 {
		return errors.New("goal: empty parameter id")
	}
	if g.HighLimit < g.LowLimit {
		return errors.New("goal: high limit below low limit")
	}
	return nil
}

// GoalRepository manages parameter goal persistence.
type GoalRepository interface {
	List(ctx context.Context) ([]ParameterGoal, error)
	Get(ctx context.Context, id int64) (*ParameterGoal, error)
	Create(ctx context.Context, goal *ParameterGoal) (*ParameterGoal, error)
	Update(ctx context.Context, id int64, goal *ParameterGoal) (*ParameterGoal, error)
	Delete(ctx context.Context, id int64) error
}
