package domain

import (
	"context"
	"errors"
)

// Alarm is a threshold band watching one parameter on one tank. A
// reading above HighLimit or below LowLimit breaches the alarm; a nil
// limit leaves that side open.
type Alarm struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	TankID      int64    `json:"tankId"`
	ParameterID int64    `json:"parameterId"`
	LowLimit    *float64 `json:"lowLimit,omitempty"`
	HighLimit   *float64 `json:"highLimit,omitempty"`
	Severity    string   `json:"severity,omitempty"`
}

// Validate checks invariants before persistence.
func (a Alarm) Validate() error {
	if a.Name == "" {
		return errors.New("alarm: name is required")
	}
	if a.TankID <= 0 {
		return errors.New("alarm: tank id is required")
	}
	if a.ParameterID <= 0 {
		return errors.New("alarm: parameter id is required")
	}
	if a.LowLimit == nil && a.HighLimit == nil {
		return errors.New("alarm: at least one limit is required")
	}
	if a.LowLimit != nil && a.HighLimit != nil && *a.LowLimit >= *a.HighLimit {
		return errors.New("alarm: low limit must be below high limit")
	}
	return nil
}

// Breach reports the direction a value breaches the band in, if any.
func (a Alarm) Breach(value float64) (string, bool) {
	if a.HighLimit != nil && value > *a.HighLimit {
		return BreachHigh, true
	}
	if a.LowLimit != nil && value < *a.LowLimit {
		return BreachLow, true
	}
	return "", false
}

const (
	BreachHigh = "high"
	BreachLow  = "low"
)

// AlarmRepository is the persistence port for alarms.
type AlarmRepository interface {
	List(ctx context.Context) ([]Alarm, error)
	ListByTank(ctx context.Context, tankID int64) ([]Alarm, error)
	Get(ctx context.Context, id int64) (*Alarm, error)
	Create(ctx context.Context, alarm *Alarm) error
	Update(ctx context.Context, alarm *Alarm) error
	Delete(ctx context.Context, id int64) error
}
