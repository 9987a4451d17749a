package masterdata

import (
	"context"
	"errors"
)

// Device represents a controllable piece of equipment attached to a
// tank, addressed through its controller host.
type Device struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Host         string  `json:"host"`
	ChildName    *string `json:"childName"`
	DeviceTypeID int64   `json:"deviceTypeId"`
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.Name == "" {
		return errors.New("device: empty name")
	}
	if d.Host == "" {
		return errors.New("device: empty host")
	}
	if d.DeviceTypeID == 0 {
		return errors.New("device: empty device type id")
	}
	return nil
}

// DeviceRepository manages device persistence.
type DeviceRepository interface {
	List(ctx context.Context) ([]Device, error)
	Get(ctx context.Context, id int64) (*Device, error)
	Create(ctx context.Context, device *Device) (*Device, error)
	Update(ctx context.Context, id int64, device *Device) (*Device, error)
	Delete(ctx context.Context, id int64) error
}
