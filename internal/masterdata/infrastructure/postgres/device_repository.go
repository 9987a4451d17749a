package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "reef-cloud/internal/masterdata/domain"
)

const defaultDevicesTable = "devices"

// DeviceRepository is a Postgres implementation for devices.
type DeviceRepository struct {
	db    DBTX
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDevicesTable overrides the default table name.
func WithDevicesTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List returns all devices.
func (r *DeviceRepository) List(ctx context.Context) ([]masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, host, child_name, device_type_id FROM %s ORDER BY id`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []masterdata.Device
	for rows.Next() {
		var device masterdata.Device
		var childName sql.NullString
		if err := rows.Scan(&device.ID, &device.Name, &device.Host, &childName, &device.DeviceTypeID); err != nil {
			return nil, err
		}
		if childName.Valid {
			device.ChildName = &childName.String
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// Get loads a device by id.
func (r *DeviceRepository) Get(ctx context.Context, id int64) (*masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, host, child_name, device_type_id FROM %s WHERE id = $1`, r.table)
	device, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	return device, err
}

// Create inserts a device and returns the stored row.
func (r *DeviceRepository) Create(ctx context.Context, device *masterdata.Device) (*masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if device == nil {
		return nil, errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, host, child_name, device_type_id)
VALUES ($1, $2, $3, $4)
RETURNING id, name, host, child_name, device_type_id`, r.table)

	stored, err := r.scanRow(r.db.QueryRowContext(ctx, query, device.Name, device.Host, nullString(device.ChildName), device.DeviceTypeID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, masterdata.ErrAlreadyExists
		}
		return nil, err
	}
	return stored, nil
}

// Update replaces the mutable fields of a device.
func (r *DeviceRepository) Update(ctx context.Context, id int64, device *masterdata.Device) (*masterdata.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if device == nil {
		return nil, errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s SET name = $1, host = $2, child_name = $3
WHERE id = $4
RETURNING id, name, host, child_name, device_type_id`, r.table)

	stored, err := r.scanRow(r.db.QueryRowContext(ctx, query, device.Name, device.Host, nullString(device.ChildName), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	return stored, err
}

// Delete removes a device by id.
func (r *DeviceRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return masterdata.ErrNotFound
	}
	return nil
}

func (r *DeviceRepository) scanRow(row *sql.Row) (*masterdata.Device, error) {
	var device masterdata.Device
	var childName sql.NullString
	if err := row.Scan(&device.ID, &device.Name, &device.Host, &childName, &device.DeviceTypeID); err != nil {
		return nil, err
	}
	if childName.Valid {
		device.ChildName = &childName.String
	}
	return &device, nil
}
