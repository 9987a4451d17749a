package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	alarms "reef-cloud/internal/alarms/domain"
)

const defaultAlarmsTable = "alarms"

// AlarmRepository is a Postgres repository for alarms.
type AlarmRepository struct {
	db    *sql.DB
	table string
}

// AlarmOption configures the repository.
type AlarmOption func(*AlarmRepository)

// WithAlarmsTable overrides the default table name.
func WithAlarmsTable(table string) AlarmOption {
	return func(repo *AlarmRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository(db *sql.DB, opts ...AlarmOption) *AlarmRepository {
	repo := &AlarmRepository{db: db, table: defaultAlarmsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// List returns all alarms.
func (r *AlarmRepository) List(ctx context.Context) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, tank_id, parameter_id, low_limit, high_limit, severity FROM %s ORDER BY id`, r.table)
	return r.queryAlarms(ctx, query)
}

// ListByTank returns the alarms watching one tank.
func (r *AlarmRepository) ListByTank(ctx context.Context, tankID int64) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, tank_id, parameter_id, low_limit, high_limit, severity FROM %s WHERE tank_id = $1 ORDER BY id`, r.table)
	return r.queryAlarms(ctx, query, tankID)
}

// Get loads an alarm by id.
func (r *AlarmRepository) Get(ctx context.Context, id int64) (*alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, tank_id, parameter_id, low_limit, high_limit, severity FROM %s WHERE id = $1`, r.table)
	alarm, err := scanAlarm(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, alarms.ErrNotFound
	}
	return alarm, err
}

// Create inserts an alarm and fills its generated id.
func (r *AlarmRepository) Create(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil {
		return errors.New("alarm repo: nil alarm")
	}
	if err := alarm.Validate(); err != nil {
		return err
	}
	if alarm.Severity == "" {
		alarm.Severity = "medium"
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, tank_id, parameter_id, low_limit, high_limit, severity)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`, r.table)

	return r.db.QueryRowContext(ctx, query,
		alarm.Name, alarm.TankID, alarm.ParameterID, alarm.LowLimit, alarm.HighLimit, alarm.Severity,
	).Scan(&alarm.ID)
}

// Update replaces a stored alarm.
func (r *AlarmRepository) Update(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil {
		return errors.New("alarm repo: nil alarm")
	}
	if err := alarm.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s SET name = $1, tank_id = $2, parameter_id = $3, low_limit = $4, high_limit = $5, severity = $6
WHERE id = $7`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		alarm.Name, alarm.TankID, alarm.ParameterID, alarm.LowLimit, alarm.HighLimit, alarm.Severity, alarm.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alarms.ErrNotFound
	}
	return nil
}

// Delete removes an alarm by id.
func (r *AlarmRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
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
		return alarms.ErrNotFound
	}
	return nil
}

func (r *AlarmRepository) queryAlarms(ctx context.Context, query string, args ...any) ([]alarms.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []alarms.Alarm
	for rows.Next() {
		var alarm alarms.Alarm
		if err := rows.Scan(&alarm.ID, &alarm.Name, &alarm.TankID, &alarm.ParameterID, &alarm.LowLimit, &alarm.HighLimit, &alarm.Severity); err != nil {
			return nil, err
		}
		list = append(list, alarm)
	}
	return list, rows.Err()
}

func scanAlarm(row *sql.Row) (*alarms.Alarm, error) {
	var alarm alarms.Alarm
	if err := row.Scan(&alarm.ID, &alarm.Name, &alarm.TankID, &alarm.ParameterID, &alarm.LowLimit, &alarm.HighLimit, &alarm.Severity); err != nil {
		return nil, err
	}
	return &alarm, nil
}
