package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "reef-cloud/internal/readings/domain"
)

const defaultReadingsTable = "parameter_readings"

// ReadingRepository is a Postgres implementation for parameter readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository with default table name.
func NewReadingRepository(db *sql.DB, opts ...ReadingOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ReadingOption configures the repository.
type ReadingOption func(*ReadingRepository)

// WithReadingsTable overrides the default table name.
func WithReadingsTable(table string) ReadingOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// BulkStore inserts readings idempotently inside one transaction.
// A row that conflicts on (tank_id, parameter_id, time) yields an
// already-exists outcome; outcomes preserve input order.
func (r *ReadingRepository) BulkStore(ctx context.Context, rows []readings.ParameterReading) ([]readings.StoreOutcome, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (tank_id, parameter_id, value, time, show_in_dashboard)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tank_id, parameter_id, time) DO NOTHING
RETURNING id, tank_id, parameter_id, value, time, show_in_dashboard`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	defer stmt.Close()

	outcomes := make([]readings.StoreOutcome, 0, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			_ = tx.Rollback()
			return nil, err
		}

		var stored readings.ParameterReading
		err := stmt.QueryRowContext(ctx, row.TankID, row.ParameterID, row.Value, row.Time.UTC(), row.ShowInDashboard).Scan(
			&stored.ID,
			&stored.TankID,
			&stored.ParameterID,
			&stored.Value,
			&stored.Time,
			&stored.ShowInDashboard,
		)
		if errors.Is(err, sql.ErrNoRows) {
			outcomes = append(outcomes, readings.StoreOutcome{AlreadyExists: true})
			continue
		}
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		outcomes = append(outcomes, readings.StoreOutcome{Reading: &stored})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Create inserts a single reading, failing on conflict.
func (r *ReadingRepository) Create(ctx context.Context, row *readings.ParameterReading) (*readings.ParameterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if row == nil {
		return nil, errors.New("reading repo: nil reading")
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (tank_id, parameter_id, value, time, show_in_dashboard)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tank_id, parameter_id, time) DO NOTHING
RETURNING id, tank_id, parameter_id, value, time, show_in_dashboard`, r.table)

	var stored readings.ParameterReading
	err := r.db.QueryRowContext(ctx, query, row.TankID, row.ParameterID, row.Value, row.Time.UTC(), row.ShowInDashboard).Scan(
		&stored.ID,
		&stored.TankID,
		&stored.ParameterID,
		&stored.Value,
		&stored.Time,
		&stored.ShowInDashboard,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Latest returns the most recent reading for a (tank, parameter) pair.
func (r *ReadingRepository) Latest(ctx context.Context, tankID, parameterID int64) (*readings.ParameterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, tank_id, parameter_id, value, time, show_in_dashboard
FROM %s
WHERE tank_id = $1 AND parameter_id = $2
ORDER BY time DESC
LIMIT 1`, r.table)

	var stored readings.ParameterReading
	err := r.db.QueryRowContext(ctx, query, tankID, parameterID).Scan(
		&stored.ID,
		&stored.TankID,
		&stored.ParameterID,
		&stored.Value,
		&stored.Time,
		&stored.ShowInDashboard,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// History returns readings for the last numDays days.
func (r *ReadingRepository) History(ctx context.Context, tankID, parameterID int64, numDays int) ([]readings.ParameterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if numDays <= 0 {
		return nil, errors.New("reading repo: numDays must be positive")
	}

	query := fmt.Sprintf(`
SELECT id, tank_id, parameter_id, value, time, show_in_dashboard
FROM %s
WHERE tank_id = $1 AND parameter_id = $2 AND time >= NOW() - ($3 * INTERVAL '1 day')
ORDER BY time`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tankID, parameterID, numDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.ParameterReading
	for rows.Next() {
		var stored readings.ParameterReading
		if err := rows.Scan(
			&stored.ID,
			&stored.TankID,
			&stored.ParameterID,
			&stored.Value,
			&stored.Time,
			&stored.ShowInDashboard,
		); err != nil {
			return nil, err
		}
		result = append(result, stored)
	}
	return result, rows.Err()
}

// SetShowInDashboard updates the dashboard visibility flag.
func (r *ReadingRepository) SetShowInDashboard(ctx context.Context, id int64, show bool) (*readings.ParameterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}

	query := fmt.Sprintf(`
UPDATE %s SET show_in_dashboard = $1
WHERE id = $2
RETURNING id, tank_id, parameter_id, value, time, show_in_dashboard`, r.table)

	var stored readings.ParameterReading
	err := r.db.QueryRowContext(ctx, query, show, id).Scan(
		&stored.ID,
		&stored.TankID,
		&stored.ParameterID,
		&stored.Value,
		&stored.Time,
		&stored.ShowInDashboard,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete removes a reading by id.
func (r *ReadingRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
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
		return readings.ErrNotFound
	}
	return nil
}

// Count returns the total number of stored readings.
func (r *ReadingRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("reading repo: nil db")
	}
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
