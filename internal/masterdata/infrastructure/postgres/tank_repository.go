package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "reef-cloud/internal/masterdata/domain"
)

const defaultTanksTable = "tanks"

// TankRepository is a Postgres implementation for tanks.
type TankRepository struct {
	db    DBTX
	table string
}

// NewTankRepository constructs a repository.
func NewTankRepository(db DBTX, opts ...TankOption) *TankRepository {
	repo := &TankRepository{db: db, table: defaultTanksTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// TankOption configures the repository.
type TankOption func(*TankRepository)

// WithTanksTable overrides the default table name.
func WithTanksTable(table string) TankOption {
	return func(repo *TankRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List returns all tanks.
func (r *TankRepository) List(ctx context.Context) ([]masterdata.Tank, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tank repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, apex_host FROM %s ORDER BY id`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tanks []masterdata.Tank
	for rows.Next() {
		tank, err := scanTank(rows)
		if err != nil {
			return nil, err
		}
		tanks = append(tanks, tank)
	}
	return tanks, rows.Err()
}

// Get loads a tank by id.
func (r *TankRepository) Get(ctx context.Context, id int64) (*masterdata.Tank, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tank repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, apex_host FROM %s WHERE id = $1`, r.table)
	var tank masterdata.Tank
	var host sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&tank.ID, &tank.Name, &host)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if host.Valid {
		tank.ApexHost = &host.String
	}
	return &tank, nil
}

// Create inserts a tank and returns the stored row.
func (r *TankRepository) Create(ctx context.Context, tank *masterdata.Tank) (*masterdata.Tank, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tank repo: nil db")
	}
	if tank == nil {
		return nil, errors.New("tank repo: nil tank")
	}
	if err := tank.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, apex_host)
VALUES ($1, $2)
RETURNING id, name, apex_host`, r.table)

	stored, err := r.queryOne(ctx, query, tank.Name, nullString(tank.ApexHost))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, masterdata.ErrAlreadyExists
		}
		return nil, err
	}
	return stored, nil
}

// Update replaces the mutable fields of a tank.
func (r *TankRepository) Update(ctx context.Context, id int64, tank *masterdata.Tank) (*masterdata.Tank, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tank repo: nil db")
	}
	if tank == nil {
		return nil, errors.New("tank repo: nil tank")
	}
	if err := tank.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s SET name = $1, apex_host = $2
WHERE id = $3
RETURNING id, name, apex_host`, r.table)

	stored, err := r.queryOne(ctx, query, tank.Name, nullString(tank.ApexHost), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes a tank by id.
func (r *TankRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("tank repo: nil db")
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

func (r *TankRepository) queryOne(ctx context.Context, query string, args ...any) (*masterdata.Tank, error) {
	var tank masterdata.Tank
	var host sql.NullString
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&tank.ID, &tank.Name, &host); err != nil {
		return nil, err
	}
	if host.Valid {
		tank.ApexHost = &host.String
	}
	return &tank, nil
}

func scanTank(rows *sql.Rows) (masterdata.Tank, error) {
	var tank masterdata.Tank
	var host sql.NullString
	if err := rows.Scan(&tank.ID, &tank.Name, &host); err != nil {
		return masterdata.Tank{}, err
	}
	if host.Valid {
		tank.ApexHost = &host.String
	}
	return tank, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
