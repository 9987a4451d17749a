package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "reef-cloud/internal/masterdata/domain"
)

const defaultParametersTable = "parameters"

// ParameterRepository is a Postgres implementation for parameters.
type ParameterRepository struct {
	db    DBTX
	table string
}

// NewParameterRepository constructs a repository.
func NewParameterRepository(db DBTX, opts ...ParameterOption) *ParameterRepository {
	repo := &ParameterRepository{db: db, table: defaultParametersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ParameterOption configures the repository.
type ParameterOption func(*ParameterRepository)

// WithParametersTable overrides the default table name.
func WithParametersTable(table string) ParameterOption {
	return func(repo *ParameterRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List returns all parameters.
func (r *ParameterRepository) List(ctx context.Context) ([]masterdata.Parameter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("parameter repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, apex_name FROM %s ORDER BY id`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parameters []masterdata.Parameter
	for rows.Next() {
		var parameter masterdata.Parameter
		var apexName sql.NullString
		if err := rows.Scan(&parameter.ID, &parameter.Name, &apexName); err != nil {
			return nil, err
		}
		if apexName.Valid {
			parameter.ApexName = &apexName.String
		}
		parameters = append(parameters, parameter)
	}
	return parameters, rows.Err()
}

// Get loads a parameter by id.
func (r *ParameterRepository) Get(ctx context.Context, id int64) (*masterdata.Parameter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("parameter repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, name, apex_name FROM %s WHERE id = $1`, r.table)
	parameter, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	return parameter, err
}

// Create inserts a parameter and returns the stored row.
func (r *ParameterRepository) Create(ctx context.Context, parameter *masterdata.Parameter) (*masterdata.Parameter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("parameter repo: nil db")
	}
	if parameter == nil {
		return nil, errors.New("parameter repo: nil parameter")
	}
	if err := parameter.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (name, apex_name)
VALUES ($1, $2)
RETURNING id, name, apex_name`, r.table)

	stored, err := r.scanRow(r.db.QueryRowContext(ctx, query, parameter.Name, nullString(parameter.ApexName)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, masterdata.ErrAlreadyExists
		}
		return nil, err
	}
	return stored, nil
}

// Update replaces the mutable fields of a parameter.
func (r *ParameterRepository) Update(ctx context.Context, id int64, parameter *masterdata.Parameter) (*masterdata.Parameter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("parameter repo: nil db")
	}
	if parameter == nil {
		return nil, errors.New("parameter repo: nil parameter")
	}
	if err := parameter.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s SET name = $1, apex_name = $2
WHERE id = $3
RETURNING id, name, apex_name`, r.table)

	stored, err := r.scanRow(r.db.QueryRowContext(ctx, query, parameter.Name, nullString(parameter.ApexName), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrNotFound
	}
	return stored, err
}

// Delete removes a parameter by id.
func (r *ParameterRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("parameter repo: nil db")
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

func (r *ParameterRepository) scanRow(row *sql.Row) (*masterdata.Parameter, error) {
	var parameter masterdata.Parameter
	var apexName sql.NullString
	if err := row.Scan(&parameter.ID, &parameter.Name, &apexName); err != nil {
		return nil, err
	}
	if apexName.Valid {
		parameter.ApexName = &apexName.String
	}
	return &parameter, nil
}
