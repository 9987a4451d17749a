package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	readings "reef-cloud/internal/readings/domain"
)

const defaultGoalsTable = "parameter_goals"

// GoalRepository is a Postgres implementation for parameter goals.
type GoalRepository struct {
	db    *sql.DB
	table string
}

// NewGoalRepository constructs a repository.
func NewGoalRepository(db *sql.DB, opts ...GoalOption) *GoalRepository {
	repo := &GoalRepository{db: db, table: defaultGoalsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GoalOption configures the repository.
type GoalOption func(*GoalRepository)

// WithGoalsTable overrides the default table name.
func WithGoalsTable(table string) GoalOption {
	return func(repo *GoalRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List returns all goals.
func (r *GoalRepository) List(ctx context.Context) ([]readings.ParameterGoal, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("goal repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, tank_id, parameter_id, low_limit, high_limit FROM %s ORDER BY id`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []readings.ParameterGoal
	for rows.Next() {
		var goal readings.ParameterGoal
		if err := rows.Scan(&goal.ID, &goal.TankID, &goal.ParameterID, &goal.LowLimit, &goal.HighLimit); err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// Get loads a goal by id.
func (r *GoalRepository) Get(ctx context.Context, id int64) (*readings.ParameterGoal, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("goal repo: nil db")
	}

	query := fmt.Sprintf(`SELECT id, tank_id, parameter_id, low_limit, high_limit FROM %s WHERE id = $1`, r.table)
	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrNotFound
	}
	return goal, err
}

// Create inserts a goal and returns the stored row.
func (r *GoalRepository) Create(ctx context.Context, goal *readings.ParameterGoal) (*readings.ParameterGoal, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("goal repo: nil db")
	}
	if goal == nil {
		return nil, errors.New("goal repo: nil goal")
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (tank_id, parameter_id, low_limit, high_limit)
VALUES ($1, $2, $3, $4)
RETURNING id, tank_id, parameter_id, low_limit, high_limit`, r.table)

	stored, err := scanGoal(r.db.QueryRowContext(ctx, query, goal.TankID, goal.ParameterID, goal.LowLimit, goal.HighLimit))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, readings.ErrAlreadyExists
		}
		return nil, err
	}
	return stored, nil
}

// Update replaces the limits of a goal.
func (r *GoalRepository) Update(ctx context.Context, id int64, goal *readings.ParameterGoal) (*readings.ParameterGoal, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("goal repo: nil db")
	}
	if goal == nil {
		return nil, errors.New("goal repo: nil goal")
	}
	if goal.HighLimit < goal.LowLimit {
		return nil, errors.New("goal repo: high limit below low limit")
	}

	query := fmt.Sprintf(`
UPDATE %s SET low_limit = $1, high_limit = $2
WHERE id = $3
RETURNING id, tank_id, parameter_id, low_limit, high_limit`, r.table)

	stored, err := scanGoal(r.db.QueryRowContext(ctx, query, goal.LowLimit, goal.HighLimit, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrNotFound
	}
	return stored, err
}

// Delete removes a goal by id.
func (r *GoalRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("goal repo: nil db")
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

func scanGoal(row *sql.Row) (*readings.ParameterGoal, error) {
	var goal readings.ParameterGoal
	if err := row.Scan(&goal.ID, &goal.TankID, &goal.ParameterID, &goal.LowLimit, &goal.HighLimit); err != nil {
		return nil, err
	}
	return &goal, nil
}
