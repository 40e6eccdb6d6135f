package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("task not found")

// No foreign key on user_id: the referenced user lives in a different
// service with its own datastore.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT,
    user_id BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'completed')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const taskColumns = `id, title, description, user_id, status, created_at, updated_at`

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

// EnsureSchema creates the tasks table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure tasks schema: %w", err)
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, title string, description *string, userID int64, status Status) (*Task, error) {
	row := r.Pool.QueryRow(
		ctx,
		`INSERT INTO tasks (title, description, user_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+taskColumns,
		title, description, userID, status,
	)
	return scanTask(row)
}

func (r *Repository) FindAll(ctx context.Context) ([]Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

func (r *Repository) FindByUser(ctx context.Context, userID int64) ([]Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*Task, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// Update applies the non-nil fields of req and re-stamps updated_at.
// Zero rows matched maps to ErrNotFound, not a store error.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error) {
	row := r.Pool.QueryRow(
		ctx,
		`UPDATE tasks
		 SET title = COALESCE($2, title),
		     description = COALESCE($3, description),
		     user_id = COALESCE($4, user_id),
		     status = COALESCE($5, status),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, req.Title, req.Description, req.UserID, req.Status,
	)
	return scanTask(row)
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) (*Task, error) {
	row := r.Pool.QueryRow(
		ctx,
		`UPDATE tasks
		 SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, status,
	)
	return scanTask(row)
}

func (r *Repository) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status = $1`, status).Scan(&n)
	return n, err
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Task, error) {
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.UserID, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.UserID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
