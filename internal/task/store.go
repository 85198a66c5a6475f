package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no task matches the lookup.
var ErrNotFound = errors.New("task not found")

const taskColumns = `id, object_id, title, repeat_type, repeat_interval, next_due_date, is_done, created_at`

// Store provides database operations for job-site tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a task store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scan(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.ObjectID, &t.Title, &t.RepeatType, &t.RepeatInterval,
		&t.NextDueDate, &t.IsDone, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a task under a job site.
func (s *Store) Create(ctx context.Context, objectID string, in CreateInput) (*Task, error) {
	interval := in.RepeatInterval
	if interval < 1 {
		interval = 1
	}
	t, err := scan(s.pool.QueryRow(ctx,
		`INSERT INTO tasks (object_id, title, repeat_type, repeat_interval, next_due_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+taskColumns,
		objectID, in.Title, in.RepeatType, interval, in.NextDueDate,
	))
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// GetByID retrieves one task.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	t, err := scan(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

// ListByObject returns a job site's tasks, open ones first, due soonest on
// top.
func (s *Store) ListByObject(ctx context.Context, objectID string) ([]*Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE object_id = $1
		 ORDER BY is_done ASC, next_due_date ASC NULLS LAST, created_at ASC, id ASC`,
		objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.ObjectID, &t.Title, &t.RepeatType, &t.RepeatInterval,
			&t.NextDueDate, &t.IsDone, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}

// Toggle completes or reopens a task. Completing a recurring task with a
// due date rolls the date forward and leaves the task open; a one-time
// task flips is_done. Reopening always just clears is_done.
func (s *Store) Toggle(ctx context.Context, id string) (*Task, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case t.IsDone:
		_, err = s.pool.Exec(ctx, `UPDATE tasks SET is_done = false WHERE id = $1`, id)
	case t.RepeatType != RepeatNone && t.NextDueDate != nil:
		next := NextDue(*t.NextDueDate, t.RepeatType, t.RepeatInterval)
		_, err = s.pool.Exec(ctx, `UPDATE tasks SET next_due_date = $1 WHERE id = $2`, next, id)
	default:
		_, err = s.pool.Exec(ctx, `UPDATE tasks SET is_done = true WHERE id = $1`, id)
	}
	if err != nil {
		return nil, fmt.Errorf("toggling task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
