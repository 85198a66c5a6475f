package object

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no job site matches the lookup.
var ErrNotFound = errors.New("object not found")

const objectColumns = `id, name, location, description, start_date, end_date,
	 inactive, owner_user_id, team_id, created_at, updated_at`

// Store provides database operations for job sites.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a job-site store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scan(row pgx.Row) (*Object, error) {
	o := &Object{}
	err := row.Scan(
		&o.ID, &o.Name, &o.Location, &o.Description, &o.Start, &o.End,
		&o.Inactive, &o.OwnerUserID, &o.TeamID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts a job site into the given scope. Exactly one of
// ownerUserID and teamID must be non-nil.
func (s *Store) Create(ctx context.Context, in CreateInput, ownerUserID, teamID *string) (*Object, error) {
	o, err := scan(s.pool.QueryRow(ctx,
		`INSERT INTO objects (name, location, description, start_date, end_date, owner_user_id, team_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+objectColumns,
		in.Name, in.Location, in.Description, in.Start, in.End, ownerUserID, teamID,
	))
	if err != nil {
		return nil, fmt.Errorf("creating object: %w", err)
	}
	return o, nil
}

// GetByID retrieves one job site.
func (s *Store) GetByID(ctx context.Context, id string) (*Object, error) {
	o, err := scan(s.pool.QueryRow(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE id = $1`, id,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	return o, nil
}

// ListByOwner returns every job site owned privately by the user.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]*Object, error) {
	return s.list(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE owner_user_id = $1
		 ORDER BY name ASC, id ASC`,
		userID,
	)
}

// ListByTeam returns every job site scoped to the team.
func (s *Store) ListByTeam(ctx context.Context, teamID string) ([]*Object, error) {
	return s.list(ctx,
		`SELECT `+objectColumns+` FROM objects
		 WHERE team_id = $1
		 ORDER BY name ASC, id ASC`,
		teamID,
	)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Object, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	var objects []*Object
	for rows.Next() {
		o := &Object{}
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Location, &o.Description, &o.Start, &o.End,
			&o.Inactive, &o.OwnerUserID, &o.TeamID, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning object row: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating object rows: %w", err)
	}
	return objects, nil
}

// Update performs a partial update and returns the updated record.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Object, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Start != nil {
		add("start_date", *in.Start)
	} else if in.ClearStart {
		setClauses = append(setClauses, "start_date = NULL")
	}
	if in.End != nil {
		add("end_date", *in.End)
	} else if in.ClearEnd {
		setClauses = append(setClauses, "end_date = NULL")
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE objects SET %s WHERE id = $%d RETURNING `+objectColumns,
		strings.Join(setClauses, ", "), argIdx)

	o, err := scan(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("updating object: %w", err)
	}
	return o, nil
}

// SetInactive flips the user-controlled inactive flag. The flag is
// independent of the status computed from the dates.
func (s *Store) SetInactive(ctx context.Context, id string, inactive bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE objects SET inactive = $1, updated_at = now() WHERE id = $2`,
		inactive, id)
	if err != nil {
		return fmt.Errorf("setting inactive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a job site; assignments and tasks cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM objects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
