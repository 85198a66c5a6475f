package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no contact matches the lookup.
var ErrNotFound = errors.New("contact not found")

const contactColumns = `c.id, c.name, c.roles, c.email, c.phone, c.birthday, c.cost,
	 c.working_from, c.working_to, c.is_favorite, c.is_blacklisted,
	 c.owner_user_id, c.team_id, c.created_at, c.updated_at,
	 COALESCE(array_agg(o.name ORDER BY o.name) FILTER (WHERE o.name IS NOT NULL), '{}')`

const contactJoins = `FROM contacts c
	 LEFT JOIN workingon w ON w.contact_id = c.id
	 LEFT JOIN objects o ON o.id = w.object_id`

// Store provides database operations for contacts. The Objects projection
// is joined in from assignments on every read.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a contact store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanContact(row pgx.Row) (*Contact, error) {
	c := &Contact{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Roles, &c.Email, &c.Phone, &c.Birthday, &c.Cost,
		&c.WorkingFrom, &c.WorkingTo, &c.IsFavorite, &c.IsBlacklisted,
		&c.OwnerUserID, &c.TeamID, &c.CreatedAt, &c.UpdatedAt, &c.Objects,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a contact into the given scope. Exactly one of ownerUserID
// and teamID must be non-nil; the check constraint backs this up.
func (s *Store) Create(ctx context.Context, in CreateInput, ownerUserID, teamID *string) (*Contact, error) {
	roles := in.Roles
	if roles == nil {
		roles = []string{}
	}
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (name, roles, email, phone, birthday, cost,
		         working_from, working_to, owner_user_id, team_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		in.Name, roles, in.Email, in.Phone, in.Birthday, in.Cost,
		in.WorkingFrom, in.WorkingTo, ownerUserID, teamID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves one contact with its job-site projection.
func (s *Store) GetByID(ctx context.Context, id string) (*Contact, error) {
	c, err := scanContact(s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` `+contactJoins+`
		 WHERE c.id = $1
		 GROUP BY c.id`,
		id,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return c, nil
}

// ListByOwner returns every contact owned privately by the user.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]*Contact, error) {
	return s.list(ctx,
		`SELECT `+contactColumns+` `+contactJoins+`
		 WHERE c.owner_user_id = $1
		 GROUP BY c.id
		 ORDER BY c.name ASC, c.id ASC`,
		userID,
	)
}

// ListByTeam returns every contact scoped to the team.
func (s *Store) ListByTeam(ctx context.Context, teamID string) ([]*Contact, error) {
	return s.list(ctx,
		`SELECT `+contactColumns+` `+contactJoins+`
		 WHERE c.team_id = $1
		 GROUP BY c.id
		 ORDER BY c.name ASC, c.id ASC`,
		teamID,
	)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Contact, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		c := &Contact{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Roles, &c.Email, &c.Phone, &c.Birthday, &c.Cost,
			&c.WorkingFrom, &c.WorkingTo, &c.IsFavorite, &c.IsBlacklisted,
			&c.OwnerUserID, &c.TeamID, &c.CreatedAt, &c.UpdatedAt, &c.Objects,
		); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contact rows: %w", err)
	}
	return contacts, nil
}

// Update performs a partial update and returns the updated record.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Contact, error) {
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
	if in.Roles != nil {
		add("roles", *in.Roles)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.Phone != nil {
		add("phone", *in.Phone)
	}
	if in.Birthday != nil {
		add("birthday", *in.Birthday)
	} else if in.ClearBirthday {
		setClauses = append(setClauses, "birthday = NULL")
	}
	if in.Cost != nil {
		add("cost", *in.Cost)
	} else if in.ClearCost {
		setClauses = append(setClauses, "cost = NULL")
	}
	if in.WorkingFrom != nil {
		add("working_from", *in.WorkingFrom)
	} else if in.ClearWorkingFrom {
		setClauses = append(setClauses, "working_from = NULL")
	}
	if in.WorkingTo != nil {
		add("working_to", *in.WorkingTo)
	} else if in.ClearWorkingTo {
		setClauses = append(setClauses, "working_to = NULL")
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE contacts SET %s WHERE id = $%d`,
		strings.Join(setClauses, ", "), argIdx)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// SetFavorite flips the favorite flag.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET is_favorite = $1, updated_at = now() WHERE id = $2`,
		favorite, id)
	if err != nil {
		return fmt.Errorf("setting favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBlacklisted flips the blacklist flag.
func (s *Store) SetBlacklisted(ctx context.Context, id string, blacklisted bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET is_blacklisted = $1, updated_at = now() WHERE id = $2`,
		blacklisted, id)
	if err != nil {
		return fmt.Errorf("setting blacklisted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a contact; assignments and reviews cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
