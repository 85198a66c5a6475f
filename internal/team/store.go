package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRow is returned by store lookups that found nothing. The service
// translates it into its own error vocabulary.
var ErrNoRow = errors.New("no matching row")

// Store is the persistence surface the team service runs on. InTx runs fn
// against a store view bound to one serializable transaction; every
// guard-then-write sequence in the service goes through it.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	CreateTeam(ctx context.Context, name, inviteCode, createdBy string) (*Team, error)
	GetTeam(ctx context.Context, id string) (*Team, error)
	GetTeamByInviteCode(ctx context.Context, code string) (*Team, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	SetInviteCode(ctx context.Context, teamID, code string) error
	DeleteTeam(ctx context.Context, id string) error

	GetMember(ctx context.Context, teamID, userID string) (*Member, error)
	ListMembers(ctx context.Context, teamID string) ([]*Member, error)
	ListMembershipsForUser(ctx context.Context, userID string) ([]*Membership, error)
	CountMembers(ctx context.Context, teamID string) (int, error)
	CountApprovedAdmins(ctx context.Context, teamID string) (int, error)
	AddMember(ctx context.Context, teamID, userID string, role Role, status Status) (*Member, error)
	SetMemberStatus(ctx context.Context, memberID string, status Status) error
	SetMemberRole(ctx context.Context, memberID string, role Role) error
	DeleteMember(ctx context.Context, memberID string) error
}

// dbtx is the slice of pgx surface shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgStore is the PostgreSQL-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
	db   dbtx
}

// NewPgStore creates a team store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

// InTx runs fn inside one serializable transaction. A store already bound
// to a transaction reuses it.
func (s *PgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.db.(pgx.Tx); ok {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PgStore{pool: s.pool, db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CreateTeam inserts a team row.
func (s *PgStore) CreateTeam(ctx context.Context, name, inviteCode, createdBy string) (*Team, error) {
	t := &Team{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO teams (name, invite_code, created_by)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, invite_code, created_by, created_at`,
		name, inviteCode, createdBy,
	).Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	return t, nil
}

// GetTeam retrieves a team by primary key.
func (s *PgStore) GetTeam(ctx context.Context, id string) (*Team, error) {
	t := &Team{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, invite_code, created_by, created_at FROM teams WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// GetTeamByInviteCode retrieves a team by its invite code.
func (s *PgStore) GetTeamByInviteCode(ctx context.Context, code string) (*Team, error) {
	t := &Team{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, invite_code, created_by, created_at FROM teams WHERE invite_code = $1`,
		code,
	).Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("getting team by invite code: %w", err)
	}
	return t, nil
}

// InviteCodeExists reports whether any team already carries the code.
func (s *PgStore) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE invite_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invite code: %w", err)
	}
	return exists, nil
}

// SetInviteCode replaces a team's invite code.
func (s *PgStore) SetInviteCode(ctx context.Context, teamID, code string) error {
	tag, err := s.db.Exec(ctx, `UPDATE teams SET invite_code = $1 WHERE id = $2`, code, teamID)
	if err != nil {
		return fmt.Errorf("setting invite code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}

// DeleteTeam removes a team; membership rows cascade.
func (s *PgStore) DeleteTeam(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}

// GetMember retrieves the membership row for one (team, user) pair.
func (s *PgStore) GetMember(ctx context.Context, teamID, userID string) (*Member, error) {
	m := &Member{}
	err := s.db.QueryRow(ctx,
		`SELECT id, team_id, user_id, role, status, created_at
		 FROM team_members WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRow
	}
	if err != nil {
		return nil, fmt.Errorf("getting team member: %w", err)
	}
	return m, nil
}

// ListMembers returns all membership rows of a team, joined with user name
// and email, admins first and then by join time.
func (s *PgStore) ListMembers(ctx context.Context, teamID string) ([]*Member, error) {
	rows, err := s.db.Query(ctx,
		`SELECT m.id, m.team_id, m.user_id, m.role, m.status, m.created_at,
		        u.name, u.email
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = $1
		 ORDER BY m.role = 'ADMIN' DESC, m.created_at ASC, m.id ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// ListMembershipsForUser returns every team the user has a row in, with the
// user's own role and status.
func (s *PgStore) ListMembershipsForUser(ctx context.Context, userID string) ([]*Membership, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.id, t.name, t.invite_code, t.created_by, t.created_at, m.role, m.status
		 FROM team_members m
		 JOIN teams t ON t.id = m.team_id
		 WHERE m.user_id = $1
		 ORDER BY t.created_at ASC, t.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		t := &Team{}
		ms := &Membership{Team: t}
		if err := rows.Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedBy, &t.CreatedAt, &ms.Role, &ms.Status); err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		memberships = append(memberships, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}
	return memberships, nil
}

// CountMembers counts every membership row of a team, any status.
func (s *PgStore) CountMembers(ctx context.Context, teamID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting members: %w", err)
	}
	return n, nil
}

// CountApprovedAdmins counts the approved admins of a team.
func (s *PgStore) CountApprovedAdmins(ctx context.Context, teamID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND role = 'ADMIN' AND status = 'APPROVED'`,
		teamID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// AddMember inserts a membership row. The unique (team_id, user_id)
// constraint backs the one-row-per-pair rule.
func (s *PgStore) AddMember(ctx context.Context, teamID, userID string, role Role, status Status) (*Member, error) {
	m := &Member{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO team_members (team_id, user_id, role, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, team_id, user_id, role, status, created_at`,
		teamID, userID, string(role), string(status),
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("adding team member: %w", err)
	}
	return m, nil
}

// SetMemberStatus updates the status of one membership row.
func (s *PgStore) SetMemberStatus(ctx context.Context, memberID string, status Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE team_members SET status = $1 WHERE id = $2`, string(status), memberID)
	if err != nil {
		return fmt.Errorf("setting member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}

// SetMemberRole updates the role of one membership row.
func (s *PgStore) SetMemberRole(ctx context.Context, memberID string, role Role) error {
	tag, err := s.db.Exec(ctx, `UPDATE team_members SET role = $1 WHERE id = $2`, string(role), memberID)
	if err != nil {
		return fmt.Errorf("setting member role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}

// DeleteMember removes one membership row.
func (s *PgStore) DeleteMember(ctx context.Context, memberID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM team_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("deleting team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRow
	}
	return nil
}
