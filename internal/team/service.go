package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service errors. Handlers map these onto the HTTP error envelope; the
// forbidden family carries no detail about whether the target exists.
var (
	ErrNotFound           = errors.New("team not found")
	ErrValidation         = errors.New("invalid input")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrAlreadyMember      = errors.New("already a member of this team")
	ErrRequestPending     = errors.New("join request already pending")
	ErrPreviouslyRejected = errors.New("join request was rejected")
	ErrSoleAdmin          = errors.New("sole admin cannot leave the team")
	ErrCannotRemoveAdmin  = errors.New("admins cannot be removed")
	ErrNotPending         = errors.New("membership is not pending")
)

// Maximum retries when a freshly generated invite code collides with an
// existing one.
const inviteCodeRetries = 5

// Service implements team membership and authorization. Every decision is
// re-derived from stored rows at call time, inside one serializable
// transaction per operation.
type Service struct {
	store Store
}

// NewService creates a team service on top of the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create makes a new team. The creator becomes its first member as an
// approved admin, and the team receives a fresh unique invite code.
func (s *Service) Create(ctx context.Context, userID, name string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidation)
	}

	var created *Team
	err := s.store.InTx(ctx, func(tx Store) error {
		code, err := s.uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		t, err := tx.CreateTeam(ctx, name, code, userID)
		if err != nil {
			return err
		}
		if _, err := tx.AddMember(ctx, t.ID, userID, RoleAdmin, StatusApproved); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Join files a join request against the team holding the invite code. The
// requester enters as VIEWER/PENDING. An existing row of any status blocks
// the request; a rejected row stays blocking until an admin removes it.
func (s *Service) Join(ctx context.Context, userID, inviteCode string) (*Team, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, fmt.Errorf("%w: invite code is required", ErrValidation)
	}

	var joined *Team
	err := s.store.InTx(ctx, func(tx Store) error {
		t, err := tx.GetTeamByInviteCode(ctx, inviteCode)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		existing, err := tx.GetMember(ctx, t.ID, userID)
		if err != nil && !errors.Is(err, ErrNoRow) {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case StatusApproved:
				return ErrAlreadyMember
			case StatusPending:
				return ErrRequestPending
			case StatusRejected:
				return ErrPreviouslyRejected
			}
		}

		if _, err := tx.AddMember(ctx, t.ID, userID, RoleViewer, StatusPending); err != nil {
			return err
		}
		joined = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Get returns a team to one of its members. Pending and rejected members
// may still see the team they requested; the invite code is only disclosed
// to approved members.
func (s *Service) Get(ctx context.Context, callerID, teamID string) (*Team, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, ErrNoRow) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	m, err := s.store.GetMember(ctx, teamID, callerID)
	if errors.Is(err, ErrNoRow) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}

	if m.Status != StatusApproved {
		redacted := *t
		redacted.InviteCode = ""
		return &redacted, nil
	}
	return t, nil
}

// ListForUser returns the teams the user has any membership row in.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Membership, error) {
	return s.store.ListMembershipsForUser(ctx, userID)
}

// Members lists the membership rows of a team. Only approved members may
// look.
func (s *Service) Members(ctx context.Context, callerID, teamID string) ([]*Member, error) {
	m, err := s.store.GetMember(ctx, teamID, callerID)
	if errors.Is(err, ErrNoRow) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	if m.Status != StatusApproved {
		return nil, ErrNotAuthorized
	}
	return s.store.ListMembers(ctx, teamID)
}

// Approve moves a pending join request to APPROVED. Caller must be an
// approved admin of the team.
func (s *Service) Approve(ctx context.Context, callerID, teamID, targetUserID string) error {
	return s.store.InTx(ctx, func(tx Store) error {
		if err := requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}
		target, err := tx.GetMember(ctx, teamID, targetUserID)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if target.Status != StatusPending {
			return ErrNotPending
		}
		return tx.SetMemberStatus(ctx, target.ID, StatusApproved)
	})
}

// Reject moves a pending join request to REJECTED. The row stays in place
// and keeps blocking re-joins until an admin removes it.
func (s *Service) Reject(ctx context.Context, callerID, teamID, targetUserID string) error {
	return s.store.InTx(ctx, func(tx Store) error {
		if err := requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}
		target, err := tx.GetMember(ctx, teamID, targetUserID)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if target.Status != StatusPending {
			return ErrNotPending
		}
		return tx.SetMemberStatus(ctx, target.ID, StatusRejected)
	})
}

// Remove deletes a membership row of any status. Admin rows cannot be
// removed; the admin must change the role first or the member must leave.
func (s *Service) Remove(ctx context.Context, callerID, teamID, targetUserID string) error {
	return s.store.InTx(ctx, func(tx Store) error {
		if err := requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}
		target, err := tx.GetMember(ctx, teamID, targetUserID)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if target.Role == RoleAdmin {
			return ErrCannotRemoveAdmin
		}
		return tx.DeleteMember(ctx, target.ID)
	})
}

// ChangeRole sets a new role on a membership row. Demoting the last
// approved admin is refused so the team never ends up adminless.
func (s *Service) ChangeRole(ctx context.Context, callerID, teamID, targetUserID string, role Role) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return s.store.InTx(ctx, func(tx Store) error {
		if err := requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}
		target, err := tx.GetMember(ctx, teamID, targetUserID)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if target.Role == role {
			return nil
		}
		if target.Role == RoleAdmin && target.Status == StatusApproved {
			admins, err := tx.CountApprovedAdmins(ctx, teamID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrSoleAdmin
			}
		}
		return tx.SetMemberRole(ctx, target.ID, role)
	})
}

// RegenerateInviteCode replaces the team's invite code with a fresh unique
// one and returns it. Admin guard applies.
func (s *Service) RegenerateInviteCode(ctx context.Context, callerID, teamID string) (string, error) {
	var code string
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}
		fresh, err := s.uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		if err := tx.SetInviteCode(ctx, teamID, fresh); err != nil {
			if errors.Is(err, ErrNoRow) {
				return ErrNotFound
			}
			return err
		}
		code = fresh
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Leave removes the caller's own membership. The last remaining member of
// any status tears the team down with them; the returned flag reports that
// teardown. The sole approved admin of a team that still has other members
// is refused.
func (s *Service) Leave(ctx context.Context, callerID, teamID string) (bool, error) {
	var deleted bool
	err := s.store.InTx(ctx, func(tx Store) error {
		m, err := tx.GetMember(ctx, teamID, callerID)
		if errors.Is(err, ErrNoRow) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		total, err := tx.CountMembers(ctx, teamID)
		if err != nil {
			return err
		}
		if total == 1 {
			deleted = true
			return tx.DeleteTeam(ctx, teamID)
		}

		if m.Role == RoleAdmin && m.Status == StatusApproved {
			admins, err := tx.CountApprovedAdmins(ctx, teamID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrSoleAdmin
			}
		}
		return tx.DeleteMember(ctx, m.ID)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// LeaveAll releases every membership the user holds, under the same rules
// as Leave: a team where they are the last member goes down with them, and
// a team where they are the sole approved admin among other members blocks
// the whole operation. All memberships are checked before anything is
// removed, inside one transaction, so a refusal leaves every team intact.
func (s *Service) LeaveAll(ctx context.Context, userID string) error {
	return s.store.InTx(ctx, func(tx Store) error {
		memberships, err := tx.ListMembershipsForUser(ctx, userID)
		if err != nil {
			return err
		}

		for _, ms := range memberships {
			total, err := tx.CountMembers(ctx, ms.Team.ID)
			if err != nil {
				return err
			}
			if total == 1 {
				continue
			}
			if ms.Role == RoleAdmin && ms.Status == StatusApproved {
				admins, err := tx.CountApprovedAdmins(ctx, ms.Team.ID)
				if err != nil {
					return err
				}
				if admins <= 1 {
					return fmt.Errorf("%w: promote another admin of %q first", ErrSoleAdmin, ms.Team.Name)
				}
			}
		}

		for _, ms := range memberships {
			total, err := tx.CountMembers(ctx, ms.Team.ID)
			if err != nil {
				return err
			}
			if total == 1 {
				if err := tx.DeleteTeam(ctx, ms.Team.ID); err != nil {
					return err
				}
				continue
			}
			m, err := tx.GetMember(ctx, ms.Team.ID, userID)
			if err != nil {
				return err
			}
			if err := tx.DeleteMember(ctx, m.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Role returns the user's role in the team when their membership row is
// approved. Anything else comes back as ErrNotAuthorized.
func (s *Service) Role(ctx context.Context, userID, teamID string) (Role, error) {
	m, err := s.store.GetMember(ctx, teamID, userID)
	if errors.Is(err, ErrNoRow) {
		return "", ErrNotAuthorized
	}
	if err != nil {
		return "", err
	}
	if m.Status != StatusApproved {
		return "", ErrNotAuthorized
	}
	return m.Role, nil
}

// requireAdmin re-derives the caller's standing from the stored row. Any
// failure mode collapses to ErrNotAuthorized so callers cannot probe team
// membership.
func requireAdmin(ctx context.Context, st Store, teamID, callerID string) error {
	m, err := st.GetMember(ctx, teamID, callerID)
	if errors.Is(err, ErrNoRow) {
		return ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if m.Role != RoleAdmin || m.Status != StatusApproved {
		return ErrNotAuthorized
	}
	return nil
}

// uniqueInviteCode draws codes until one does not collide with an existing
// team.
func (s *Service) uniqueInviteCode(ctx context.Context, st Store) (string, error) {
	for i := 0; i < inviteCodeRetries; i++ {
		code, err := NewInviteCode()
		if err != nil {
			return "", err
		}
		exists, err := st.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not find a free invite code after %d attempts", inviteCodeRetries)
}
