package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tmarchal/chantier/internal/period"
	"github.com/tmarchal/chantier/internal/team"
)

// errRowHidden marks a row the caller may not know exists. Handlers remap
// it onto the entity's own not-found error so a denied row and an absent
// one answer the same way.
var errRowHidden = errors.New("row hidden")

// scope is the ownership context a list or write operation runs under.
// Exactly one of OwnerUserID and TeamID is set; there is no unscoped path.
type scope struct {
	OwnerUserID *string
	TeamID      *string
}

// resolveScope derives the scope from the ?team query parameter. Personal
// scope needs no check; team scope requires an approved membership, and
// write operations additionally require a role above viewer.
func resolveScope(ctx context.Context, teams *team.Service, callerID, teamParam string, write bool) (scope, error) {
	if teamParam == "" {
		return scope{OwnerUserID: &callerID}, nil
	}

	role, err := teams.Role(ctx, callerID, teamParam)
	if err != nil {
		return scope{}, err
	}
	if write && role == team.RoleViewer {
		return scope{}, team.ErrNotAuthorized
	}
	return scope{TeamID: &teamParam}, nil
}

// checkRowAccess verifies the caller may touch a row carrying the given
// scope columns. A row outside the caller's scopes comes back as
// errRowHidden; only a visible row the caller's role cannot write surfaces
// an authorization failure.
func checkRowAccess(ctx context.Context, teams *team.Service, callerID string, ownerUserID, teamID *string, write bool) error {
	if ownerUserID != nil {
		if *ownerUserID != callerID {
			return errRowHidden
		}
		return nil
	}
	if teamID == nil {
		return errRowHidden
	}
	role, err := teams.Role(ctx, callerID, *teamID)
	if errors.Is(err, team.ErrNotAuthorized) {
		return errRowHidden
	}
	if err != nil {
		return err
	}
	if write && role == team.RoleViewer {
		return team.ErrNotAuthorized
	}
	return nil
}

const dateParamLayout = "2006-01-02"

// parseDateParam reads an optional YYYY-MM-DD query parameter.
func parseDateParam(r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(dateParamLayout, v)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// firstDateParam returns the first of the named parameters that is present.
func firstDateParam(r *http.Request, names ...string) (*time.Time, bool) {
	for _, name := range names {
		t, ok := parseDateParam(r, name)
		if !ok {
			return nil, false
		}
		if t != nil {
			return t, true
		}
	}
	return nil, true
}

// parseStatusParam reads an optional status query parameter.
func parseStatusParam(r *http.Request) (*period.Status, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	s, ok := period.ParseStatus(v)
	if !ok {
		return nil, false
	}
	return &s, true
}

func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}
