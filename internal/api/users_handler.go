package api

import (
	"net/http"
	"strings"

	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/team"
	"github.com/tmarchal/chantier/internal/user"
)

// usersHandler groups account self-management HTTP handlers.
type usersHandler struct {
	store *user.Store
	teams *team.Service
}

func newUsersHandler(store *user.Store, teams *team.Service) *usersHandler {
	return &usersHandler{store: store, teams: teams}
}

// UpdateMe handles PUT /api/v1/auth/me, a partial profile update.
func (h *usersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	var in user.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email is required")
			return
		}
		in.Email = &email
	}
	if in.Password != nil && len(*in.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "password must be at least 8 characters")
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name cannot be empty")
		return
	}

	u, err := h.store.Update(r.Context(), caller.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update account")
		return
	}

	auditLog(r, "user.update", "user", u.ID)
	writeJSON(w, http.StatusOK, publicUser(u))
}

// DeleteMe handles DELETE /api/v1/auth/me. Memberships are released first
// under the same rules as leaving each team, so a sole admin of a shared
// team has to hand it off before the account can go. Sessions and personal
// rows cascade with the account.
func (h *usersHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	if err := h.teams.LeaveAll(r.Context(), caller.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.store.Delete(r.Context(), caller.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete account")
		return
	}

	auditLog(r, "user.delete", "user", caller.ID)
	w.WriteHeader(http.StatusNoContent)
}
