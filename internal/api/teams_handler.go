package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/team"
)

// teamsHandler groups team HTTP handlers.
type teamsHandler struct {
	teams *team.Service
}

func newTeamsHandler(teams *team.Service) *teamsHandler {
	return &teamsHandler{teams: teams}
}

// Create handles POST /api/v1/teams.
func (h *teamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.teams.Create(r.Context(), caller.ID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.create", "team", t.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"team":     t,
		"joinCode": t.InviteCode,
	})
}

// Join handles POST /api/v1/teams/join.
func (h *teamsHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.teams.Join(r.Context(), caller.ID, strings.ToLower(strings.TrimSpace(req.Code)))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.join_request", "team", t.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "join request submitted, waiting for approval",
		"teamId":  t.ID,
		"name":    t.Name,
	})
}

// List handles GET /api/v1/teams.
func (h *teamsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	memberships, err := h.teams.ListForUser(r.Context(), caller.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}
	if memberships == nil {
		memberships = []*team.Membership{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"teams": memberships,
		"count": len(memberships),
	})
}

// Get handles GET /api/v1/teams/{id}.
func (h *teamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	t, err := h.teams.Get(r.Context(), caller.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Members handles GET /api/v1/teams/{id}/members.
func (h *teamsHandler) Members(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	members, err := h.teams.Members(r.Context(), caller.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if members == nil {
		members = []*team.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

// Approve handles POST /api/v1/teams/{id}/members/{userID}/approve.
func (h *teamsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	err := h.teams.Approve(r.Context(), caller.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.member_approve", "team", chi.URLParam(r, "id"), "target_user_id", chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "member approved"})
}

// Reject handles POST /api/v1/teams/{id}/members/{userID}/reject.
func (h *teamsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	err := h.teams.Reject(r.Context(), caller.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.member_reject", "team", chi.URLParam(r, "id"), "target_user_id", chi.URLParam(r, "userID"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "join request rejected"})
}

// Remove handles DELETE /api/v1/teams/{id}/members/{userID}.
func (h *teamsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	err := h.teams.Remove(r.Context(), caller.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.member_remove", "team", chi.URLParam(r, "id"), "target_user_id", chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

// ChangeRole handles PUT /api/v1/teams/{id}/members/{userID}/role.
func (h *teamsHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	var req struct {
		Role team.Role `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	err := h.teams.ChangeRole(r.Context(), caller.ID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.member_role", "team", chi.URLParam(r, "id"), "target_user_id", chi.URLParam(r, "userID"), "role", string(req.Role))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "role updated"})
}

// RegenerateInviteCode handles POST /api/v1/teams/{id}/invite-code.
func (h *teamsHandler) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	code, err := h.teams.RegenerateInviteCode(r.Context(), caller.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.invite_code_regenerate", "team", chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "joinCode": code})
}

// Leave handles POST /api/v1/teams/{id}/leave.
func (h *teamsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	deleted, err := h.teams.Leave(r.Context(), caller.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	auditLog(r, "team.leave", "team", chi.URLParam(r, "id"), "deleted_team", deleted)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "left the team",
		"deletedTeam": deleted,
	})
}
