package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/export"
	"github.com/tmarchal/chantier/internal/metrics"
	"github.com/tmarchal/chantier/internal/team"
)

// contactsHandler groups contact HTTP handlers.
type contactsHandler struct {
	contacts    *contact.Store
	assignments *assignment.Store
	teams       *team.Service
	metrics     *metrics.Metrics
}

func newContactsHandler(contacts *contact.Store, assignments *assignment.Store, teams *team.Service, m *metrics.Metrics) *contactsHandler {
	return &contactsHandler{contacts: contacts, assignments: assignments, teams: teams, metrics: m}
}

// List handles GET /api/v1/contacts.
func (h *contactsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, ok := contactFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid filter parameter")
		return
	}

	rows, err := h.load(r, sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list contacts")
		return
	}

	out := contact.Apply(rows, f, time.Now())
	if out == nil {
		out = []*contact.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": out,
		"count":    len(out),
	})
}

// Create handles POST /api/v1/contacts.
func (h *contactsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var in contact.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "contact name is required")
		return
	}

	c, err := h.contacts.Create(r.Context(), in, sc.OwnerUserID, sc.TeamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create contact")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Get handles GET /api/v1/contacts/{id}.
func (h *contactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.authorized(r, chi.URLParam(r, "id"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/v1/contacts/{id}.
func (h *contactsHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var in contact.UpdateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "contact name cannot be empty")
		return
	}

	updated, err := h.contacts.Update(r.Context(), c.ID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/contacts/{id}.
func (h *contactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.contacts.Delete(r.Context(), c.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFavorite handles PUT /api/v1/contacts/{id}/favorite.
func (h *contactsHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, func(id string, value bool) error {
		return h.contacts.SetFavorite(r.Context(), id, value)
	})
}

// SetBlacklisted handles PUT /api/v1/contacts/{id}/blacklist.
func (h *contactsHandler) SetBlacklisted(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, func(id string, value bool) error {
		return h.contacts.SetBlacklisted(r.Context(), id, value)
	})
}

func (h *contactsHandler) setFlag(w http.ResponseWriter, r *http.Request, set func(id string, value bool) error) {
	c, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		Value bool `json:"value"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := set(c.ID, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.contacts.GetByID(r.Context(), c.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Objects handles GET /api/v1/contacts/{id}/objects, the contact's job-site
// history.
func (h *contactsHandler) Objects(w http.ResponseWriter, r *http.Request) {
	c, err := h.authorized(r, chi.URLParam(r, "id"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rows, err := h.assignments.ListByContact(r.Context(), c.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list assignments")
		return
	}
	if rows == nil {
		rows = []*assignment.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": rows,
		"count":       len(rows),
	})
}

// Export handles GET /api/v1/contacts/export. The same filter parameters as
// List apply; the result is a CSV attachment.
func (h *contactsHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, ok := contactFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid filter parameter")
		return
	}

	rows, err := h.load(r, sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list contacts")
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.Contacts(&buf, contact.Apply(rows, f, now), now); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build export")
		return
	}

	h.metrics.IncExport("contacts")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="contacts-%s.csv"`, now.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *contactsHandler) load(r *http.Request, sc scope) ([]*contact.Contact, error) {
	if sc.TeamID != nil {
		return h.contacts.ListByTeam(r.Context(), *sc.TeamID)
	}
	return h.contacts.ListByOwner(r.Context(), *sc.OwnerUserID)
}

// authorized fetches the contact and verifies the caller may touch it.
func (h *contactsHandler) authorized(r *http.Request, id string, write bool) (*contact.Contact, error) {
	caller := auth.CallerFromContext(r.Context())

	c, err := h.contacts.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := checkRowAccess(r.Context(), h.teams, caller.ID, c.OwnerUserID, c.TeamID, write); err != nil {
		if errors.Is(err, errRowHidden) {
			return nil, contact.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// contactFilterFromQuery decodes list filter parameters. The bool result is
// false when a parameter fails to parse.
func contactFilterFromQuery(r *http.Request) (contact.Filter, bool) {
	q := r.URL.Query()
	f := contact.Filter{
		Query:         strings.TrimSpace(q.Get("q")),
		Role:          strings.TrimSpace(q.Get("role")),
		Object:        strings.TrimSpace(q.Get("object")),
		FavoriteOnly:  boolParam(r, "fav") || boolParam(r, "favorite"),
		BlacklistOnly: boolParam(r, "bl") || boolParam(r, "blacklisted"),
		SortField:     q.Get("sort"),
		SortDesc:      q.Get("dir") == "desc",
	}

	status, ok := parseStatusParam(r)
	if !ok {
		return contact.Filter{}, false
	}
	f.Status = status

	// wf_from/wt_to are accepted as aliases for the period bounds.
	from, ok := firstDateParam(r, "period_from", "wf_from")
	if !ok {
		return contact.Filter{}, false
	}
	to, ok := firstDateParam(r, "period_to", "wt_to")
	if !ok {
		return contact.Filter{}, false
	}
	f.PeriodFrom = from
	f.PeriodTo = to
	return f, true
}
