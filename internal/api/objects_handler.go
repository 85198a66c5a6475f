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
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
)

// objectsHandler groups job-site HTTP handlers, including the nested worker
// and task routes.
type objectsHandler struct {
	objects     *object.Store
	contacts    *contact.Store
	assignments *assignment.Store
	tasks       *task.Store
	teams       *team.Service
	metrics     *metrics.Metrics
}

func newObjectsHandler(objects *object.Store, contacts *contact.Store, assignments *assignment.Store, tasks *task.Store, teams *team.Service, m *metrics.Metrics) *objectsHandler {
	return &objectsHandler{
		objects:     objects,
		contacts:    contacts,
		assignments: assignments,
		tasks:       tasks,
		teams:       teams,
		metrics:     m,
	}
}

// List handles GET /api/v1/objects.
func (h *objectsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, ok := objectFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid filter parameter")
		return
	}

	rows, err := h.load(r, sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list objects")
		return
	}

	out := object.Apply(rows, f, time.Now())
	if out == nil {
		out = []*object.Object{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"objects": out,
		"count":   len(out),
	})
}

// Create handles POST /api/v1/objects.
func (h *objectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var in object.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "object name is required")
		return
	}

	o, err := h.objects.Create(r.Context(), in, sc.OwnerUserID, sc.TeamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create object")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// Get handles GET /api/v1/objects/{id}.
func (h *objectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Update handles PUT /api/v1/objects/{id}.
func (h *objectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var in object.UpdateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "object name cannot be empty")
		return
	}

	updated, err := h.objects.Update(r.Context(), o.ID, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/objects/{id}.
func (h *objectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.objects.Delete(r.Context(), o.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetInactive handles PUT /api/v1/objects/{id}/inactive.
func (h *objectsHandler) SetInactive(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
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

	if err := h.objects.SetInactive(r.Context(), o.ID, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.objects.GetByID(r.Context(), o.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Export handles GET /api/v1/objects/export.
func (h *objectsHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())

	sc, err := resolveScope(r.Context(), h.teams, caller.ID, r.URL.Query().Get("team"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, ok := objectFilterFromQuery(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid filter parameter")
		return
	}

	rows, err := h.load(r, sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list objects")
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.Objects(&buf, object.Apply(rows, f, now), now); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build export")
		return
	}

	h.metrics.IncExport("objects")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="objects-%s.csv"`, now.Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Workers handles GET /api/v1/objects/{id}/workers.
func (h *objectsHandler) Workers(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rows, err := h.assignments.ListByObject(r.Context(), o.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list workers")
		return
	}
	if rows == nil {
		rows = []*assignment.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workers": rows,
		"count":   len(rows),
	})
}

// AssignWorker handles PUT /api/v1/objects/{id}/workers/{contactID}. The
// same route updates the terms of an existing assignment.
func (h *objectsHandler) AssignWorker(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	c, err := h.contacts.GetByID(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := checkRowAccess(r.Context(), h.teams, caller.ID, c.OwnerUserID, c.TeamID, false); err != nil {
		if errors.Is(err, errRowHidden) {
			err = contact.ErrNotFound
		}
		writeDomainError(w, err)
		return
	}

	var in assignment.AssignInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	a, err := h.assignments.Assign(r.Context(), c.ID, o.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to assign worker")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UnassignWorker handles DELETE /api/v1/objects/{id}/workers/{contactID}.
func (h *objectsHandler) UnassignWorker(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.assignments.Unassign(r.Context(), chi.URLParam(r, "contactID"), o.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddReview handles POST /api/v1/objects/{id}/workers/{contactID}/review.
func (h *objectsHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a, err := h.assignments.Get(r.Context(), chi.URLParam(r, "contactID"), o.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	review, err := h.assignments.AddReview(r.Context(), a.ID, req.Rating, strings.TrimSpace(req.Comment))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// DeleteReview handles DELETE /api/v1/objects/{id}/workers/{contactID}/review.
func (h *objectsHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a, err := h.assignments.Get(r.Context(), chi.URLParam(r, "contactID"), o.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.assignments.DeleteReview(r.Context(), a.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tasks handles GET /api/v1/objects/{id}/tasks.
func (h *objectsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rows, err := h.tasks.ListByObject(r.Context(), o.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}
	if rows == nil {
		rows = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": rows,
		"count": len(rows),
	})
}

// CreateTask handles POST /api/v1/objects/{id}/tasks.
func (h *objectsHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var in task.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "task title is required")
		return
	}
	if in.RepeatType == "" {
		in.RepeatType = task.RepeatNone
	}
	if !task.ValidRepeatType(in.RepeatType) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown repeat type")
		return
	}
	if in.RepeatType != task.RepeatNone && in.NextDueDate == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a recurring task needs a due date")
		return
	}

	t, err := h.tasks.Create(r.Context(), o.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ToggleTask handles POST /api/v1/objects/{id}/tasks/{taskID}/toggle.
func (h *objectsHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	t, err := h.objectTask(r, o.ID, chi.URLParam(r, "taskID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	toggled, err := h.tasks.Toggle(r.Context(), t.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggled)
}

// DeleteTask handles DELETE /api/v1/objects/{id}/tasks/{taskID}.
func (h *objectsHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorized(r, chi.URLParam(r, "id"), true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	t, err := h.objectTask(r, o.ID, chi.URLParam(r, "taskID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.tasks.Delete(r.Context(), t.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// objectTask fetches a task and checks it belongs to the given job site.
func (h *objectsHandler) objectTask(r *http.Request, objectID, taskID string) (*task.Task, error) {
	t, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		return nil, err
	}
	if t.ObjectID != objectID {
		return nil, task.ErrNotFound
	}
	return t, nil
}

func (h *objectsHandler) load(r *http.Request, sc scope) ([]*object.Object, error) {
	if sc.TeamID != nil {
		return h.objects.ListByTeam(r.Context(), *sc.TeamID)
	}
	return h.objects.ListByOwner(r.Context(), *sc.OwnerUserID)
}

// authorized fetches the job site and verifies the caller may touch it.
func (h *objectsHandler) authorized(r *http.Request, id string, write bool) (*object.Object, error) {
	caller := auth.CallerFromContext(r.Context())

	o, err := h.objects.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := checkRowAccess(r.Context(), h.teams, caller.ID, o.OwnerUserID, o.TeamID, write); err != nil {
		if errors.Is(err, errRowHidden) {
			return nil, object.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// objectFilterFromQuery decodes list filter parameters. The bool result is
// false when a parameter fails to parse.
func objectFilterFromQuery(r *http.Request) (object.Filter, bool) {
	q := r.URL.Query()
	f := object.Filter{
		Query:        strings.TrimSpace(q.Get("q")),
		InactiveOnly: boolParam(r, "inactive"),
		SortField:    q.Get("sort"),
		SortDesc:     q.Get("dir") == "desc",
	}

	status, ok := parseStatusParam(r)
	if !ok {
		return object.Filter{}, false
	}
	f.Status = status

	from, ok := parseDateParam(r, "period_from")
	if !ok {
		return object.Filter{}, false
	}
	to, ok := parseDateParam(r, "period_to")
	if !ok {
		return object.Filter{}, false
	}
	f.PeriodFrom = from
	f.PeriodTo = to
	return f, true
}
