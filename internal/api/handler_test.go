package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/config"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/metrics"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/period"
	"github.com/tmarchal/chantier/internal/ratelimit"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{
			Default:       120,
			Window:        time.Minute,
			LoginAttempts: 5,
			LoginWindow:   time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	return NewRouter(RouterDeps{
		Limiter: ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window),
		Metrics: metrics.New(),
		Config:  cfg,
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return env.Error.Code, env.Error.Message
}

func TestHealthCheck(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID to be set")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/contacts", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestAuthRequired(t *testing.T) {
	handler := newTestRouter(t)

	paths := []string{
		"/api/v1/auth/me",
		"/api/v1/contacts",
		"/api/v1/objects",
		"/api/v1/teams",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rec.Code)
			}
			code, _ := decodeError(t, rec)
			if code != "unauthorized" {
				t.Errorf("expected code unauthorized, got %q", code)
			}
		})
	}
}

func TestLoginBadBody(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.RemoteAddr = "10.1.1.1:55000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	handler := newTestRouter(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
		req.RemoteAddr = "10.2.2.2:55000"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 on sixth attempt, got %d", last.Code)
	}
	code, _ := decodeError(t, last)
	if code != "rate_limited" {
		t.Errorf("expected code rate_limited, got %q", code)
	}

	// A different address is unaffected.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.RemoteAddr = "10.3.3.3:55000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for fresh address, got %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	handler := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"longenough","name":"Pierre"}`},
		{"malformed email", `{"email":"nope","password":"longenough","name":"Pierre"}`},
		{"short password", `{"email":"p@example.com","password":"short","name":"Pierre"}`},
		{"missing name", `{"email":"p@example.com","password":"longenough"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d", rec.Code)
			}
			code, _ := decodeError(t, rec)
			if code != "validation_error" {
				t.Errorf("expected code validation_error, got %q", code)
			}
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", team.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
		{"bad rating", assignment.ErrInvalidRating, http.StatusUnprocessableEntity, "validation_error"},
		{"forbidden", team.ErrNotAuthorized, http.StatusForbidden, "forbidden"},
		{"team missing", team.ErrNotFound, http.StatusNotFound, "not_found"},
		{"contact missing", contact.ErrNotFound, http.StatusNotFound, "not_found"},
		{"object missing", object.ErrNotFound, http.StatusNotFound, "not_found"},
		{"assignment missing", assignment.ErrNotFound, http.StatusNotFound, "not_found"},
		{"task missing", task.ErrNotFound, http.StatusNotFound, "not_found"},
		{"already member", team.ErrAlreadyMember, http.StatusConflict, "conflict"},
		{"request pending", team.ErrRequestPending, http.StatusConflict, "conflict"},
		{"rejected", team.ErrPreviouslyRejected, http.StatusConflict, "conflict"},
		{"sole admin", team.ErrSoleAdmin, http.StatusConflict, "conflict"},
		{"review exists", assignment.ErrReviewExists, http.StatusConflict, "conflict"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			code, _ := decodeError(t, rec)
			if code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, code)
			}
		})
	}
}

func TestForbiddenMessageIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, team.ErrNotAuthorized)

	_, message := decodeError(t, rec)
	if strings.Contains(message, "not authorized") {
		t.Errorf("forbidden message leaks the internal error text: %q", message)
	}
}

func TestContactFilterFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/contacts?q=иван&role=master&object=villa&favorite=true&status=active&period_from=2026-01-01&period_to=2026-06-30&sort=cost&dir=desc", nil)

	f, ok := contactFilterFromQuery(req)
	if !ok {
		t.Fatal("expected filter to parse")
	}
	if f.Query != "иван" || f.Role != "master" || f.Object != "villa" {
		t.Errorf("unexpected text filters: %+v", f)
	}
	if !f.FavoriteOnly || f.BlacklistOnly {
		t.Errorf("unexpected flags: %+v", f)
	}
	if f.Status == nil || *f.Status != period.StatusActive {
		t.Errorf("expected active status filter, got %v", f.Status)
	}
	if f.PeriodFrom == nil || f.PeriodFrom.Format("2006-01-02") != "2026-01-01" {
		t.Errorf("unexpected period from: %v", f.PeriodFrom)
	}
	if f.PeriodTo == nil || f.PeriodTo.Format("2006-01-02") != "2026-06-30" {
		t.Errorf("unexpected period to: %v", f.PeriodTo)
	}
	if f.SortField != "cost" || !f.SortDesc {
		t.Errorf("unexpected sort: %+v", f)
	}
}

func TestContactFilterFromQuery_Aliases(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/contacts?fav=1&bl=true&wf_from=2026-02-01&wt_to=2026-03-01", nil)

	f, ok := contactFilterFromQuery(req)
	if !ok {
		t.Fatal("expected filter to parse")
	}
	if !f.FavoriteOnly || !f.BlacklistOnly {
		t.Errorf("expected short flag aliases to apply: %+v", f)
	}
	if f.PeriodFrom == nil || f.PeriodFrom.Format("2006-01-02") != "2026-02-01" {
		t.Errorf("unexpected period from: %v", f.PeriodFrom)
	}
	if f.PeriodTo == nil || f.PeriodTo.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("unexpected period to: %v", f.PeriodTo)
	}
}

func TestContactFilterFromQuery_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad date", "period_from=01/02/2026"},
		{"bad status", "status=busy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts?"+tt.query, nil)
			if _, ok := contactFilterFromQuery(req); ok {
				t.Error("expected filter parse to fail")
			}
		})
	}
}

func TestObjectFilterFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/objects?q=склад&inactive=1&status=passive&sort=start", nil)

	f, ok := objectFilterFromQuery(req)
	if !ok {
		t.Fatal("expected filter to parse")
	}
	if f.Query != "склад" || !f.InactiveOnly {
		t.Errorf("unexpected filters: %+v", f)
	}
	if f.Status == nil || *f.Status != period.StatusPassive {
		t.Errorf("expected passive status filter, got %v", f.Status)
	}
	if f.SortField != "start" || f.SortDesc {
		t.Errorf("unexpected sort: %+v", f)
	}
}

func TestLoginRateLimiterWindow(t *testing.T) {
	l := newLoginRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("expected first two attempts to pass")
	}
	if l.allow("a") {
		t.Fatal("expected third attempt to be blocked")
	}
	if !l.allow("b") {
		t.Fatal("expected separate key to be unaffected")
	}

	now = now.Add(time.Minute)
	if !l.allow("a") {
		t.Fatal("expected attempt to pass after the window rolled")
	}
}

// fakeTeamStore backs a team.Service with in-memory rows for tests that
// exercise row access and membership flows without a database.
type fakeTeamStore struct {
	teams   map[string]*team.Team
	members map[string]*team.Member
	nextID  int
}

func newFakeTeamStore() *fakeTeamStore {
	return &fakeTeamStore{
		teams:   make(map[string]*team.Team),
		members: make(map[string]*team.Member),
	}
}

func (f *fakeTeamStore) addTeam(id string) {
	f.teams[id] = &team.Team{ID: id, Name: id, InviteCode: id, CreatedAt: time.Now()}
}

func (f *fakeTeamStore) addMember(teamID, userID string, role team.Role, status team.Status) {
	f.nextID++
	id := fmt.Sprintf("m-%d", f.nextID)
	f.members[id] = &team.Member{ID: id, TeamID: teamID, UserID: userID, Role: role, Status: status}
}

func (f *fakeTeamStore) InTx(ctx context.Context, fn func(team.Store) error) error {
	return fn(f)
}

func (f *fakeTeamStore) CreateTeam(ctx context.Context, name, inviteCode, createdBy string) (*team.Team, error) {
	return nil, errors.New("not supported")
}

func (f *fakeTeamStore) GetTeam(ctx context.Context, id string) (*team.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, team.ErrNoRow
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTeamStore) GetTeamByInviteCode(ctx context.Context, code string) (*team.Team, error) {
	return nil, team.ErrNoRow
}

func (f *fakeTeamStore) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (f *fakeTeamStore) SetInviteCode(ctx context.Context, teamID, code string) error {
	return team.ErrNoRow
}

func (f *fakeTeamStore) DeleteTeam(ctx context.Context, id string) error {
	if _, ok := f.teams[id]; !ok {
		return team.ErrNoRow
	}
	delete(f.teams, id)
	for mid, m := range f.members {
		if m.TeamID == id {
			delete(f.members, mid)
		}
	}
	return nil
}

func (f *fakeTeamStore) GetMember(ctx context.Context, teamID, userID string) (*team.Member, error) {
	for _, m := range f.members {
		if m.TeamID == teamID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, team.ErrNoRow
}

func (f *fakeTeamStore) ListMembers(ctx context.Context, teamID string) ([]*team.Member, error) {
	var out []*team.Member
	for _, m := range f.members {
		if m.TeamID == teamID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTeamStore) ListMembershipsForUser(ctx context.Context, userID string) ([]*team.Membership, error) {
	var out []*team.Membership
	for _, m := range f.members {
		if m.UserID == userID {
			t := *f.teams[m.TeamID]
			out = append(out, &team.Membership{Team: &t, Role: m.Role, Status: m.Status})
		}
	}
	return out, nil
}

func (f *fakeTeamStore) CountMembers(ctx context.Context, teamID string) (int, error) {
	n := 0
	for _, m := range f.members {
		if m.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (f *fakeTeamStore) CountApprovedAdmins(ctx context.Context, teamID string) (int, error) {
	n := 0
	for _, m := range f.members {
		if m.TeamID == teamID && m.Role == team.RoleAdmin && m.Status == team.StatusApproved {
			n++
		}
	}
	return n, nil
}

func (f *fakeTeamStore) AddMember(ctx context.Context, teamID, userID string, role team.Role, status team.Status) (*team.Member, error) {
	f.addMember(teamID, userID, role, status)
	return f.GetMember(ctx, teamID, userID)
}

func (f *fakeTeamStore) SetMemberStatus(ctx context.Context, memberID string, status team.Status) error {
	m, ok := f.members[memberID]
	if !ok {
		return team.ErrNoRow
	}
	m.Status = status
	return nil
}

func (f *fakeTeamStore) SetMemberRole(ctx context.Context, memberID string, role team.Role) error {
	m, ok := f.members[memberID]
	if !ok {
		return team.ErrNoRow
	}
	m.Role = role
	return nil
}

func (f *fakeTeamStore) DeleteMember(ctx context.Context, memberID string) error {
	if _, ok := f.members[memberID]; !ok {
		return team.ErrNoRow
	}
	delete(f.members, memberID)
	return nil
}

// authedRequest builds a request carrying a caller and a chi {id} route
// parameter, the shape handlers see behind the session middleware.
func authedRequest(method, target, callerID, routeID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", routeID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = auth.ContextWithCaller(ctx, &auth.Caller{ID: callerID, Email: callerID + "@example.com"})
	return req.WithContext(ctx)
}

func TestCheckRowAccess(t *testing.T) {
	st := newFakeTeamStore()
	st.addTeam("t1")
	st.addMember("t1", "viewer", team.RoleViewer, team.StatusApproved)
	st.addMember("t1", "editor", team.RoleEditor, team.StatusApproved)
	st.addMember("t1", "pending", team.RoleViewer, team.StatusPending)
	teams := team.NewService(st)

	ctx := context.Background()
	owner := "u1"
	teamID := "t1"

	// Own personal row, read and write.
	if err := checkRowAccess(ctx, teams, "u1", &owner, nil, true); err != nil {
		t.Errorf("owner write: got %v, want nil", err)
	}
	// Approved members read; only roles above viewer write.
	if err := checkRowAccess(ctx, teams, "viewer", nil, &teamID, false); err != nil {
		t.Errorf("viewer read: got %v, want nil", err)
	}
	if err := checkRowAccess(ctx, teams, "editor", nil, &teamID, true); err != nil {
		t.Errorf("editor write: got %v, want nil", err)
	}
	// A visible row the role cannot write is a plain authorization failure.
	if err := checkRowAccess(ctx, teams, "viewer", nil, &teamID, true); !errors.Is(err, team.ErrNotAuthorized) {
		t.Errorf("viewer write: got %v, want ErrNotAuthorized", err)
	}
}

func TestCheckRowAccessHidesForeignRows(t *testing.T) {
	st := newFakeTeamStore()
	st.addTeam("t1")
	st.addMember("t1", "viewer", team.RoleViewer, team.StatusApproved)
	st.addMember("t1", "pending", team.RoleViewer, team.StatusPending)
	teams := team.NewService(st)

	ctx := context.Background()
	owner := "u1"
	teamID := "t1"

	// Rows outside the caller's scopes must be indistinguishable from
	// absent ones, whoever the caller is.
	tests := []struct {
		name     string
		callerID string
		owner    *string
		teamID   *string
	}{
		{"foreign personal row", "u2", &owner, nil},
		{"outsider on team row", "stranger", nil, &teamID},
		{"pending member on team row", "pending", nil, &teamID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRowAccess(ctx, teams, tt.callerID, tt.owner, tt.teamID, false)
			if !errors.Is(err, errRowHidden) {
				t.Fatalf("got %v, want errRowHidden", err)
			}
		})
	}
}

func TestLeaveResponseReportsTeardown(t *testing.T) {
	st := newFakeTeamStore()
	st.addTeam("solo")
	st.addMember("solo", "u1", team.RoleAdmin, team.StatusApproved)
	st.addTeam("crew")
	st.addMember("crew", "boss", team.RoleAdmin, team.StatusApproved)
	st.addMember("crew", "u1", team.RoleEditor, team.StatusApproved)
	h := newTeamsHandler(team.NewService(st))

	leave := func(teamID string) map[string]interface{} {
		rec := httptest.NewRecorder()
		h.Leave(rec, authedRequest(http.MethodPost, "/api/v1/teams/"+teamID+"/leave", "u1", teamID))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return body
	}

	// Leaving as the last member tears the team down and says so.
	body := leave("solo")
	if body["deletedTeam"] != true {
		t.Errorf("expected deletedTeam=true, got %v", body["deletedTeam"])
	}
	// A plain departure reports no teardown.
	body = leave("crew")
	if body["deletedTeam"] != false {
		t.Errorf("expected deletedTeam=false, got %v", body["deletedTeam"])
	}
}

func TestDeleteAccountRefusedForSoleAdmin(t *testing.T) {
	st := newFakeTeamStore()
	st.addTeam("crew")
	st.addMember("crew", "u1", team.RoleAdmin, team.StatusApproved)
	st.addMember("crew", "u2", team.RoleViewer, team.StatusApproved)
	h := newUsersHandler(nil, team.NewService(st))

	rec := httptest.NewRecorder()
	h.DeleteMe(rec, authedRequest(http.MethodDelete, "/api/v1/auth/me", "u1", ""))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	code, _ := decodeError(t, rec)
	if code != "conflict" {
		t.Errorf("expected code conflict, got %q", code)
	}
	// The refusal leaves the membership untouched.
	if _, err := st.GetMember(context.Background(), "crew", "u1"); err != nil {
		t.Error("admin row must survive a refused account deletion")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4411"
	if got := clientIP(req); got != "192.0.2.7" {
		t.Errorf("expected 192.0.2.7, got %q", got)
	}

	req.RemoteAddr = "no-port-here"
	if got := clientIP(req); got != "no-port-here" {
		t.Errorf("expected raw value passthrough, got %q", got)
	}
}
