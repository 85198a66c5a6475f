package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/config"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/metrics"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/ratelimit"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
	"github.com/tmarchal/chantier/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users       *user.Store
	Contacts    *contact.Store
	Objects     *object.Store
	Assignments *assignment.Store
	Tasks       *task.Store
	Teams       *team.Service
	Limiter     *ratelimit.Limiter
	Metrics     *metrics.Metrics
	Config      *config.Config
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.Config.CORS.AllowedOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(deps.Metrics))

	// Handlers.
	loginLimiter := newLoginRateLimiter(deps.Config.RateLimit.LoginAttempts, deps.Config.RateLimit.LoginWindow)
	authH := newAuthHandler(deps.Users, loginLimiter, deps.Metrics)
	contactsH := newContactsHandler(deps.Contacts, deps.Assignments, deps.Teams, deps.Metrics)
	objectsH := newObjectsHandler(deps.Objects, deps.Contacts, deps.Assignments, deps.Tasks, deps.Teams, deps.Metrics)
	teamsH := newTeamsHandler(deps.Teams)
	usersH := newUsersHandler(deps.Users, deps.Teams)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics summary.
	r.Get("/metrics", deps.Metrics.Handler())

	// Public auth routes.
	r.Post("/api/v1/auth/register", authH.Register)
	r.Post("/api/v1/auth/login", authH.Login)

	// Session-authed routes.
	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(auth.SessionMiddleware(newSessionLookup(deps.Users)))
		ar.Use(ratelimit.Middleware(deps.Limiter, func() {
			deps.Metrics.IncRateLimitRejection("api")
		}))

		ar.Get("/auth/me", authH.Me)
		ar.Put("/auth/me", usersH.UpdateMe)
		ar.Delete("/auth/me", usersH.DeleteMe)
		ar.Post("/auth/logout", authH.Logout)

		ar.Route("/contacts", func(cr chi.Router) {
			cr.Get("/", contactsH.List)
			cr.Post("/", contactsH.Create)
			cr.Get("/export", contactsH.Export)
			cr.Get("/{id}", contactsH.Get)
			cr.Put("/{id}", contactsH.Update)
			cr.Delete("/{id}", contactsH.Delete)
			cr.Put("/{id}/favorite", contactsH.SetFavorite)
			cr.Put("/{id}/blacklist", contactsH.SetBlacklisted)
			cr.Get("/{id}/objects", contactsH.Objects)
		})

		ar.Route("/objects", func(or chi.Router) {
			or.Get("/", objectsH.List)
			or.Post("/", objectsH.Create)
			or.Get("/export", objectsH.Export)
			or.Get("/{id}", objectsH.Get)
			or.Put("/{id}", objectsH.Update)
			or.Delete("/{id}", objectsH.Delete)
			or.Put("/{id}/inactive", objectsH.SetInactive)

			or.Get("/{id}/workers", objectsH.Workers)
			or.Put("/{id}/workers/{contactID}", objectsH.AssignWorker)
			or.Delete("/{id}/workers/{contactID}", objectsH.UnassignWorker)
			or.Post("/{id}/workers/{contactID}/review", objectsH.AddReview)
			or.Delete("/{id}/workers/{contactID}/review", objectsH.DeleteReview)

			or.Get("/{id}/tasks", objectsH.Tasks)
			or.Post("/{id}/tasks", objectsH.CreateTask)
			or.Post("/{id}/tasks/{taskID}/toggle", objectsH.ToggleTask)
			or.Delete("/{id}/tasks/{taskID}", objectsH.DeleteTask)
		})

		ar.Route("/teams", func(tr chi.Router) {
			tr.Get("/", teamsH.List)
			tr.Post("/", teamsH.Create)
			tr.Post("/join", teamsH.Join)
			tr.Get("/{id}", teamsH.Get)
			tr.Get("/{id}/members", teamsH.Members)
			tr.Post("/{id}/members/{userID}/approve", teamsH.Approve)
			tr.Post("/{id}/members/{userID}/reject", teamsH.Reject)
			tr.Delete("/{id}/members/{userID}", teamsH.Remove)
			tr.Put("/{id}/members/{userID}/role", teamsH.ChangeRole)
			tr.Post("/{id}/invite-code", teamsH.RegenerateInviteCode)
			tr.Post("/{id}/leave", teamsH.Leave)
		})
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
