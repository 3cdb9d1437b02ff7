package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/planora/planora/internal/auth"
	"github.com/planora/planora/internal/metrics"
	"github.com/planora/planora/internal/store"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Store          *store.Store
	Auth           *auth.Service
	Metrics        *metrics.Metrics
	DBPing         func(context.Context) error
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	authH := newAuthHandler(deps.Auth, deps.Metrics)
	users := newUsersHandler(deps.Store)
	events := newEventsHandler(deps.Store)
	team := newTeamHandler(deps.Store, events)
	tasks := newTasksHandler(deps.Store, events)
	vendors := newVendorsHandler(deps.Store, events)
	expenses := newExpensesHandler(deps.Store, events)
	documents := newDocumentsHandler(deps.Store, events)

	// Health check.
	r.Get("/health", healthHandler(deps.DBPing))

	// Metrics summary.
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	// Public (unauthenticated) routes. Credential endpoints share a tight
	// per-IP limiter; it sweeps its own expired windows from the request
	// path, so the router owns no background goroutine.
	loginRL := newLoginRateLimiter(10, time.Minute)
	r.Post("/api/v1/auth/login", loginRateLimit(loginRL, authH.Login))
	r.Post("/api/v1/auth/register", loginRateLimit(loginRL, authH.Register))

	// Authenticated routes.
	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(auth.Middleware(deps.Auth))

		ar.Get("/auth/me", authH.Me)

		ar.Get("/users/me", users.GetMe)
		ar.Put("/users/me", users.UpdateMe)

		ar.Post("/events", events.CreateEvent)
		ar.Get("/events", events.ListEvents)
		ar.Get("/events/{id}", events.GetEvent)
		ar.Put("/events/{id}", events.UpdateEvent)
		ar.Delete("/events/{id}", events.DeleteEvent)
		ar.Get("/events/{id}/activity", events.GetActivity)

		ar.Get("/events/{id}/team", team.ListMembers)
		ar.Post("/events/{id}/team", team.InviteMember)
		ar.Put("/events/{id}/team/{userID}", team.UpdateMember)
		ar.Delete("/events/{id}/team/{userID}", team.RemoveMember)

		ar.Post("/events/{id}/tasks", tasks.CreateTask)
		ar.Get("/events/{id}/tasks", tasks.ListTasks)
		ar.Get("/tasks/{id}", tasks.GetTask)
		ar.Put("/tasks/{id}", tasks.UpdateTask)
		ar.Delete("/tasks/{id}", tasks.DeleteTask)
		ar.Get("/tasks/{id}/assignees", tasks.ListAssignees)
		ar.Put("/tasks/{id}/assignees/{userID}", tasks.AddAssignee)
		ar.Delete("/tasks/{id}/assignees/{userID}", tasks.RemoveAssignee)

		ar.Post("/events/{id}/vendors", vendors.CreateVendor)
		ar.Get("/events/{id}/vendors", vendors.ListVendors)
		ar.Get("/vendors/{id}", vendors.GetVendor)
		ar.Put("/vendors/{id}", vendors.UpdateVendor)
		ar.Delete("/vendors/{id}", vendors.DeleteVendor)

		ar.Post("/events/{id}/expenses", expenses.CreateExpense)
		ar.Get("/events/{id}/expenses", expenses.ListExpenses)
		ar.Get("/expenses/{id}", expenses.GetExpense)
		ar.Put("/expenses/{id}", expenses.UpdateExpense)
		ar.Delete("/expenses/{id}", expenses.DeleteExpense)

		ar.Post("/events/{id}/documents", documents.CreateDocument)
		ar.Get("/events/{id}/documents", documents.ListDocuments)
		ar.Get("/documents/{id}", documents.GetDocument)
		ar.Delete("/documents/{id}", documents.DeleteDocument)
	})

	return r
}

// healthHandler reports liveness plus database reachability.
func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":   "degraded",
					"database": "unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "connected",
		})
	}
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
