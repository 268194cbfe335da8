// Package api exposes the portal over HTTP: session endpoints, the gated
// content library, and the admin management surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/content"
	"github.com/devopshub/gatehouse/pkg/middleware"
	"github.com/devopshub/gatehouse/pkg/observability"
)

// Server wires the domain services into an HTTP route table
type Server struct {
	controller    *auth.Controller
	library       *content.Aggregator
	authenticator *middleware.SessionAuthenticator
	auditor       audit.Recorder
	limiter       *middleware.RateLimiter
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// ServerConfig carries the collaborators of a Server
type ServerConfig struct {
	Controller    *auth.Controller
	Library       *content.Aggregator
	Authenticator *middleware.SessionAuthenticator
	Auditor       audit.Recorder
	Limiter       *middleware.RateLimiter
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// NewServer creates a server over the given services
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Server{
		controller:    cfg.Controller,
		library:       cfg.Library,
		authenticator: cfg.Authenticator,
		auditor:       cfg.Auditor,
		limiter:       cfg.Limiter,
		logger:        logger.WithField("component", "api"),
		metrics:       cfg.Metrics,
	}
}

// Router builds the route table. Content routes require authorization, admin
// routes require the admin flag; both are re-derived on every request.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(mux.MiddlewareFunc(middleware.RequestID))
	r.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	r.Use(mux.MiddlewareFunc(s.authenticator.Attach))

	// Session lifecycle. Login and request-access are reachable without
	// authorization and sit behind the per-IP rate limiter.
	s.route(r, "POST", "/auth/login", s.limited(http.HandlerFunc(s.handleLogin)))
	s.route(r, "POST", "/auth/logout", middleware.RequireSession(http.HandlerFunc(s.handleLogout)))
	s.route(r, "GET", "/auth/session", middleware.RequireSession(http.HandlerFunc(s.handleSession)))
	s.route(r, "POST", "/auth/request-access", s.limited(middleware.RequireSession(http.HandlerFunc(s.handleRequestAccess))))

	// View routing works for any caller; no session means the login view
	s.route(r, "GET", "/view", http.HandlerFunc(s.handleView))

	// Content library, gated on authorization
	s.route(r, "GET", "/content", middleware.RequireAuthorized(http.HandlerFunc(s.handleListContent)))
	s.route(r, "GET", "/content/series", middleware.RequireAuthorized(http.HandlerFunc(s.handleSeries)))
	s.route(r, "GET", "/content/{id}", middleware.RequireAuthorized(http.HandlerFunc(s.handleGetContent)))
	s.route(r, "GET", "/content/{id}/playlist", middleware.RequireAuthorized(http.HandlerFunc(s.handlePlaylist)))
	s.route(r, "GET", "/content/{id}/links", middleware.RequireAuthorized(http.HandlerFunc(s.handleLinks)))

	// Content management, admin only
	s.route(r, "POST", "/content", middleware.RequireAdmin(http.HandlerFunc(s.handleAddContent)))
	s.route(r, "PATCH", "/content/{id}", middleware.RequireAdmin(http.HandlerFunc(s.handleUpdateContent)))
	s.route(r, "DELETE", "/content/{id}", middleware.RequireAdmin(http.HandlerFunc(s.handleRemoveContent)))

	// Access management, admin only
	s.route(r, "GET", "/admin/permissions", middleware.RequireAdmin(http.HandlerFunc(s.handleListPermissions)))
	s.route(r, "POST", "/admin/permissions", middleware.RequireAdmin(http.HandlerFunc(s.handleAddPermission)))
	s.route(r, "DELETE", "/admin/permissions/{email}", middleware.RequireAdmin(http.HandlerFunc(s.handleRemovePermission)))
	s.route(r, "POST", "/admin/permissions/{email}/grant-admin", middleware.RequireAdmin(http.HandlerFunc(s.handleGrantAdmin)))
	s.route(r, "POST", "/admin/permissions/{email}/revoke-admin", middleware.RequireAdmin(http.HandlerFunc(s.handleRevokeAdmin)))
	s.route(r, "GET", "/admin/requests", middleware.RequireAdmin(http.HandlerFunc(s.handleListRequests)))
	s.route(r, "POST", "/admin/requests/{email}/approve", middleware.RequireAdmin(http.HandlerFunc(s.handleApproveRequest)))
	s.route(r, "POST", "/admin/requests/{email}/deny", middleware.RequireAdmin(http.HandlerFunc(s.handleDenyRequest)))
	s.route(r, "GET", "/admin/audit", middleware.RequireAdmin(http.HandlerFunc(s.handleListAudit)))

	return r
}

// route registers a handler with panic recovery and, when enabled, metrics
func (s *Server) route(r *mux.Router, method, path string, handler http.Handler) {
	wrapped := s.recover(handler)
	if s.metrics != nil {
		wrapped = s.metrics.InstrumentHandler(path, wrapped)
	}
	r.Handle(path, wrapped).Methods(method)
}

func (s *Server) limited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Limit(next)
}

func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panicked := true
		defer func() {
			if panicked {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		defer observability.RecoverPanic(s.logger, r.Method+" "+r.URL.Path)

		next.ServeHTTP(w, r)
		panicked = false
	})
}

// record writes an audit event; audit failures are logged, never surfaced
func (s *Server) record(r *http.Request, action, subject, detail string) {
	if s.auditor == nil {
		return
	}

	actor := ""
	if snapshot := middleware.SnapshotFrom(r); snapshot != nil {
		actor = snapshot.Email
	}

	event := audit.Event{Actor: actor, Action: action, Subject: subject, Detail: detail}
	if err := s.auditor.Record(r.Context(), event); err != nil {
		s.logger.WithError(err).WithField("action", action).Error("Failed to record audit event")
	}
}
