package api

import (
	"net/http"
	"strings"

	"github.com/devopshub/gatehouse/pkg/httputil"
	"github.com/devopshub/gatehouse/pkg/middleware"
	"github.com/devopshub/gatehouse/pkg/observability"
	"github.com/devopshub/gatehouse/pkg/view"
)

// handleLogin mints a session for the submitted email. Any email logs in;
// what the session can see is decided by the derived snapshot.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, session, err := s.controller.Login(r.Context(), req.Email)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		}
		writeAuthError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("accepted").Inc()
	}

	snapshot := s.controller.SnapshotFor(session.Email)
	httputil.WriteSuccess(w, LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Snapshot:  snapshot,
		View:      view.Route(&snapshot),
	})
}

// handleLogout destroys the caller's session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerFrom(r)
	if token == "" {
		httputil.WriteUnauthorized(w, "session required")
		return
	}

	if err := s.controller.Logout(r.Context(), token); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to destroy session")
		httputil.WriteInternalError(w, err)
		return
	}

	s.authenticator.Evict(token)
	httputil.WriteSuccess(w, okStatus)
}

// handleSession reports the caller's derived access state
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snapshot := middleware.SnapshotFrom(r)
	httputil.WriteSuccess(w, SessionResponse{
		Snapshot: *snapshot,
		View:     view.Route(snapshot),
	})
}

// handleRequestAccess queues an access request for the caller's email.
// Duplicate and already-permitted requests succeed without effect.
func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	snapshot := middleware.SnapshotFrom(r)

	if err := s.controller.RequestAccess(r.Context(), snapshot.Email); err != nil {
		writeAuthError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.AccessRequestsTotal.Inc()
		s.syncAccessGauges()
	}

	httputil.WriteAccepted(w, okStatus)
}

// handleView resolves the view for the caller, honoring a requested view
// when the snapshot still supports it
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	snapshot := middleware.SnapshotFrom(r)

	requested := view.View(httputil.ParseQueryString(r, "requested", ""))
	if requested != "" && !requested.Valid() {
		httputil.WriteValidationError(w, "unknown view: "+string(requested))
		return
	}

	resolved := view.Route(snapshot)
	if requested != "" {
		resolved = view.Correct(requested, snapshot)
	}

	httputil.WriteSuccess(w, ViewResponse{View: resolved})
}

// bearerFrom extracts the raw bearer token from the Authorization header
func bearerFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// syncAccessGauges mirrors the controller counts into the business gauges
func (s *Server) syncAccessGauges() {
	permissions, pending := s.controller.Counts()
	s.metrics.PermissionsTotal.Set(float64(permissions))
	s.metrics.PendingRequestsTotal.Set(float64(pending))
}
