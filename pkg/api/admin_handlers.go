package api

import (
	"net/http"
	"strconv"

	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/httputil"
	"github.com/devopshub/gatehouse/pkg/middleware"
)

// handleListPermissions returns the permission list, oldest grant first
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms := s.controller.Permissions()
	httputil.WriteSuccess(w, PermissionsResponse{Permissions: perms, Count: len(perms)})
}

// handleAddPermission grants non-admin access to an email
func (s *Server) handleAddPermission(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	actor := actorEmail(r)
	if err := s.controller.AddPermission(r.Context(), req.Email, actor); err != nil {
		writeAuthError(w, err)
		return
	}

	s.record(r, audit.ActionPermissionAdded, req.Email, "")
	s.syncGauges()
	httputil.WriteCreated(w, okStatus)
}

// handleRemovePermission revokes an email's access. The permanent admin is
// protected; any live session for the email loses access immediately.
func (s *Server) handleRemovePermission(w http.ResponseWriter, r *http.Request) {
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}

	if err := s.controller.RemovePermission(r.Context(), email); err != nil {
		writeAuthError(w, err)
		return
	}

	s.record(r, audit.ActionPermissionRemoved, email, "")
	s.syncGauges()
	httputil.WriteSuccess(w, okStatus)
}

// handleGrantAdmin sets the admin bit for an email
func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}

	if err := s.controller.GrantAdmin(r.Context(), email); err != nil {
		writeAuthError(w, err)
		return
	}

	s.record(r, audit.ActionAdminGranted, email, "")
	httputil.WriteSuccess(w, okStatus)
}

// handleRevokeAdmin clears the admin bit. Admins may revoke their own bit;
// the permanent admin is unaffected either way.
func (s *Server) handleRevokeAdmin(w http.ResponseWriter, r *http.Request) {
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}

	if err := s.controller.RevokeAdmin(r.Context(), email); err != nil {
		writeAuthError(w, err)
		return
	}

	s.record(r, audit.ActionAdminRevoked, email, "")
	httputil.WriteSuccess(w, okStatus)
}

// handleListRequests returns the pending access requests, oldest first
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests := s.controller.PendingRequests()
	httputil.WriteSuccess(w, PendingRequestsResponse{Requests: requests, Count: len(requests)})
}

// handleApproveRequest promotes a pending request to a permission in one
// atomic store write
func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}

	if err := s.controller.ApproveRequest(r.Context(), email, actorEmail(r)); err != nil {
		writeAuthError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.AccessDecisionsTotal.WithLabelValues("approved").Inc()
	}
	s.record(r, audit.ActionRequestApproved, email, "")
	s.syncGauges()
	httputil.WriteSuccess(w, okStatus)
}

// handleDenyRequest drops a pending request
func (s *Server) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	email, ok := httputil.ParsePathStringOrError(w, r, "email")
	if !ok {
		return
	}

	if err := s.controller.DenyRequest(r.Context(), email); err != nil {
		writeAuthError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.AccessDecisionsTotal.WithLabelValues("denied").Inc()
	}
	s.record(r, audit.ActionRequestDenied, email, "")
	s.syncGauges()
	httputil.WriteSuccess(w, okStatus)
}

// handleListAudit returns recent audit events, newest first
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		httputil.WriteSuccess(w, map[string]interface{}{"events": []audit.Event{}, "count": 0})
		return
	}

	limit, _ := strconv.Atoi(httputil.ParseQueryString(r, "limit", "100"))

	events, err := s.auditor.ListEvents(r.Context(), limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"events": events, "count": len(events)})
}

// actorEmail returns the acting admin's email from the request snapshot
func actorEmail(r *http.Request) string {
	if snapshot := middleware.SnapshotFrom(r); snapshot != nil {
		return snapshot.Email
	}
	return ""
}

func (s *Server) syncGauges() {
	if s.metrics == nil {
		return
	}
	s.syncAccessGauges()
}
