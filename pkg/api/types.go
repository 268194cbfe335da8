package api

import (
	"net/http"
	"time"

	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/content"
	"github.com/devopshub/gatehouse/pkg/httputil"
	"github.com/devopshub/gatehouse/pkg/view"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email string `json:"email"`
}

// LoginResponse returns the minted bearer token and the caller's access state
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Snapshot  auth.Snapshot `json:"snapshot"`
	View      view.View     `json:"view"`
}

// SessionResponse describes the current session's access state
type SessionResponse struct {
	Snapshot auth.Snapshot `json:"snapshot"`
	View     view.View     `json:"view"`
}

// ViewResponse is the body of GET /view
type ViewResponse struct {
	View view.View `json:"view"`
}

// EmailRequest carries one email for permission and request mutations
type EmailRequest struct {
	Email string `json:"email"`
}

// PermissionsResponse lists the permission records
type PermissionsResponse struct {
	Permissions []auth.Permission `json:"permissions"`
	Count       int               `json:"count"`
}

// PendingRequestsResponse lists the pending access requests
type PendingRequestsResponse struct {
	Requests []auth.PendingRequest `json:"requests"`
	Count    int                   `json:"count"`
}

// ContentListResponse lists library items
type ContentListResponse struct {
	Items []content.Content `json:"items"`
	Count int               `json:"count"`
}

// SeriesResponse lists the browsing rows
type SeriesResponse struct {
	Groups []content.SeriesGroup `json:"groups"`
}

// PlaylistResponse lists the up-next queue for one item
type PlaylistResponse struct {
	Items []content.Content `json:"items"`
	Count int               `json:"count"`
}

// StatusResponse acknowledges a mutation with no payload
type StatusResponse struct {
	Status string `json:"status"`
}

var okStatus = StatusResponse{Status: "ok"}

// writeAuthError maps the auth error taxonomy onto HTTP statuses:
// validation 400, protected record 403, not found 404, everything else 500.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case err == auth.ErrEmptyEmail:
		httputil.WriteValidationError(w, err.Error())
	case auth.IsProtectedRecord(err):
		httputil.WriteForbidden(w, err.Error())
	case auth.IsNotFound(err):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

// writeContentError maps the content error taxonomy onto HTTP statuses
func writeContentError(w http.ResponseWriter, err error) {
	switch {
	case content.IsValidation(err):
		httputil.WriteValidationError(w, err.Error())
	case content.IsNotFound(err):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
