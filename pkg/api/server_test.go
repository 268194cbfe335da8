package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/content"
	"github.com/devopshub/gatehouse/pkg/middleware"
)

// in-memory stores backing the handler tests

type memPermissions struct {
	perms   map[string]auth.Permission
	pending map[string]auth.PendingRequest
}

func (m *memPermissions) ListPermissions(context.Context) ([]auth.Permission, error) {
	var out []auth.Permission
	for _, p := range m.perms {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPermissions) GetPermission(_ context.Context, email string) (*auth.Permission, error) {
	p, ok := m.perms[email]
	if !ok {
		return nil, &auth.NotFoundError{Kind: "permission", Email: email}
	}
	return &p, nil
}

func (m *memPermissions) InsertPermission(_ context.Context, perm auth.Permission) (bool, error) {
	if _, ok := m.perms[perm.Email]; ok {
		return false, nil
	}
	m.perms[perm.Email] = perm
	return true, nil
}

func (m *memPermissions) DeletePermission(_ context.Context, email string) error {
	delete(m.perms, email)
	return nil
}

func (m *memPermissions) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	p, ok := m.perms[email]
	if !ok {
		return &auth.NotFoundError{Kind: "permission", Email: email}
	}
	p.IsAdmin = isAdmin
	m.perms[email] = p
	return nil
}

func (m *memPermissions) ListPendingRequests(context.Context) ([]auth.PendingRequest, error) {
	var out []auth.PendingRequest
	for _, r := range m.pending {
		out = append(out, r)
	}
	return out, nil
}

func (m *memPermissions) InsertPendingRequest(_ context.Context, email string) (bool, error) {
	if _, permitted := m.perms[email]; permitted {
		return false, nil
	}
	if _, pending := m.pending[email]; pending {
		return false, nil
	}
	m.pending[email] = auth.PendingRequest{Email: email, RequestedAt: time.Now()}
	return true, nil
}

func (m *memPermissions) DeletePendingRequest(_ context.Context, email string) error {
	delete(m.pending, email)
	return nil
}

func (m *memPermissions) Approve(_ context.Context, email, grantedBy string) error {
	if _, ok := m.perms[email]; !ok {
		m.perms[email] = auth.Permission{Email: email, GrantedBy: grantedBy}
	}
	delete(m.pending, email)
	return nil
}

func (m *memPermissions) Seed(_ context.Context, perms []auth.Permission) error {
	if len(m.perms) > 0 {
		return nil
	}
	for _, p := range perms {
		m.perms[p.Email] = p
	}
	return nil
}

type memSessions struct {
	sessions map[string]*auth.Session
}

func (m *memSessions) CreateSession(_ context.Context, s *auth.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now()
	copied := *s
	m.sessions[s.TokenHash] = &copied
	return nil
}

func (m *memSessions) GetSessionByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	s, ok := m.sessions[hash]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *memSessions) DeleteSession(_ context.Context, hash string) error {
	delete(m.sessions, hash)
	return nil
}

func (m *memSessions) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *memSessions) CountSessions(context.Context) (int64, error) {
	return int64(len(m.sessions)), nil
}

type memContent struct {
	items []content.Content
}

func (m *memContent) ListContent(context.Context) ([]content.Content, error) {
	out := make([]content.Content, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memContent) GetContent(_ context.Context, id string) (*content.Content, error) {
	for _, c := range m.items {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, &content.NotFoundError{ID: id}
}

func (m *memContent) CreateContent(_ context.Context, item *content.Content) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	m.items = append([]content.Content{*item}, m.items...)
	return nil
}

func (m *memContent) UpdateContent(_ context.Context, item *content.Content) error {
	for i := range m.items {
		if m.items[i].ID == item.ID {
			item.UpdatedAt = time.Now()
			m.items[i] = *item
			return nil
		}
	}
	return &content.NotFoundError{ID: item.ID}
}

func (m *memContent) DeleteContent(_ context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memContent) CountContent(context.Context) (int64, error) {
	return int64(len(m.items)), nil
}

type memAudit struct {
	events []audit.Event
}

func (m *memAudit) Record(_ context.Context, event audit.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) ListEvents(_ context.Context, limit int) ([]audit.Event, error) {
	out := make([]audit.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memAudit) DeleteEventsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

const portalAdmin = "admin@example.com"

type testPortal struct {
	t          *testing.T
	router     http.Handler
	controller *auth.Controller
	auditor    *memAudit
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()

	perms := &memPermissions{
		perms:   make(map[string]auth.Permission),
		pending: make(map[string]auth.PendingRequest),
	}
	sessions := &memSessions{sessions: make(map[string]*auth.Session)}

	controller := auth.NewController(perms, sessions, auth.ControllerConfig{
		PermanentAdminEmail: portalAdmin,
	})
	require.NoError(t, controller.Seed(context.Background(), nil))

	authenticator, err := middleware.NewSessionAuthenticator(controller, 16)
	require.NoError(t, err)

	auditor := &memAudit{}
	library := content.NewAggregator(&memContent{}, content.AggregatorConfig{})

	server := NewServer(ServerConfig{
		Controller:    controller,
		Library:       library,
		Authenticator: authenticator,
		Auditor:       auditor,
	})

	return &testPortal{
		t:          t,
		router:     server.Router(),
		controller: controller,
		auditor:    auditor,
	}
}

func (p *testPortal) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	p.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(p.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func (p *testPortal) login(email string) (string, LoginResponse) {
	p.t.Helper()

	rec := p.do("POST", "/auth/login", "", LoginRequest{Email: email})
	require.Equal(p.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(p.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp
}

func TestLoginReturnsTokenAndView(t *testing.T) {
	portal := newTestPortal(t)

	token, resp := portal.login(portalAdmin)

	assert.NotEmpty(t, token)
	assert.True(t, resp.Snapshot.Admin)
	assert.Equal(t, "library", string(resp.View))
}

func TestLoginUnknownEmailGetsRestrictedView(t *testing.T) {
	portal := newTestPortal(t)

	_, resp := portal.login("stranger@example.com")

	assert.False(t, resp.Snapshot.Authorized)
	assert.Equal(t, "restricted", string(resp.View))
}

func TestLoginEmptyEmailRejected(t *testing.T) {
	portal := newTestPortal(t)

	rec := portal.do("POST", "/auth/login", "", LoginRequest{Email: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpointRequiresToken(t *testing.T) {
	portal := newTestPortal(t)

	rec := portal.do("GET", "/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	portal := newTestPortal(t)
	token, _ := portal.login(portalAdmin)

	rec := portal.do("POST", "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("GET", "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContentRequiresAuthorization(t *testing.T) {
	portal := newTestPortal(t)

	rec := portal.do("GET", "/content", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _ := portal.login("stranger@example.com")
	rec = portal.do("GET", "/content", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminEndpointsRejectNonAdmins(t *testing.T) {
	portal := newTestPortal(t)

	adminToken, _ := portal.login(portalAdmin)
	rec := portal.do("POST", "/admin/permissions", adminToken, EmailRequest{Email: "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	memberToken, _ := portal.login("member@example.com")
	rec = portal.do("GET", "/admin/permissions", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAccessRequestLifecycle(t *testing.T) {
	portal := newTestPortal(t)

	userToken, _ := portal.login("newcomer@example.com")
	rec := portal.do("POST", "/auth/request-access", userToken, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Duplicate requests are still accepted, silently ignored
	rec = portal.do("POST", "/auth/request-access", userToken, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	adminToken, _ := portal.login(portalAdmin)
	rec = portal.do("GET", "/admin/requests", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pending PendingRequestsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Equal(t, 1, pending.Count)

	rec = portal.do("POST", "/admin/requests/newcomer@example.com/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The user's existing session sees access immediately
	rec = portal.do("GET", "/content", userToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDenyRequestLeavesUserUnauthorized(t *testing.T) {
	portal := newTestPortal(t)

	userToken, _ := portal.login("newcomer@example.com")
	rec := portal.do("POST", "/auth/request-access", userToken, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	adminToken, _ := portal.login(portalAdmin)
	rec = portal.do("POST", "/admin/requests/newcomer@example.com/deny", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("GET", "/content", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRemovePermissionLocksOutLiveSession(t *testing.T) {
	portal := newTestPortal(t)

	adminToken, _ := portal.login(portalAdmin)
	rec := portal.do("POST", "/admin/permissions", adminToken, EmailRequest{Email: "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	memberToken, _ := portal.login("member@example.com")
	rec = portal.do("GET", "/content", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("DELETE", "/admin/permissions/member@example.com", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("GET", "/content", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRemovePermanentAdminForbidden(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	rec := portal.do("DELETE", "/admin/permissions/"+portalAdmin, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGrantAdminUnknownEmail404(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	rec := portal.do("POST", "/admin/permissions/stranger@example.com/grant-admin", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelfDemotionDropsAdminSurface(t *testing.T) {
	portal := newTestPortal(t)

	adminToken, _ := portal.login(portalAdmin)
	rec := portal.do("POST", "/admin/permissions", adminToken, EmailRequest{Email: "deputy@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = portal.do("POST", "/admin/permissions/deputy@example.com/grant-admin", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	deputyToken, _ := portal.login("deputy@example.com")
	rec = portal.do("GET", "/admin/permissions", deputyToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The deputy revokes their own admin bit and is locked out immediately
	rec = portal.do("POST", "/admin/permissions/deputy@example.com/revoke-admin", deputyToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("GET", "/admin/permissions", deputyToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// But they keep plain library access
	rec = portal.do("GET", "/content", deputyToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentCRUD(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	body := map[string]interface{}{
		"title":         "Episode 1",
		"thumbnail_url": "https://example.com/t.jpg",
		"drive_file_id": "drive-1",
		"type":          "video",
		"series":        "Series A",
	}
	rec := portal.do("POST", "/content", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created content.Content
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = portal.do("GET", "/content/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = portal.do("PATCH", "/content/"+created.ID, adminToken, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated content.Content
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)

	rec = portal.do("DELETE", "/content/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = portal.do("GET", "/content/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentValidationRejected(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	rec := portal.do("POST", "/content", adminToken, map[string]string{"title": "No drive id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentSearchAndSeries(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	add := func(title, series string) {
		body := map[string]interface{}{
			"title":         title,
			"thumbnail_url": "https://example.com/t.jpg",
			"drive_file_id": "drive-" + title,
			"type":          "video",
		}
		if series != "" {
			body["series"] = series
		}
		rec := portal.do("POST", "/content", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	add("Intro to Networking", "Networking")
	add("Advanced Networking", "Networking")
	add("Standalone Talk", "")

	rec := portal.do("GET", "/content?q=networking", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list ContentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rec = portal.do("GET", "/content/series", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var series SeriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series.Groups, 2)
	assert.Equal(t, "Networking", series.Groups[0].Name)
	assert.Equal(t, content.StandaloneGroup, series.Groups[1].Name)
}

func TestContentLinks(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	body := map[string]interface{}{
		"title":         "Handbook",
		"thumbnail_url": "https://example.com/t.jpg",
		"drive_file_id": "doc-42",
		"type":          "document",
	}
	rec := portal.do("POST", "/content", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created content.Content
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = portal.do("GET", fmt.Sprintf("/content/%s/links", created.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var links map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	assert.Equal(t, "https://drive.google.com/file/d/doc-42/view", links["open_url"])
}

func TestViewEndpoint(t *testing.T) {
	portal := newTestPortal(t)

	// No session
	rec := portal.do("GET", "/view", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "login", string(resp.View))

	// Admin asking for the admin surface keeps it
	adminToken, _ := portal.login(portalAdmin)
	rec = portal.do("GET", "/view?requested=admin", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "admin", string(resp.View))

	// A plain member asking for admin is demoted to the library
	rec = portal.do("POST", "/admin/permissions", adminToken, EmailRequest{Email: "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	memberToken, _ := portal.login("member@example.com")
	rec = portal.do("GET", "/view?requested=admin", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "library", string(resp.View))

	// Unknown views are rejected
	rec = portal.do("GET", "/view?requested=dashboard", memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminActionsAreAudited(t *testing.T) {
	portal := newTestPortal(t)
	adminToken, _ := portal.login(portalAdmin)

	rec := portal.do("POST", "/admin/permissions", adminToken, EmailRequest{Email: "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = portal.do("DELETE", "/admin/permissions/member@example.com", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, portal.auditor.events, 2)
	assert.Equal(t, audit.ActionPermissionAdded, portal.auditor.events[0].Action)
	assert.Equal(t, portalAdmin, portal.auditor.events[0].Actor)
	assert.Equal(t, audit.ActionPermissionRemoved, portal.auditor.events[1].Action)

	rec = portal.do("GET", "/admin/audit", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
