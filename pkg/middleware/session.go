// Package middleware provides the HTTP middleware chain: request IDs,
// request logging, session authentication, and login rate limiting.
package middleware

import (
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/devopshub/gatehouse/pkg/auth"
	"github.com/devopshub/gatehouse/pkg/contextkeys"
	"github.com/devopshub/gatehouse/pkg/httputil"
	"github.com/devopshub/gatehouse/pkg/observability"
)

// RequestID assigns each request a UUID, exposed in the X-Request-ID header
// and the request context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithRequestID(r.Context(), requestID)))
	})
}

// Logging attaches the logger to the request context and logs each request
// on completion
func Logging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := observability.WithLogger(r.Context(), logger)

			next.ServeHTTP(w, r.WithContext(ctx))

			observability.FromContext(ctx).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("Request handled")
		})
	}
}

type cachedSession struct {
	session *auth.Session
}

// SessionAuthenticator resolves bearer tokens to sessions. Resolved sessions
// are held in a small LRU keyed by token hash so hot sessions skip the store;
// expiry is still enforced on every hit, and the snapshot is always derived
// fresh from the controller so permission changes bypass the cache entirely.
type SessionAuthenticator struct {
	controller *auth.Controller
	cache      *lru.Cache[string, cachedSession]
}

// NewSessionAuthenticator creates an authenticator with an LRU of the given size
func NewSessionAuthenticator(controller *auth.Controller, cacheSize int) (*SessionAuthenticator, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	cache, err := lru.New[string, cachedSession](cacheSize)
	if err != nil {
		return nil, err
	}

	return &SessionAuthenticator{controller: controller, cache: cache}, nil
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// authenticate resolves the request's bearer token, consulting the LRU first
func (a *SessionAuthenticator) authenticate(r *http.Request) *auth.Session {
	token := bearerToken(r)
	if token == "" {
		return nil
	}

	hash := auth.HashToken(token)
	if cached, ok := a.cache.Get(hash); ok {
		if !cached.session.Expired(time.Now()) {
			return cached.session
		}
		a.cache.Remove(hash)
	}

	session, err := a.controller.Authenticate(r.Context(), token)
	if err != nil {
		return nil
	}

	a.cache.Add(hash, cachedSession{session: session})
	return session
}

// Evict drops a token's cached session, used on logout
func (a *SessionAuthenticator) Evict(token string) {
	a.cache.Remove(auth.HashToken(token))
}

// Attach resolves the session when a bearer token is present and places the
// derived snapshot in the context. Requests without a valid token pass
// through with no snapshot.
func (a *SessionAuthenticator) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session := a.authenticate(r); session != nil {
			snapshot := a.controller.SnapshotFor(session.Email)
			r = r.WithContext(contextkeys.WithSession(r.Context(), &snapshot))
		}
		next.ServeHTTP(w, r)
	})
}

// SnapshotFrom retrieves the access snapshot placed by Attach. Nil when the
// request carried no valid session.
func SnapshotFrom(r *http.Request) *auth.Snapshot {
	if snapshot, ok := r.Context().Value(contextkeys.SessionKey).(*auth.Snapshot); ok {
		return snapshot
	}
	return nil
}

// RequireSession rejects requests without a valid session
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SnapshotFrom(r) == nil {
			httputil.WriteUnauthorized(w, "session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthorized rejects sessions whose email is not on the permission list
func RequireAuthorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := SnapshotFrom(r)
		if snapshot == nil {
			httputil.WriteUnauthorized(w, "session required")
			return
		}
		if !snapshot.Authorized {
			httputil.WriteForbidden(w, "access not granted")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects sessions without the admin flag. The flag is derived
// per request, so a revoked admin is locked out immediately.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := SnapshotFrom(r)
		if snapshot == nil {
			httputil.WriteUnauthorized(w, "session required")
			return
		}
		if !snapshot.Admin {
			httputil.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
