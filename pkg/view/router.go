// Package view decides which portal surface a user may see. The decision is
// recomputed from the current access snapshot on every request, so a revoked
// permission or demoted admin takes effect immediately.
package view

import "github.com/devopshub/gatehouse/pkg/auth"

// View names one of the portal's surfaces
type View string

const (
	// ViewLogin is shown to anyone without a session
	ViewLogin View = "login"

	// ViewRestricted is shown to logged-in users without authorization
	ViewRestricted View = "restricted"

	// ViewLibrary is the content library, for authorized users
	ViewLibrary View = "library"

	// ViewAdmin is the management surface, for admins only
	ViewAdmin View = "admin"
)

// Valid reports whether v is a known view
func (v View) Valid() bool {
	switch v {
	case ViewLogin, ViewRestricted, ViewLibrary, ViewAdmin:
		return true
	}
	return false
}

// Route returns the default view for a snapshot. A nil snapshot means no
// session.
func Route(snapshot *auth.Snapshot) View {
	if snapshot == nil {
		return ViewLogin
	}
	if !snapshot.Authorized {
		return ViewRestricted
	}
	return ViewLibrary
}

// Correct reconciles a requested view against the snapshot, demoting
// whatever the snapshot no longer supports. Admins asking for the admin
// surface keep it; everyone else lands on their routed default. An admin
// view held by a user whose admin flag has since been cleared demotes to
// the library.
func Correct(requested View, snapshot *auth.Snapshot) View {
	routed := Route(snapshot)
	if routed != ViewLibrary {
		return routed
	}

	if requested == ViewAdmin && snapshot.Admin {
		return ViewAdmin
	}
	return ViewLibrary
}
