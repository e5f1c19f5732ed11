package common

import "time"

// Cookie and header names shared by the HTTP layer and the request gate.
const (
	SessionCookieName = "cms_session"
	CSRFCookieName    = "cms_csrf"
	CSRFHeaderName    = "x-csrf-token"
)

// CSRFTokenTTL is the lifetime of the anti-forgery cookie.
const CSRFTokenTTL = 24 * time.Hour

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}
