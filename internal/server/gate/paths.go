package gate

import "strings"

const (
	apiPrefix  = "/api"
	authPrefix = "/api/auth"

	// LoginPath is the only mutating endpoint exempt from CSRF checks.
	LoginPath = "/api/auth/login"
)

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// IsAPIPath reports whether path is in the /api namespace.
func IsAPIPath(path string) bool { return underPrefix(path, apiPrefix) }

// IsAuthPath reports whether path is in the /api/auth namespace.
func IsAuthPath(path string) bool { return underPrefix(path, authPrefix) }

// IsProtectedPath reports whether path requires a session: every /api path
// outside /api/auth.
func IsProtectedPath(path string) bool { return IsAPIPath(path) && !IsAuthPath(path) }
