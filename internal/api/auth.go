package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/AdventureEngine/internal/config"
)

// Role represents an authorization role.
type Role string

const RoleAdmin Role = "admin"

// authConfig holds the studio credentials.
type authConfig struct {
	admin   config.Credentials
	enabled bool
}

var auth *authConfig

// InitAuth loads ADVENTURE_ADMIN_USER and ADVENTURE_ADMIN_PASS, each
// honouring the *_FILE convention. Without both, authentication is
// disabled.
func InitAuth() error {
	admin, err := config.ResolveCredentials("ADVENTURE_ADMIN")
	if err != nil {
		return fmt.Errorf("failed to resolve admin credentials: %w", err)
	}
	auth = &authConfig{admin: admin, enabled: admin.IsSet()}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate checks basic auth credentials and returns the role if valid.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	if secureCompare(user, auth.admin.User) && secureCompare(pass, auth.admin.Pass) {
		return RoleAdmin
	}
	return ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Adventure Studio"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireAdmin wraps a handler requiring the admin role.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authenticate(r) != RoleAdmin {
			requireAuth(w)
			return
		}
		handler(w, r)
	}
}
