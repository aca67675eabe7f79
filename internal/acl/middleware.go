// internal/acl/middleware.go
//
// Chi middleware helpers that gate the admin surface.

package acl

import (
	"net/http"

	"github.com/yanizio/trackgate/internal/auth"
)

// RequireUser answers 401 unless an authenticated user is attached.
// Per-site checks happen later, once the handler knows which sites a
// request touches.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserID(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="trackgate"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
