// internal/auth/bearer.go
//
// Static bearer-token identity for the admin API.
//
// Context
// -------
// Operators map opaque tokens to user ids in configuration
// (`admin.tokens`).  The middleware attaches the user id when the
// Authorization header carries a known token and leaves the request
// anonymous otherwise; acl.RequireUser decides what anonymous means.

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerTokens maps `Authorization: Bearer <token>` to a user id.
func BearerTokens(tokens map[string]int64) func(http.Handler) http.Handler {
	type entry struct {
		token []byte
		user  int64
	}
	entries := make([]entry, 0, len(tokens))
	for tok, uid := range tokens {
		if tok == "" {
			continue
		}
		entries = append(entries, entry{token: []byte(tok), user: uid})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearer(r)
			if ok {
				for _, e := range entries {
					if subtle.ConstantTimeCompare(e.token, presented) == 1 {
						r = r.WithContext(WithUser(r.Context(), e.user))
						break
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) ([]byte, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, false
	}
	tok = strings.TrimSpace(tok)
	return []byte(tok), tok != ""
}
