package gate

import "net/http"

// Middleware runs g ahead of next.  On Terminate it returns without writing
// a body and without calling next.
func Middleware(g *Gate, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Check(r.Context(), FromHTTP(r, param)) == Terminate {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
