// internal/auth/context.go
//
// User-ID context helpers.  Authentication itself is delegated to whatever
// sits in front of the admin surface; this package only carries the result.
//
// Usage
// -----
//     // Attach user 123 to the request context (after login).
//     ctx = auth.WithUser(ctx, 123)
//
//     // Downstream code retrieves the ID.
//     id, ok := auth.UserID(ctx)   // 123, true

package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given userID.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the userID from ctx.  It returns (0, false) if no user is set
// or if the stored value is not an int64.
func UserID(ctx context.Context) (int64, bool) {
	v := ctx.Value(userKey{})
	id, ok := v.(int64)
	return id, ok
}
