// internal/acl/control.go
//
// Site-level admin checks.
//
// Context
// -------
// Access is recorded per site in the registry's `site_access` table:
//
//	site_access (user_id, site_id, access)
//
// Only rows with access = 'admin' grant the right to flip a site's tracking
// switch.  Superusers, listed in configuration, bypass the lookup.
//
// Control answers one question for the admin surface:
//
//	May the current user administer *every* site in this list?
//
// A partial answer is never given; one missing site denies the whole call.
//
// Notes
// -----
// • The user comes from auth.UserID; no user means ErrUnauthenticated.
// • Lookup errors are returned as-is so callers can map them to 500.
package acl

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/auth"
)

var (
	// ErrForbidden means the user lacks admin access to at least one site.
	ErrForbidden = errors.New("acl: admin access required")

	// ErrUnauthenticated means no user is attached to the context.
	ErrUnauthenticated = errors.New("acl: no authenticated user")
)

// AccessLookup returns the ids of sites a user administers.
// site.Repository satisfies it.
type AccessLookup interface {
	AdminSiteIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Control enforces admin access against an AccessLookup.
type Control struct {
	lookup     AccessLookup
	superusers map[int64]struct{}
}

// NewControl builds a Control.  superusers may be nil.
func NewControl(lookup AccessLookup, superusers []int64) *Control {
	su := make(map[int64]struct{}, len(superusers))
	for _, id := range superusers {
		su[id] = struct{}{}
	}
	return &Control{lookup: lookup, superusers: su}
}

// IsSuperuser reports whether userID bypasses site checks.
func (c *Control) IsSuperuser(userID int64) bool {
	_, ok := c.superusers[userID]
	return ok
}

// AdministeredSites returns the ids the user in ctx administers.  all is
// true for superusers, in which case ids is nil.
func (c *Control) AdministeredSites(ctx context.Context) (ids []int64, all bool, err error) {
	uid, ok := auth.UserID(ctx)
	if !ok {
		return nil, false, ErrUnauthenticated
	}
	if c.IsSuperuser(uid) {
		return nil, true, nil
	}
	ids, err = c.lookup.AdminSiteIDs(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("acl: admin sites for user %d: %w", uid, err)
	}
	return ids, false, nil
}

// RequireAdminAccess returns nil only if the user in ctx administers every
// id in siteIDs.  An empty list still requires an authenticated user.
func (c *Control) RequireAdminAccess(ctx context.Context, siteIDs []int64) error {
	uid, ok := auth.UserID(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if c.IsSuperuser(uid) || len(siteIDs) == 0 {
		return nil
	}

	owned, err := c.lookup.AdminSiteIDs(ctx, uid)
	if err != nil {
		return fmt.Errorf("acl: admin sites for user %d: %w", uid, err)
	}
	allowed := make(map[int64]struct{}, len(owned))
	for _, id := range owned {
		allowed[id] = struct{}{}
	}
	for _, id := range siteIDs {
		if _, ok := allowed[id]; !ok {
			zap.L().Info("acl denied",
				zap.Int64("user_id", uid),
				zap.Int64("site_id", id))
			return fmt.Errorf("%w: site %d", ErrForbidden, id)
		}
	}
	return nil
}
