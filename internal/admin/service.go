// internal/admin/service.go
//
// Admin use-cases for the tracking switch.
//
// Context
// -------
// The admin screen lists sites with a checkbox each.  A save submits the
// whole visible list together with the subset that is checked.  Save turns
// that into one scoped reconcile:
//
//	target = checked sites
//	scope  = every site shown
//
// so sites the administrator could not see are never re-enabled or
// disabled as a side effect.
//
// Access is checked for every referenced site *before* the store is
// touched; one missing permission aborts the whole save.
package admin

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/auth"
	"github.com/yanizio/trackgate/internal/disable"
)

// Selection is one row of a submitted admin form.
type Selection struct {
	SiteID  int64 `json:"id"`
	Checked bool  `json:"checked"`
}

// StateStore is the slice of disable.Store the admin surface needs.
type StateStore interface {
	Reconcile(ctx context.Context, target, scope []int64) error
	ListSitesWithState(ctx context.Context) ([]disable.SiteState, error)
}

// AccessControl is satisfied by acl.Control.
type AccessControl interface {
	RequireAdminAccess(ctx context.Context, siteIDs []int64) error
	AdministeredSites(ctx context.Context) (ids []int64, all bool, err error)
}

// Service wires the store and access control together.
type Service struct {
	store StateStore
	acl   AccessControl
}

// NewService builds a Service.
func NewService(store StateStore, acl AccessControl) *Service {
	return &Service{store: store, acl: acl}
}

// Save applies one submitted form.  A site listed twice counts as checked
// if any of its rows is.  A row naming an unknown site, checked or not,
// aborts the save with disable.ErrInvalidSite before anything is written.
func (s *Service) Save(ctx context.Context, rows []Selection) error {
	if len(rows) == 0 {
		return nil
	}

	checked := make(map[int64]bool, len(rows))
	for _, r := range rows {
		checked[r.SiteID] = checked[r.SiteID] || r.Checked
	}
	scope := make([]int64, 0, len(checked))
	target := make([]int64, 0, len(checked))
	for id, on := range checked {
		scope = append(scope, id)
		if on {
			target = append(target, id)
		}
	}
	slices.Sort(scope)
	slices.Sort(target)

	if err := s.acl.RequireAdminAccess(ctx, scope); err != nil {
		return err
	}
	if err := s.store.Reconcile(ctx, target, scope); err != nil {
		return err
	}

	uid, _ := auth.UserID(ctx)
	zap.L().Info("admin saved disabled sites",
		zap.Int64("user_id", uid),
		zap.Int64s("scope", scope),
		zap.Int64s("disabled", target))
	return nil
}

// List returns the sites the caller administers, ordered by label, with
// their current state.
func (s *Service) List(ctx context.Context) ([]disable.SiteState, error) {
	ids, all, err := s.acl.AdministeredSites(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.store.ListSitesWithState(ctx)
	if err != nil {
		return nil, err
	}
	if all {
		return states, nil
	}

	visible := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		visible[id] = struct{}{}
	}
	out := make([]disable.SiteState, 0, len(ids))
	for _, st := range states {
		if _, ok := visible[st.SiteID]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}
