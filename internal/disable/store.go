// internal/disable/store.go
//
// Disable-state store: durable bookkeeping of per-site tracking switches.
//
// Context
// -------
// The store owns the `site_disable` table and answers one hot question,
// "is tracking for site N switched off?", plus the admin-side writes that
// change the answer.  It never caches; see cache.go for that.
//
// Every write is a single idempotent statement:
//
//	disable  INSERT … ON CONFLICT/DUPLICATE KEY → no-op when already open
//	enable   UPDATE … SET deleted_at = now WHERE open    (soft, default)
//	         DELETE … WHERE open                         (hard, optional)
//
// The "one open row per site" rule is a unique key on the table itself
// (see schema.go), so concurrent admin actions and retries commute without
// an application lock.  Right
// after each statement the store invalidates that site's cached decision,
// one site at a time, never batched.
//
// Notes
// -----
//   - Site ids are validated against the registry before any write.
//   - Storage failures are returned as *StorageError; nothing is dropped.
//   - Queries use `?` and Rebind unless the dialects need different SQL.
package disable

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/database"
	"github.com/yanizio/trackgate/internal/metrics"
	"github.com/yanizio/trackgate/internal/site"
)

// SiteLookup is the slice of the site registry the store needs.
// *site.Repository satisfies it.
type SiteLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
	ListAll(ctx context.Context) ([]site.Record, error)
}

// Invalidator drops one cached decision.  *Cache satisfies it.
type Invalidator interface {
	Invalidate(siteID int64)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(int64) {}

// Store is safe for concurrent use.
type Store struct {
	db         *sqlx.DB
	sites      SiteLookup
	hardDelete bool
	now        func() time.Time
	inv        Invalidator
}

// Option tunes a Store.
type Option func(*Store)

// WithHardDelete makes Enable delete the open row instead of closing it.
// History of earlier intervals is kept either way.
func WithHardDelete(on bool) Option { return func(s *Store) { s.hardDelete = on } }

// WithClock replaces time.Now; tests use it to pin timestamps.
func WithClock(fn func() time.Time) Option { return func(s *Store) { s.now = fn } }

// NewStore binds a Store to the control-plane pool and the site registry.
func NewStore(db *sqlx.DB, sites SiteLookup, opts ...Option) *Store {
	s := &Store{
		db:    db,
		sites: sites,
		now:   time.Now,
		inv:   nopInvalidator{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetInvalidator attaches the cache.  Call once during boot, before the
// store serves writes.
func (s *Store) SetInvalidator(inv Invalidator) {
	if inv == nil {
		inv = nopInvalidator{}
	}
	s.inv = inv
}

/*──────────────────────────── reads ───────────────────────────────────────*/

// IsDisabled reports whether siteID has an open record.
func (s *Store) IsDisabled(ctx context.Context, siteID int64) (bool, error) {
	const q = `
        SELECT EXISTS (
            SELECT 1 FROM site_disable
            WHERE  site_id = ? AND deleted_at IS NULL
        )`
	var disabled bool
	if err := s.db.GetContext(ctx, &disabled, s.db.Rebind(q), siteID); err != nil {
		return false, storageErr("is disabled", err)
	}
	return disabled, nil
}

// DisabledSiteIDs returns every site with an open record, ascending.
func (s *Store) DisabledSiteIDs(ctx context.Context) ([]int64, error) {
	const q = `
        SELECT DISTINCT site_id
        FROM   site_disable
        WHERE  deleted_at IS NULL
        ORDER  BY site_id`
	ids := make([]int64, 0, 8)
	if err := s.db.SelectContext(ctx, &ids, q); err != nil {
		return nil, storageErr("list disabled", err)
	}
	return ids, nil
}

// History returns every interval recorded for siteID, oldest first.
func (s *Store) History(ctx context.Context, siteID int64) ([]Record, error) {
	const q = `
        SELECT id, site_id, created_at, deleted_at
        FROM   site_disable
        WHERE  site_id = ?
        ORDER  BY created_at, id`
	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, s.db.Rebind(q), siteID); err != nil {
		return nil, storageErr("history", err)
	}
	return recs, nil
}

// ListSitesWithState joins the registry (ordered by label) with the
// current disabled set.  Display only; not on the tracking path.
func (s *Store) ListSitesWithState(ctx context.Context) ([]SiteState, error) {
	sites, err := s.sites.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list sites", err)
	}
	disabled, err := s.DisabledSiteIDs(ctx)
	if err != nil {
		return nil, err
	}
	set := toSet(disabled)

	out := make([]SiteState, 0, len(sites))
	for _, rec := range sites {
		_, off := set[rec.ID]
		out = append(out, SiteState{
			SiteID:   rec.ID,
			Label:    rec.Name,
			URL:      rec.MainURL,
			Disabled: off,
		})
	}
	return out, nil
}

/*──────────────────────────── writes ──────────────────────────────────────*/

// Disable switches tracking off for siteID.  No-op when already off.
func (s *Store) Disable(ctx context.Context, siteID int64) error {
	if err := s.validate(ctx, siteID); err != nil {
		return err
	}
	return s.disable(ctx, siteID)
}

// Enable switches tracking back on for siteID.  No-op when already on.
func (s *Store) Enable(ctx context.Context, siteID int64) error {
	if err := s.validate(ctx, siteID); err != nil {
		return err
	}
	return s.enable(ctx, siteID)
}

// SetDisabledSet makes the disabled set exactly target.
func (s *Store) SetDisabledSet(ctx context.Context, target []int64) error {
	return s.Reconcile(ctx, target, nil)
}

// Reconcile makes the disabled set, restricted to scope, exactly target.
// A nil scope means every site.  Sites outside scope, and sites whose state
// already matches, are not touched.
//
// Every id in target, and every scope id with no open record, is validated
// before the first write; a single unknown site aborts the whole call.
// Sites leaving the disabled set are taken from the store itself and were
// validated when they were disabled, so they are re-enabled even if the
// registry has since dropped them.
func (s *Store) Reconcile(ctx context.Context, target, scope []int64) error {
	want := toSet(target)
	var within map[int64]struct{}
	if scope != nil {
		within = toSet(scope)
		for id := range want {
			if _, ok := within[id]; !ok {
				return fmt.Errorf("%w: site %d outside reconcile scope", ErrInvalidSite, id)
			}
		}
	}
	for _, id := range sortedKeys(want) {
		if err := s.validate(ctx, id); err != nil {
			return err
		}
	}

	current, err := s.DisabledSiteIDs(ctx)
	if err != nil {
		return err
	}
	have := toSet(current)
	for _, id := range sortedKeys(within) {
		_, wanted := want[id]
		_, open := have[id]
		if wanted || open {
			continue
		}
		if err := s.validate(ctx, id); err != nil {
			return err
		}
	}

	var toEnable, toDisable []int64
	for _, id := range current {
		if within != nil {
			if _, ok := within[id]; !ok {
				continue
			}
		}
		if _, keep := want[id]; !keep {
			toEnable = append(toEnable, id)
		}
	}
	for _, id := range sortedKeys(want) {
		if _, already := have[id]; !already {
			toDisable = append(toDisable, id)
		}
	}

	for _, id := range toEnable {
		if err := s.enable(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range toDisable {
		if err := s.disable(ctx, id); err != nil {
			return err
		}
	}

	zap.L().Info("disabled set reconciled",
		zap.Int64s("enabled", toEnable),
		zap.Int64s("disabled", toDisable),
		zap.Bool("scoped", scope != nil))
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

var insertOpen = map[string]string{
	database.DriverMySQL: `
        INSERT INTO site_disable (site_id, created_at)
        VALUES (?, ?)
        ON DUPLICATE KEY UPDATE site_id = site_id`,
	database.DriverPostgres: `
        INSERT INTO site_disable (site_id, created_at)
        VALUES ($1, $2)
        ON CONFLICT (site_id) WHERE deleted_at IS NULL DO NOTHING`,
}

func (s *Store) disable(ctx context.Context, siteID int64) error {
	q, ok := insertOpen[s.db.DriverName()]
	if !ok {
		q = insertOpen[database.DriverMySQL]
	}

	res, err := s.db.ExecContext(ctx, q, siteID, s.now().UTC())
	// Invalidate even on error: the statement may have committed before
	// the failure was reported.
	s.inv.Invalidate(siteID)
	if err != nil {
		return storageErr("disable", err)
	}
	s.recordMutation(res, "disable", siteID)
	return nil
}

func (s *Store) enable(ctx context.Context, siteID int64) error {
	var (
		q    string
		args []any
		kind = "enable"
	)
	if s.hardDelete {
		q = `DELETE FROM site_disable WHERE site_id = ? AND deleted_at IS NULL`
		args = []any{siteID}
		kind = "enable_hard"
	} else {
		q = `UPDATE site_disable SET deleted_at = ? WHERE site_id = ? AND deleted_at IS NULL`
		args = []any{s.now().UTC(), siteID}
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	s.inv.Invalidate(siteID)
	if err != nil {
		return storageErr("enable", err)
	}
	s.recordMutation(res, kind, siteID)
	return nil
}

func (s *Store) recordMutation(res sql.Result, kind string, siteID int64) {
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		zap.L().Debug("site disable no-op", zap.String("op", kind), zap.Int64("site_id", siteID))
		return
	}
	metrics.StoreMutationsTotal.WithLabelValues(kind).Inc()
	zap.L().Info("site tracking state changed", zap.String("op", kind), zap.Int64("site_id", siteID))
}

func (s *Store) validate(ctx context.Context, siteID int64) error {
	ok, err := s.sites.Exists(ctx, siteID)
	if err != nil {
		return storageErr("site lookup", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSite, siteID)
	}
	return nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
