// internal/site/repository.go
//
// Read-only queries against the platform's site registry.
//
// Context
// -------
// Three questions are asked of the registry:
//
//  1. Does site N exist?                         → `Exists()`
//  2. Which sites are there, by label?           → `ListAll()`
//  3. Which sites may user U administer?         → `AdminSiteIDs()`
//
// Each helper executes exactly one parameterised statement.  Queries use
// `?` placeholders and go through Rebind so the same text runs on MySQL and
// Postgres.
//
// Notes
// -----
//   - Soft-deleted sites are invisible to every helper.
//   - Errors are returned verbatim; callers wrap them.
package site

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Repository reads the `site` and `site_access` tables.
type Repository struct {
	db *sqlx.DB
}

// NewRepository binds a Repository to the control-plane pool.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether id names a live site.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `
        SELECT 1
        FROM   site
        WHERE  id = ?
          AND  deleted_at IS NULL
        LIMIT  1`
	var one int
	err := r.db.GetContext(ctx, &one, r.db.Rebind(q), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAll returns every live site ordered by name ascending, ties broken
// by id so the order is stable.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	const q = `
        SELECT id, name, main_url, created_at, deleted_at
        FROM   site
        WHERE  deleted_at IS NULL
        ORDER  BY name ASC, id ASC`
	rows := make([]Record, 0, 16)
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// AdminSiteIDs returns the ids of live sites on which userID holds admin
// access.
func (r *Repository) AdminSiteIDs(ctx context.Context, userID int64) ([]int64, error) {
	const q = `
        SELECT sa.site_id
        FROM   site_access sa
        JOIN   site s ON s.id = sa.site_id
        WHERE  sa.user_id = ?
          AND  sa.access  = ?
          AND  s.deleted_at IS NULL
        ORDER  BY sa.site_id`
	ids := make([]int64, 0, 8)
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(q), userID, AccessAdmin); err != nil {
		return nil, err
	}
	return ids, nil
}
