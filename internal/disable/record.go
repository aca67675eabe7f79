// internal/disable/record.go
//
// `site_disable` row model.
//
// Context
// -------
// Each row is one interval during which tracking was switched off for a
// site.  The table is both the history log and the current-state index:
// a site is disabled right now iff it has a row whose deleted_at is NULL.
//
//	CREATE TABLE site_disable (
//	    id          BIGINT PRIMARY KEY AUTO_INCREMENT,
//	    site_id     BIGINT    NOT NULL,
//	    created_at  TIMESTAMP NOT NULL,
//	    deleted_at  TIMESTAMP NULL
//	);
//
// Notes
// -----
//   - At most one open row per site_id at any time.
//   - Nullable timestamps are `*time.Time`; callers must nil-check before use.
package disable

import "time"

// State tags a Record as the current interval or a closed one.
type State int

const (
	// Open means tracking is still disabled.
	Open State = iota
	// Closed means tracking was re-enabled at DeletedAt.
	Closed
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Record mirrors one row in `site_disable`.
type Record struct {
	ID        int64      `db:"id"         json:"id"`
	SiteID    int64      `db:"site_id"    json:"site_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// State returns Open when DeletedAt is unset.
func (r Record) State() State {
	if r.DeletedAt == nil {
		return Open
	}
	return Closed
}

// SiteState is one line of the admin listing.
type SiteState struct {
	SiteID   int64  `json:"id"`
	Label    string `json:"label"`
	URL      string `json:"url"`
	Disabled bool   `json:"disabled"`
}
