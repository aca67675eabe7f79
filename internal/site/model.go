package site

import "time"

// Record mirrors one row in the `site` table.  The site registry is owned
// by the platform; this service only reads it.
//
//	CREATE TABLE site (
//	    id          BIGINT PRIMARY KEY,
//	    name        VARCHAR(90)  NOT NULL,
//	    main_url    VARCHAR(255) NOT NULL,
//	    created_at  TIMESTAMP    NOT NULL,
//	    deleted_at  TIMESTAMP    NULL
//	);
//
//	CREATE TABLE site_access (
//	    user_id  BIGINT      NOT NULL,
//	    site_id  BIGINT      NOT NULL,
//	    access   VARCHAR(10) NOT NULL   -- 'view', 'write', 'admin'
//	);
//
// A non-NULL DeletedAt means the site no longer exists as far as lookups
// are concerned.
type Record struct {
	ID        int64      `db:"id"        json:"id"`
	Name      string     `db:"name"      json:"label"`
	MainURL   string     `db:"main_url"  json:"url"`
	CreatedAt time.Time  `db:"created_at" json:"-"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// AccessAdmin is the site_access level that allows changing tracking state.
const AccessAdmin = "admin"
