// internal/disable/schema.go
//
// Idempotent table install.
//
// Context
// -------
// Several instances may run `trackgate install` (or boot with install
// enabled) at the same time.  CREATE TABLE IF NOT EXISTS alone is not
// enough for the index statement on every engine, so the install step
// issues plain CREATE statements and treats "table already exists" as
// success.  Any other error is returned.
//
// The unique key over open rows is what keeps "at most one open interval
// per site" true under concurrent writers.  MySQL has no partial index, so
// a stored generated column holds site_id for open rows and NULL otherwise;
// NULLs never collide.
package disable

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/database"
)

var ddl = map[string][]string{
	database.DriverMySQL: {
		`CREATE TABLE site_disable (
            id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
            site_id     BIGINT          NOT NULL,
            created_at  TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
            deleted_at  TIMESTAMP       NULL     DEFAULT NULL,
            open_site_id BIGINT AS (IF(deleted_at IS NULL, site_id, NULL)) STORED,
            PRIMARY KEY (id),
            UNIQUE KEY uq_site_disable_open (open_site_id),
            KEY idx_site_disable_site (site_id, deleted_at)
        )`,
	},
	database.DriverPostgres: {
		`CREATE TABLE site_disable (
            id          BIGSERIAL   PRIMARY KEY,
            site_id     BIGINT      NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
            deleted_at  TIMESTAMPTZ NULL
        )`,
		`CREATE UNIQUE INDEX uq_site_disable_open ON site_disable (site_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX idx_site_disable_site ON site_disable (site_id, deleted_at)`,
	},
}

// Install creates the site_disable table.  A concurrent or repeated
// install that finds the table present is not an error.
func (s *Store) Install(ctx context.Context) error {
	stmts := ddl[s.db.DriverName()]
	if stmts == nil {
		stmts = ddl[database.DriverMySQL]
	}
	created := false
	for _, q := range stmts {
		_, err := s.db.ExecContext(ctx, q)
		switch {
		case err == nil:
			created = true
		case database.IsTableExists(err):
			// Postgres reports an existing index with the same code.
		default:
			return storageErr("install", err)
		}
	}
	if created {
		zap.L().Info("site_disable installed", zap.String("driver", s.db.DriverName()))
	} else {
		zap.L().Info("site_disable already installed")
	}
	return nil
}
