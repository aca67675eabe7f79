package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// PrepareDSN returns dsn ready for Open.  A non-empty password replaces
// whatever the DSN carried.  MySQL DSNs additionally get parseTime=true and
// a UTC location so DATETIME columns scan into time.Time.
func PrepareDSN(driver, dsn, password string) (string, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("database: mysql dsn: %w", err)
		}
		if password != "" {
			cfg.Passwd = password
		}
		cfg.ParseTime = true
		if cfg.Loc == nil {
			cfg.Loc = time.UTC
		}
		return cfg.FormatDSN(), nil

	case DriverPostgres:
		if password == "" {
			return dsn, nil
		}
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			u, err := url.Parse(dsn)
			if err != nil {
				return "", fmt.Errorf("database: postgres dsn: %w", err)
			}
			user := ""
			if u.User != nil {
				user = u.User.Username()
			}
			u.User = url.UserPassword(user, password)
			return u.String(), nil
		}
		// key=value form; later keys win.
		esc := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
		return strings.TrimSpace(dsn) + " password='" + esc + "'", nil
	}
	return "", fmt.Errorf("database: unsupported driver %q", driver)
}
