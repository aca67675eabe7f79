// internal/database/errors.go
//
// Driver-aware error classification.
//
// Context
// -------
// Install needs to tell "this table already exists" apart from real
// failures, and the disable store turns "this table is missing" into a
// hint to run install.  Both drivers are linked in, so their typed errors
// are matched instead of error strings:
//
//	condition        MySQL   Postgres
//	unknown table    1146    42P01
//	table exists     1050    42P07
//
// Notes
// -----
//   - Wrapped errors are unwrapped with errors.As.
package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	mysqlTableExists  = 1050
	mysqlUnknownTable = 1146

	pqTableExists  = pq.ErrorCode("42P07")
	pqUnknownTable = pq.ErrorCode("42P01")
)

// IsTableExists reports whether err is a "table already exists" error.
func IsTableExists(err error) bool {
	return matches(err, mysqlTableExists, pqTableExists)
}

// IsUnknownTable reports whether err is a "table does not exist" error.
func IsUnknownTable(err error) bool {
	return matches(err, mysqlUnknownTable, pqUnknownTable)
}

func matches(err error, myNum uint16, pgCode pq.ErrorCode) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == myNum
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCode
	}
	return false
}
