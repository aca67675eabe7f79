package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestIsTableExists(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"mysql 1050", &mysql.MySQLError{Number: 1050, Message: "Table 'site_disable' already exists"}, true},
		{"mysql 1050 wrapped", fmt.Errorf("install: %w", &mysql.MySQLError{Number: 1050}), true},
		{"mysql other", &mysql.MySQLError{Number: 1045}, false},
		{"postgres 42P07", &pq.Error{Code: "42P07"}, true},
		{"postgres other", &pq.Error{Code: "42601"}, false},
		{"plain", errors.New("table already exists"), false},
	}
	for _, tc := range cases {
		if got := IsTableExists(tc.err); got != tc.want {
			t.Errorf("%s: IsTableExists = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsUnknownTable(t *testing.T) {
	if !IsUnknownTable(&mysql.MySQLError{Number: 1146}) {
		t.Error("mysql 1146 not recognised")
	}
	if !IsUnknownTable(&pq.Error{Code: "42P01"}) {
		t.Error("postgres 42P01 not recognised")
	}
	if IsUnknownTable(&mysql.MySQLError{Number: 1050}) {
		t.Error("1050 misread as unknown table")
	}
}

func TestOpenWithOptions_UnsupportedDriver(t *testing.T) {
	if _, err := Open("sqlite3", "file::memory:"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
