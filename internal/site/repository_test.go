// internal/site/repository_test.go
//
// Unit-tests for the site registry helpers using sqlmock.
//
// Run: go test ./internal/site -v

package site

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T, driver string) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, driver)), mock
}

func TestExists(t *testing.T) {
	repo, mock := newMock(t, "mysql")

	mock.ExpectQuery(`SELECT 1\s+FROM\s+site\s+WHERE\s+id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1\s+FROM\s+site`).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("Exists(7) = %v, %v; want true, nil", ok, err)
	}
	ok, err = repo.Exists(context.Background(), 8)
	if err != nil || ok {
		t.Fatalf("Exists(8) = %v, %v; want false, nil", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestExists_StorageError(t *testing.T) {
	repo, mock := newMock(t, "mysql")
	boom := errors.New("connection refused")
	mock.ExpectQuery(`SELECT 1`).WillReturnError(boom)

	if _, err := repo.Exists(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestExists_PostgresPlaceholders(t *testing.T) {
	repo, mock := newMock(t, "postgres")

	mock.ExpectQuery(`WHERE\s+id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	if ok, err := repo.Exists(context.Background(), 3); err != nil || !ok {
		t.Fatalf("Exists(3) = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestListAll(t *testing.T) {
	repo, mock := newMock(t, "mysql")
	now := time.Now()

	mock.ExpectQuery(`ORDER\s+BY name ASC, id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "main_url", "created_at", "deleted_at"}).
			AddRow(2, "Alpha", "https://alpha.example", now, nil).
			AddRow(1, "Beta", "https://beta.example", now, nil))

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Alpha" || got[1].ID != 1 {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAdminSiteIDs(t *testing.T) {
	repo, mock := newMock(t, "mysql")

	mock.ExpectQuery(`FROM\s+site_access sa`).
		WithArgs(int64(42), AccessAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"site_id"}).AddRow(1).AddRow(3))

	got, err := repo.AdminSiteIDs(context.Background(), 42)
	if err != nil {
		t.Fatalf("AdminSiteIDs error: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected result: %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
