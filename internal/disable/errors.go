package disable

import (
	"errors"
	"fmt"

	"github.com/yanizio/trackgate/internal/database"
	"github.com/yanizio/trackgate/internal/metrics"
)

// ErrInvalidSite is returned when an operation names a site the registry
// does not know.  Nothing has been written when it is returned.
var ErrInvalidSite = errors.New("invalid site")

// ErrNotInstalled is wrapped into a StorageError when the site_disable
// table does not exist.
var ErrNotInstalled = errors.New("site_disable table missing; run `trackgate install`")

// StorageError wraps any failure of the underlying table.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("disable store: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	if database.IsUnknownTable(err) {
		err = fmt.Errorf("%w: %w", ErrNotInstalled, err)
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err came from the store's table.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
