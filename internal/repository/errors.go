package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound means the row does not exist (distinct from a stale version).
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means a concurrent writer won the race: either the
	// version predicate matched no row, or the outbox (aggregate_id,
	// version_id) unique key rejected the insert. Callers re-fetch and retry
	// with a fresh version; the system itself never retries.
	ErrVersionConflict = errors.New("version conflict")
)

// isDuplicateKey reports a MySQL unique-constraint violation (error 1062).
// The translation to ErrVersionConflict happens here, at the storage-adapter
// boundary, so core logic never sees driver error types.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
