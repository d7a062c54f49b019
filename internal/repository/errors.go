// Package repository defines the storage contract of the engine and its
// MySQL implementation.  Lookups of missing rows return model.ErrNotFound;
// the sentinels below cover the storage-specific failures that callers
// must tell apart.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert violates a unique key, such as
// a second account with the same email or a colliding order number.
var ErrDuplicate = errors.New("duplicate key")

// ErrTxConflict is returned when the database aborted a transaction
// because of a deadlock or a lock wait timeout.  The whole transaction may
// be retried.
var ErrTxConflict = errors.New("transaction conflict")

// ErrRowGuard is returned when a guarded UPDATE matched no row, meaning the
// row changed under the caller.  It signals a bug or an out-of-band write.
var ErrRowGuard = errors.New("row guard failed")

// MySQL server error numbers the store reacts to.
const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

// classify maps driver errors onto the sentinels above and leaves
// everything else untouched.
func classify(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case erDupEntry:
		return errors.Join(ErrDuplicate, err)
	case erLockDeadlock, erLockWaitTimeout:
		return errors.Join(ErrTxConflict, err)
	}
	return err
}
