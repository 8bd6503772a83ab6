// Package repository holds the MySQL-backed stores.  Sentinel errors let
// higher layers distinguish failure scenarios without inspecting driver
// errors: ErrNotFound for a lookup miss, ErrEmailExists for a duplicate
// registration and ErrConflict for a conditional update that lost a race
// with another writer.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the lookup.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a conditional update matched no row because
// the record changed state underneath the caller.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// nullIfEmpty maps an absent idempotency key to NULL so the unique index
// only constrains keyed rows.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
