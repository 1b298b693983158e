// Package repository holds the SQL-backed entry and signup stores. The
// sentinel values below let the service layer tell failures apart without
// looking at driver errors: ErrConflict for unique index violations,
// ErrNotFound for missing rows, ErrUnavailable for transient failures worth
// retrying.
//
// The stores perform no authorization. Callers must have checked the
// principal before every call.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrConflict is returned when a write would violate a unique index.
	// Handlers translate this into an HTTP 409 response.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a transient storage failure (timeout, dropped
	// connection, busy database). The operation may be retried.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrCiphertextRequired is returned when format enforcement is on and a
	// sensitive column value does not look like ciphertext.
	ErrCiphertextRequired = errors.New("sensitive column requires ciphertext")
)

const mysqlDuplicateEntry = 1062

// classify maps driver errors onto the package sentinels. Unrecognised
// errors are returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return errors.Join(ErrConflict, err)
	case isTransient(err):
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
