// Package sqlite opens SQLite database files as database.DB using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/errs"
	"modernc.org/sqlite"
)

// Primary result codes, see https://www.sqlite.org/rescode.html
const (
	codePerm      = 3
	codeBusy      = 5
	codeInterrupt = 9
	codeCantOpen  = 14
	codeAuth      = 23
	codeNotADB    = 26
)

// New opens the SQLite database named by cfg.DSN. Inspection never writes,
// so callers should pass a read-only DSN (file:path?mode=ro) to avoid
// creating a missing file.
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	return database.OpenSQL(ctx, "sqlite", cfg, mapError)
}

// FromDB wraps an already open modernc *sql.DB.
func FromDB(db *sql.DB) *database.SQLDB {
	return database.NewSQLDB(db, database.DriverSQLite, mapError)
}

// mapError translates modernc sqlite errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if e, ok := database.MapCommonError(err, msg); ok {
		return e
	}

	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		return errs.Wrap(classifyCode(sqlErr.Code()), fmt.Sprintf("%s: %s", msg, sqlErr.Error()), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyCode maps a (possibly extended) result code to ErrKind.
func classifyCode(code int) errs.ErrKind {
	switch code & 0xff {
	case codePerm, codeAuth:
		return errs.ErrKindPermissionDenied
	case codeCantOpen, codeNotADB:
		return errs.ErrKindConnectionFailed
	case codeBusy, codeInterrupt:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
