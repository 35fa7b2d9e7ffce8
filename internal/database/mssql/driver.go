// Package mssql opens Microsoft SQL Server connections as database.DB.
package mssql

import (
	"context"
	"errors"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/errs"
	mssqldb "github.com/microsoft/go-mssqldb"
)

// New opens a SQL Server connection pool using the provided Config.
// cfg.DSN is a sqlserver:// URL or an ADO-style connection string.
func New(ctx context.Context, cfg *database.Config) (*database.SQLDB, error) {
	return database.OpenSQL(ctx, "sqlserver", cfg, mapError)
}

// mapError translates go-mssqldb errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if e, ok := database.MapCommonError(err, msg); ok {
		return e
	}

	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(
			classifyNumber(msErr.Number),
			fmt.Sprintf("%s: %s", msg, msErr.Message),
			err,
		)
	}

	if database.IsNetworkError(err) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyNumber maps SQL Server error numbers to ErrKind.
func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case 229, 230, 262, 297, 300:
		return errs.ErrKindPermissionDenied
	case 4060, 18456, 18452:
		return errs.ErrKindConnectionFailed
	case 1222:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
