package database

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/koustreak/dbinspect/internal/errs"
)

// ErrorMapper translates a driver-native error into *errs.Error.
// msg describes the operation that failed.
type ErrorMapper func(err error, msg string) *errs.Error

// SQLDB adapts a database/sql pool to DB. The MySQL, SQL Server and SQLite
// drivers all sit on database/sql and differ only in how they open the pool
// and classify errors.
// It is safe for concurrent use by multiple goroutines.
type SQLDB struct {
	db     *sql.DB
	driver Driver
	mapErr ErrorMapper
}

// NewSQLDB wraps an open *sql.DB. Ownership of db passes to the SQLDB.
func NewSQLDB(db *sql.DB, driver Driver, mapErr ErrorMapper) *SQLDB {
	return &SQLDB{db: db, driver: driver, mapErr: mapErr}
}

// OpenSQL opens a database/sql pool for cfg, applies the pool settings and
// pings it within cfg.ConnectTimeout.
func OpenSQL(ctx context.Context, driverName string, cfg *Config, mapErr ErrorMapper) (*SQLDB, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := NewSQLDB(db, cfg.Driver, mapErr)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *SQLDB) Driver() Driver { return d.driver }

func (d *SQLDB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return PingError(d.mapErr(err, "ping failed"))
	}
	return nil
}

func (d *SQLDB) Close() {
	_ = d.db.Close()
}

func (d *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, d.mapErr(err, "query failed").WithQuery(query)
	}
	return &sqlRows{rows: rows, mapErr: d.mapErr}, nil
}

func (d *SQLDB) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return &sqlRow{row: d.db.QueryRowContext(ctx, query, args...), mapErr: d.mapErr}, nil
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows   *sql.Rows
	mapErr ErrorMapper
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "row iteration failed")
	}
	return nil
}

type sqlRow struct {
	row    *sql.Row
	mapErr ErrorMapper
}

func (r *sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

// MapCommonError classifies the errors every database/sql driver can
// produce: context cancellation, sql.ErrNoRows and broken connections.
// ok is false when err needs driver-specific classification.
func MapCommonError(err error, msg string) (e *errs.Error, ok bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, msg, err), true
	case errors.Is(err, sql.ErrNoRows):
		return errs.Wrap(errs.ErrKindNotFound, msg, err), true
	case errors.Is(err, sqldriver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err), true
	}
	return nil, false
}

// IsNetworkError reports whether err was raised by the transport rather
// than by the database server.
func IsNetworkError(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return true
	}
	return false
}

// PingError reclassifies a failed ping. A ping runs no catalog query, so
// anything a driver would report as a query failure means the session could
// not be established.
func PingError(e *errs.Error) *errs.Error {
	if e.Kind == errs.ErrKindQueryFailed || e.Kind == errs.ErrKindUnknown {
		e.Kind = errs.ErrKindConnectionFailed
	}
	return e
}
