package inspect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/database/mssql"
	"github.com/koustreak/dbinspect/internal/database/mysql"
	"github.com/koustreak/dbinspect/internal/database/postgres"
	"github.com/koustreak/dbinspect/internal/database/sqlite"
	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
	"github.com/xo/dburl"
)

// Option configures InspectSchema.
type Option func(*options)

type options struct {
	concurrency     int
	excludePrefixes []string
	timeout         time.Duration
	connectTimeout  time.Duration
	maxConns        int32
	log             *logger.Logger

	open openFunc
}

// openFunc connects to the backend of kind and binds an Inspector to it.
type openFunc func(ctx context.Context, kind Kind, uri, schemaName string, o *options) (database.DB, Inspector, error)

func defaultOptions() *options {
	return &options{concurrency: 1, open: openBackend}
}

// WithConcurrency loads up to n tables' columns at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithExcludePrefixes skips tables starting with any of prefixes, in
// addition to InternalPrefix.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(o *options) { o.excludePrefixes = append(o.excludePrefixes, prefixes...) }
}

// WithTimeout bounds the whole inspection, connection included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConnectTimeout bounds establishing the connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithMaxConns caps the connection pool.
func WithMaxConns(n int32) Option {
	return func(o *options) { o.maxConns = n }
}

// WithLogger sets the logger used during the inspection.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// InspectSchema connects to the database named by uri, reads schemaName and
// disconnects. The backend is chosen from the URI scheme; an unknown scheme
// fails before any connection is attempted. The connection is closed on
// every path.
func InspectSchema(ctx context.Context, uri, schemaName string, opts ...Option) (*schema.Snapshot, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	kind, err := ParseKind(uri)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(schemaName) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema name is required")
	}

	if o.log != nil {
		ctx = o.log.WithContext(ctx)
	}
	log := logger.FromContext(ctx).With().
		Str("backend", kind.String()).
		Str("schema", schemaName).
		Logger()
	ctx = log.WithContext(ctx)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log.Info("inspecting schema")
	db, insp, err := o.open(ctx, kind, uri, schemaName, o)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return ReadSchema(ctx, insp, ReadOptions{Concurrency: o.concurrency})
}

func openBackend(ctx context.Context, kind Kind, uri, schemaName string, o *options) (database.DB, Inspector, error) {
	switch kind {
	case KindPostgres:
		db, err := postgres.New(ctx, o.dbConfig(database.DriverPostgres, postgresDSN(uri)))
		if err != nil {
			return nil, nil, err
		}
		return db, NewPostgres(db, schemaName, o.excludePrefixes...), nil

	case KindMySQL:
		dsn, err := dburlDSN(uri)
		if err != nil {
			return nil, nil, err
		}
		db, err := mysql.New(ctx, o.dbConfig(database.DriverMySQL, dsn))
		if err != nil {
			return nil, nil, err
		}
		return db, NewMySQL(db, schemaName, o.excludePrefixes...), nil

	case KindMSSQL:
		dsn, err := dburlDSN(uri)
		if err != nil {
			return nil, nil, err
		}
		db, err := mssql.New(ctx, o.dbConfig(database.DriverSQLServer, dsn))
		if err != nil {
			return nil, nil, err
		}
		return db, NewMSSQL(db, schemaName, o.excludePrefixes...), nil

	case KindSQLite:
		dsn, err := sqliteDSN(uri)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqlite.New(ctx, o.dbConfig(database.DriverSQLite, dsn))
		if err != nil {
			return nil, nil, err
		}
		return db, NewSQLite(db, schemaName, o.excludePrefixes...), nil

	case KindCockroach:
		return nil, nil, errs.Newf(errs.ErrKindNotImplemented, "schema inspection is not implemented for %s", kind)

	default:
		return nil, nil, errs.Newf(errs.ErrKindUnsupportedScheme, "unsupported backend %s", kind)
	}
}

func (o *options) dbConfig(driver database.Driver, dsn string) *database.Config {
	cfg := database.DefaultConfig(driver, dsn)
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}
	if n := int32(o.concurrency); n > cfg.MaxConns {
		cfg.MaxConns = n
	}
	if o.connectTimeout > 0 {
		cfg.ConnectTimeout = o.connectTimeout
	}
	return cfg
}

// postgresDSN rewrites the scheme to one pgx understands. pgx parses the
// URL itself, so nothing else changes.
func postgresDSN(uri string) string {
	scheme, rest, _ := strings.Cut(uri, ":")
	if strings.EqualFold(scheme, "postgresql") {
		return "postgresql:" + rest
	}
	return "postgres:" + rest
}

// dburlDSN converts a URL into the DSN format of its Go driver.
func dburlDSN(uri string) (string, error) {
	u, err := dburl.Parse(uri)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid connection URI", err)
	}
	return u.DSN, nil
}

// sqliteDSN turns sqlite:, sqlite3: and file: URIs into a read-only
// modernc DSN. Both sqlite:/abs/path.db and sqlite:///abs/path.db are
// accepted.
func sqliteDSN(uri string) (string, error) {
	_, rest, _ := strings.Cut(uri, ":")
	rest = strings.TrimPrefix(rest, "//")

	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "sqlite URI has no file path")
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid sqlite URI query", err)
	}
	q.Set("mode", "ro")
	return "file:" + path + "?" + q.Encode(), nil
}
