package inspect

import (
	"strings"

	"github.com/koustreak/dbinspect/internal/errs"
)

// Kind identifies a database backend family.
type Kind int

const (
	KindUnknown Kind = iota
	KindPostgres
	KindMySQL
	KindSQLite
	KindMSSQL
	KindCockroach
)

func (k Kind) String() string {
	switch k {
	case KindPostgres:
		return "postgres"
	case KindMySQL:
		return "mysql"
	case KindSQLite:
		return "sqlite"
	case KindMSSQL:
		return "mssql"
	case KindCockroach:
		return "cockroachdb"
	default:
		return "unknown"
	}
}

var schemeKinds = map[string]Kind{
	"postgres":    KindPostgres,
	"postgresql":  KindPostgres,
	"pg":          KindPostgres,
	"mysql":       KindMySQL,
	"mariadb":     KindMySQL,
	"sqlite":      KindSQLite,
	"sqlite3":     KindSQLite,
	"file":        KindSQLite,
	"mssql":       KindMSSQL,
	"sqlserver":   KindMSSQL,
	"cockroachdb": KindCockroach,
	"crdb":        KindCockroach,
}

// ParseKind returns the backend named by the scheme of uri. The scheme is
// matched case-insensitively; an unknown or missing scheme is an
// UnsupportedScheme error.
func ParseKind(uri string) (Kind, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok || scheme == "" {
		return KindUnknown, errs.New(errs.ErrKindUnsupportedScheme, "connection URI has no scheme")
	}
	kind, ok := schemeKinds[strings.ToLower(scheme)]
	if !ok {
		return KindUnknown, errs.Newf(errs.ErrKindUnsupportedScheme, "unsupported scheme %q", scheme)
	}
	return kind, nil
}

