package inspect

import (
	"context"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/schema"
)

// MySQLInspector implements Inspector for MySQL and MariaDB. The schema is
// the database name.
type MySQLInspector struct {
	db       database.DB
	schema   string
	prefixes []string
}

// NewMySQL binds a MySQL inspector to db and schemaName.
func NewMySQL(db database.DB, schemaName string, extraPrefixes ...string) *MySQLInspector {
	return &MySQLInspector{db: db, schema: schemaName, prefixes: excludePrefixes(extraPrefixes)}
}

func (m *MySQLInspector) ListTableNames(ctx context.Context) ([]string, error) {
	filter, filterArgs := notLikeClauses("TABLE_NAME", m.prefixes, 2, questionPlaceholder)
	q := `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_TYPE = 'BASE TABLE'` + filter + `
		ORDER BY TABLE_NAME`

	names, err := queryNames(ctx, m.db, q, append([]any{m.schema}, filterArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", m.schema, err)
	}
	return names, nil
}

const mysqlColumnsQuery = `
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE = 'YES'
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

const mysqlTableExistsQuery = `
		SELECT COUNT(*)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`

func (m *MySQLInspector) LoadTableColumns(ctx context.Context, table string) (schema.Table, error) {
	t, err := queryColumns(ctx, m.db, table, mysqlColumnsQuery, m.schema, table)
	if err != nil {
		return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", m.schema, table, err)
	}
	if len(t.Columns) == 0 {
		if err := checkEmptyTable(ctx, m.db, m.schema, table, mysqlTableExistsQuery, m.schema, table); err != nil {
			return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", m.schema, table, err)
		}
	}
	return t, nil
}

const (
	mysqlConstraintsQuery = `
		SELECT
			rc.CONSTRAINT_SCHEMA,
			rc.CONSTRAINT_NAME,
			COALESCE(rc.UNIQUE_CONSTRAINT_SCHEMA, ''),
			COALESCE(rc.UNIQUE_CONSTRAINT_NAME, ''),
			rc.TABLE_NAME,
			rc.REFERENCED_TABLE_NAME
		FROM information_schema.REFERENTIAL_CONSTRAINTS rc
		JOIN information_schema.TABLE_CONSTRAINTS tc
			ON tc.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
			AND tc.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
			AND tc.TABLE_NAME = rc.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'FOREIGN KEY'
		  AND tc.TABLE_SCHEMA = ?
		ORDER BY rc.TABLE_NAME, rc.CONSTRAINT_NAME`

	mysqlChildKeysQuery = `
		SELECT TABLE_NAME, COLUMN_NAME,
			COALESCE(POSITION_IN_UNIQUE_CONSTRAINT, ORDINAL_POSITION)
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE CONSTRAINT_SCHEMA = ? AND CONSTRAINT_NAME = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	mysqlParentKeysQuery = `
		SELECT TABLE_NAME, COLUMN_NAME, ORDINAL_POSITION
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE CONSTRAINT_SCHEMA = ? AND CONSTRAINT_NAME = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`
)

func (m *MySQLInspector) LoadForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	h := &twoHop{
		db:            m.db,
		schema:        m.schema,
		prefixes:      m.prefixes,
		constraints:   mysqlConstraintsQuery,
		childKeys:     mysqlChildKeysQuery,
		parentKeys:    mysqlParentKeysQuery,
		childByTable:  true,
		parentByTable: true,
	}
	return h.resolve(ctx)
}
