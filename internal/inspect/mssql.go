package inspect

import (
	"context"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/schema"
)

// MSSQLInspector implements Inspector for Microsoft SQL Server.
//
// SQL Server's KEY_COLUMN_USAGE has no POSITION_IN_UNIQUE_CONSTRAINT, so
// the child side of a foreign key is read from sys.foreign_key_columns,
// which reports each column's position in the referenced key.
type MSSQLInspector struct {
	db       database.DB
	schema   string
	prefixes []string
}

// NewMSSQL binds a SQL Server inspector to db and schemaName (e.g. "dbo").
func NewMSSQL(db database.DB, schemaName string, extraPrefixes ...string) *MSSQLInspector {
	return &MSSQLInspector{db: db, schema: schemaName, prefixes: excludePrefixes(extraPrefixes)}
}

func (m *MSSQLInspector) ListTableNames(ctx context.Context) ([]string, error) {
	filter, filterArgs := notLikeClauses("TABLE_NAME", m.prefixes, 2, atPPlaceholder)
	q := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1
		  AND TABLE_TYPE = 'BASE TABLE'` + filter + `
		ORDER BY TABLE_NAME`

	names, err := queryNames(ctx, m.db, q, append([]any{m.schema}, filterArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", m.schema, err)
	}
	return names, nil
}

const mssqlColumnsQuery = `
		SELECT COLUMN_NAME, DATA_TYPE,
			CAST(CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END AS bit)
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION`

const mssqlTableExistsQuery = `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`

func (m *MSSQLInspector) LoadTableColumns(ctx context.Context, table string) (schema.Table, error) {
	t, err := queryColumns(ctx, m.db, table, mssqlColumnsQuery, m.schema, table)
	if err != nil {
		return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", m.schema, table, err)
	}
	if len(t.Columns) == 0 {
		if err := checkEmptyTable(ctx, m.db, m.schema, table, mssqlTableExistsQuery, m.schema, table); err != nil {
			return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", m.schema, table, err)
		}
	}
	return t, nil
}

const (
	mssqlConstraintsQuery = `
		SELECT DISTINCT
			rc.CONSTRAINT_SCHEMA,
			rc.CONSTRAINT_NAME,
			COALESCE(rc.UNIQUE_CONSTRAINT_SCHEMA, ''),
			COALESCE(rc.UNIQUE_CONSTRAINT_NAME, ''),
			tc.TABLE_NAME,
			''
		FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			ON tc.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
			AND tc.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		WHERE tc.CONSTRAINT_TYPE = 'FOREIGN KEY'
		  AND tc.TABLE_SCHEMA = @p1
		ORDER BY tc.TABLE_NAME, rc.CONSTRAINT_NAME`

	mssqlChildKeysQuery = `
		SELECT OBJECT_NAME(fkc.parent_object_id), pc.name, CAST(ic.key_ordinal AS int)
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc
			ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc
			ON pc.object_id = fkc.parent_object_id
			AND pc.column_id = fkc.parent_column_id
		JOIN sys.index_columns ic
			ON ic.object_id = fk.referenced_object_id
			AND ic.index_id = fk.key_index_id
			AND ic.column_id = fkc.referenced_column_id
		WHERE SCHEMA_NAME(fk.schema_id) = @p1 AND fk.name = @p2
		ORDER BY fkc.constraint_column_id`

	mssqlParentKeysQuery = `
		SELECT TABLE_NAME, COLUMN_NAME, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE CONSTRAINT_SCHEMA = @p1 AND CONSTRAINT_NAME = @p2
		ORDER BY ORDINAL_POSITION`
)

func (m *MSSQLInspector) LoadForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	h := &twoHop{
		db:          m.db,
		schema:      m.schema,
		prefixes:    m.prefixes,
		constraints: mssqlConstraintsQuery,
		childKeys:   mssqlChildKeysQuery,
		parentKeys:  mssqlParentKeysQuery,
	}
	return h.resolve(ctx)
}
