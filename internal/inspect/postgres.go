package inspect

import (
	"context"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/schema"
)

// PostgresInspector implements Inspector for PostgreSQL using
// information_schema.
type PostgresInspector struct {
	db       database.DB
	schema   string
	prefixes []string
}

// NewPostgres binds a Postgres inspector to db and schemaName. Tables whose
// name starts with InternalPrefix or one of extraPrefixes are skipped.
func NewPostgres(db database.DB, schemaName string, extraPrefixes ...string) *PostgresInspector {
	return &PostgresInspector{db: db, schema: schemaName, prefixes: excludePrefixes(extraPrefixes)}
}

func (p *PostgresInspector) ListTableNames(ctx context.Context) ([]string, error) {
	filter, filterArgs := notLikeClauses("table_name::text", p.prefixes, 2, dollarPlaceholder)
	q := `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'` + filter + `
		ORDER BY table_name`

	names, err := queryNames(ctx, p.db, q, append([]any{p.schema}, filterArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", p.schema, err)
	}
	return names, nil
}

const pgColumnsQuery = `
		SELECT column_name::text, udt_name::text, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

const pgTableExistsQuery = `
		SELECT count(*)::int
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`

func (p *PostgresInspector) LoadTableColumns(ctx context.Context, table string) (schema.Table, error) {
	t, err := queryColumns(ctx, p.db, table, pgColumnsQuery, p.schema, table)
	if err != nil {
		return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", p.schema, table, err)
	}
	if len(t.Columns) == 0 {
		if err := checkEmptyTable(ctx, p.db, p.schema, table, pgTableExistsQuery, p.schema, table); err != nil {
			return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", p.schema, table, err)
		}
	}
	return t, nil
}

// Foreign key names are only unique per table in Postgres, so hop 1 reads
// pg_constraint directly: information_schema.referential_constraints has no
// table column to tell two same-named constraints apart. The privilege
// filter matches the one key_column_usage applies in hop 2.
const (
	pgConstraintsQuery = `
		SELECT
			cn.nspname::text,
			c.conname::text,
			COALESCE(un.nspname, '')::text,
			COALESCE(u.conname, '')::text,
			ct.relname::text,
			pt.relname::text
		FROM pg_catalog.pg_constraint c
		JOIN pg_catalog.pg_namespace cn ON cn.oid = c.connamespace
		JOIN pg_catalog.pg_class ct ON ct.oid = c.conrelid
		JOIN pg_catalog.pg_class pt ON pt.oid = c.confrelid
		LEFT JOIN pg_catalog.pg_constraint u
			ON u.conrelid = c.confrelid
			AND u.conindid = c.conindid
			AND u.contype IN ('p', 'u')
		LEFT JOIN pg_catalog.pg_namespace un ON un.oid = u.connamespace
		WHERE c.contype = 'f'
		  AND cn.nspname = $1
		  AND (pg_has_role(ct.relowner, 'USAGE')
			OR has_table_privilege(ct.oid, 'INSERT, UPDATE, DELETE, TRUNCATE, REFERENCES, TRIGGER')
			OR has_any_column_privilege(ct.oid, 'INSERT, UPDATE, REFERENCES'))
		ORDER BY 5, 2`

	pgChildKeysQuery = `
		SELECT table_name::text, column_name::text,
			COALESCE(position_in_unique_constraint, ordinal_position)::int
		FROM information_schema.key_column_usage
		WHERE constraint_schema = $1 AND constraint_name = $2 AND table_name = $3
		ORDER BY ordinal_position`

	pgParentKeysQuery = `
		SELECT table_name::text, column_name::text, ordinal_position::int
		FROM information_schema.key_column_usage
		WHERE constraint_schema = $1 AND constraint_name = $2
		ORDER BY ordinal_position`
)

func (p *PostgresInspector) LoadForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	h := &twoHop{
		db:           p.db,
		schema:       p.schema,
		prefixes:     p.prefixes,
		constraints:  pgConstraintsQuery,
		childKeys:    pgChildKeysQuery,
		parentKeys:   pgParentKeysQuery,
		childByTable: true,
	}
	return h.resolve(ctx)
}
