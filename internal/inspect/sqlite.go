package inspect

import (
	"context"
	"fmt"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/schema"
)

// SQLiteInspector implements Inspector for SQLite. The schema is the name
// of an attached database, "main" for the file that was opened.
//
// SQLite has no information_schema. Foreign keys are read from
// PRAGMA foreign_key_list; when a constraint omits the referenced columns
// they are taken from the parent's primary key in PRAGMA table_info.
type SQLiteInspector struct {
	db       database.DB
	schema   string
	prefixes []string
}

// NewSQLite binds a SQLite inspector to db and schemaName.
func NewSQLite(db database.DB, schemaName string, extraPrefixes ...string) *SQLiteInspector {
	return &SQLiteInspector{db: db, schema: schemaName, prefixes: excludePrefixes(extraPrefixes)}
}

func (s *SQLiteInspector) ListTableNames(ctx context.Context) ([]string, error) {
	// sqlite_ is reserved for the engine's own tables.
	prefixes := append([]string{"sqlite_"}, s.prefixes...)
	filter, filterArgs := notLikeClauses("name", prefixes, 2, questionPlaceholder)
	q := `
		SELECT name
		FROM pragma_table_list
		WHERE schema = ?
		  AND type = 'table'` + filter + `
		ORDER BY name`

	names, err := queryNames(ctx, s.db, q, append([]any{s.schema}, filterArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", s.schema, err)
	}
	return names, nil
}

const (
	sqliteColumnsQuery = `
		SELECT name, type, "notnull" = 0
		FROM pragma_table_info(?, ?)
		ORDER BY cid`

	sqliteTableExistsQuery = `
		SELECT COUNT(*)
		FROM pragma_table_list
		WHERE name = ? AND schema = ?`

	sqliteForeignKeysQuery = `
		SELECT id, seq, "table", "from", COALESCE("to", '')
		FROM pragma_foreign_key_list(?, ?)
		ORDER BY id, seq`

	sqlitePrimaryKeyQuery = `
		SELECT name, pk
		FROM pragma_table_info(?, ?)
		WHERE pk > 0
		ORDER BY pk`
)

func (s *SQLiteInspector) LoadTableColumns(ctx context.Context, table string) (schema.Table, error) {
	t, err := queryColumns(ctx, s.db, table, sqliteColumnsQuery, table, s.schema)
	if err != nil {
		return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", s.schema, table, err)
	}
	if len(t.Columns) == 0 {
		if err := checkEmptyTable(ctx, s.db, s.schema, table, sqliteTableExistsQuery, table, s.schema); err != nil {
			return schema.Table{}, fmt.Errorf("load columns of %s.%s: %w", s.schema, table, err)
		}
	}
	return t, nil
}

// fkRow is one row of PRAGMA foreign_key_list.
type fkRow struct {
	ID     int
	Seq    int
	Parent string
	From   string
	To     string
}

func (s *SQLiteInspector) LoadForeignKeys(ctx context.Context) ([]schema.ForeignKey, error) {
	tables, err := s.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}

	fks := []schema.ForeignKey{}
	for _, table := range tables {
		groups, err := s.foreignKeyList(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("load foreign keys of %s.%s: %w", s.schema, table, err)
		}
		for _, g := range groups {
			if excluded(g[0].Parent, s.prefixes) {
				continue
			}
			pairs, err := s.resolveGroup(ctx, table, g)
			if err != nil {
				return nil, err
			}
			fks = append(fks, pairs...)
		}
	}
	return fks, nil
}

// foreignKeyList returns the table's constraints, each as its rows in seq
// order.
func (s *SQLiteInspector) foreignKeyList(ctx context.Context, table string) ([][]fkRow, error) {
	rows, err := s.db.Query(ctx, sqliteForeignKeysQuery, table, s.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups [][]fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.ID, &r.Seq, &r.Parent, &r.From, &r.To); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		if n := len(groups); n > 0 && groups[n-1][0].ID == r.ID {
			groups[n-1] = append(groups[n-1], r)
		} else {
			groups = append(groups, []fkRow{r})
		}
	}
	return groups, rows.Err()
}

func (s *SQLiteInspector) resolveGroup(ctx context.Context, table string, g []fkRow) ([]schema.ForeignKey, error) {
	constraint := fmt.Sprintf("%s.fk%d", table, g[0].ID)

	child := make([]keyColumn, len(g))
	parent := make([]keyColumn, 0, len(g))
	implicit := false
	for i, r := range g {
		if r.Parent != g[0].Parent {
			return nil, inconsistent("constraint %s spans tables %s and %s", constraint, g[0].Parent, r.Parent)
		}
		child[i] = keyColumn{Table: table, Column: r.From, Position: r.Seq + 1}
		if r.To == "" {
			implicit = true
		}
		parent = append(parent, keyColumn{Table: r.Parent, Column: r.To, Position: r.Seq + 1})
	}

	if implicit {
		pk, err := s.primaryKey(ctx, g[0].Parent)
		if err != nil {
			return nil, fmt.Errorf("load primary key of %s.%s: %w", s.schema, g[0].Parent, err)
		}
		parent = pk
	}
	return pairKeyColumns(constraint, g[0].Parent+".pk", child, parent)
}

func (s *SQLiteInspector) primaryKey(ctx context.Context, table string) ([]keyColumn, error) {
	rows, err := s.db.Query(ctx, sqlitePrimaryKeyQuery, table, s.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []keyColumn
	for rows.Next() {
		k := keyColumn{Table: table}
		if err := rows.Scan(&k.Column, &k.Position); err != nil {
			return nil, fmt.Errorf("scan primary key column: %w", err)
		}
		cols = append(cols, k)
	}
	return cols, rows.Err()
}
