package inspect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
)

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }
func questionPlaceholder(int) string { return "?" }
func atPPlaceholder(n int) string    { return "@p" + strconv.Itoa(n) }

// queryNames runs a single-column string query.
func queryNames(ctx context.Context, db database.DB, q string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// queryColumns runs a (name, type, nullable) query and builds the table.
func queryColumns(ctx context.Context, db database.DB, table, q string, args ...any) (schema.Table, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return schema.Table{}, err
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, sqlType string
			nullable      bool
		)
		if err := rows.Scan(&name, &sqlType, &nullable); err != nil {
			return schema.Table{}, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, schema.NewColumn(name, sqlType, nullable))
	}
	if err := rows.Err(); err != nil {
		return schema.Table{}, err
	}
	return schema.NewTable(table, cols), nil
}

// checkEmptyTable is called when a column query returned nothing. It
// distinguishes a genuinely empty table from a name the catalog does not
// know, and logs the latter.
func checkEmptyTable(ctx context.Context, db database.DB, schemaName, table, q string, args ...any) error {
	row, err := db.QueryRow(ctx, q, args...)
	if err != nil {
		return err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return fmt.Errorf("table exists check: %w", err)
	}
	if n == 0 {
		logger.FromContext(ctx).With().
			Str("schema", schemaName).
			Str("table", table).
			Logger().
			Warn("table not found in catalog, reporting no columns")
	}
	return nil
}

// inconsistent builds the error raised when catalog rows contradict each
// other.
func inconsistent(format string, args ...any) error {
	return errs.Newf(errs.ErrKindInconsistentCatalog, format, args...)
}
