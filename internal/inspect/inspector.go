// Package inspect reads the structure of a live relational database into a
// schema.Snapshot.
//
// Each supported backend has its own Inspector bound to one connection and
// one target schema. ReadSchema drives any Inspector; InspectSchema picks the
// backend from a connection URI, opens it, reads it and closes it again.
package inspect

import (
	"context"
	"strings"

	"github.com/koustreak/dbinspect/internal/schema"
)

// InternalPrefix marks tables that belong to dbinspect's own bookkeeping.
// They are never reported.
const InternalPrefix = "_dbinspect_"

// Inspector reads catalog metadata from one backend for one schema.
type Inspector interface {
	// ListTableNames returns the base tables of the schema ordered by name,
	// excluding internal tables.
	ListTableNames(ctx context.Context) ([]string, error)

	// LoadTableColumns returns the table with its columns in ordinal order.
	// A table with no columns, or one that does not exist, comes back with
	// an empty column list.
	LoadTableColumns(ctx context.Context, table string) (schema.Table, error)

	// LoadForeignKeys returns one ForeignKey per referencing column pair.
	LoadForeignKeys(ctx context.Context) ([]schema.ForeignKey, error)
}

// excludePrefixes returns InternalPrefix followed by the non-empty extras.
func excludePrefixes(extra []string) []string {
	out := []string{InternalPrefix}
	for _, p := range extra {
		if p != "" && p != InternalPrefix {
			out = append(out, p)
		}
	}
	return out
}

// excluded reports whether name starts with one of prefixes, ignoring case
// the same way the NOT LIKE filters do.
func excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(name) >= len(p) && strings.EqualFold(name[:len(p)], p) {
			return true
		}
	}
	return false
}

// likeEscape is the escape character used in every NOT LIKE filter. A
// backslash would need different quoting on each backend.
const likeEscape = '!'

// likePrefix turns a literal prefix into a LIKE pattern matching it.
func likePrefix(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		switch r {
		case likeEscape, '%', '_', '[':
			sb.WriteRune(likeEscape)
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('%')
	return sb.String()
}

// notLikeClauses renders one "AND LOWER(column) NOT LIKE <p> ESCAPE '!'"
// per prefix. Both sides are lowered so matching ignores case on every
// backend, whatever its collation. Placeholders are numbered from first and
// produced by ph.
func notLikeClauses(column string, prefixes []string, first int, ph func(int) string) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(prefixes))
	for i, p := range prefixes {
		sb.WriteString("\n\t\t  AND LOWER(")
		sb.WriteString(column)
		sb.WriteString(") NOT LIKE ")
		sb.WriteString(ph(first + i))
		sb.WriteString(" ESCAPE '!'")
		args = append(args, likePrefix(strings.ToLower(p)))
	}
	return sb.String(), args
}
