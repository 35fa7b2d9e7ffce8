package inspect

import (
	"context"
	"fmt"
	"sort"

	"github.com/koustreak/dbinspect/internal/database"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/koustreak/dbinspect/internal/schema"
)

// constraintRef is one row of hop 1: a foreign key constraint and the
// unique constraint it references.
type constraintRef struct {
	Schema       string
	Name         string
	UniqueSchema string
	UniqueName   string
	Table        string // child table
	UniqueTable  string // parent table, empty where hop 1 cannot report it
}

// keyColumn is one key_column_usage row of hop 2.
type keyColumn struct {
	Table    string
	Column   string
	Position int
}

// twoHop resolves foreign keys in two steps.
//
// Hop 1 lists the schema's foreign key constraints, one row per constraint.
// Hop 2 looks up each side of every constraint in key_column_usage and
// pairs the rows by position.
type twoHop struct {
	db       database.DB
	schema   string
	prefixes []string

	// constraints selects (constraint_schema, constraint_name,
	// unique_constraint_schema, unique_constraint_name, table, unique_table)
	// for the schema bound to the first placeholder.
	constraints string

	// childKeys and parentKeys select (table_name, column_name, position)
	// for a constraint bound to (schema, name[, table]).
	childKeys  string
	parentKeys string

	// childByTable and parentByTable add the table name to the child and
	// parent hop 2 lookups. A constraint name that is only unique per table
	// is ambiguous under (schema, name) alone: Postgres foreign keys, and
	// every MySQL key, whose primary keys are all named PRIMARY.
	childByTable  bool
	parentByTable bool
}

func (h *twoHop) resolve(ctx context.Context) ([]schema.ForeignKey, error) {
	refs, err := h.listConstraints(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	fks := []schema.ForeignKey{}
	for _, ref := range refs {
		pairs, err := h.resolveConstraint(ctx, ref)
		if err != nil {
			return nil, err
		}
		if len(pairs) > 0 && (excluded(pairs[0].ChildTable, h.prefixes) || excluded(pairs[0].ParentTable, h.prefixes)) {
			log.Debugf("skipping foreign key %s on internal table", ref.Name)
			continue
		}
		fks = append(fks, pairs...)
	}
	return fks, nil
}

func (h *twoHop) listConstraints(ctx context.Context) ([]constraintRef, error) {
	rows, err := h.db.Query(ctx, h.constraints, h.schema)
	if err != nil {
		return nil, fmt.Errorf("list foreign key constraints: %w", err)
	}
	defer rows.Close()

	var refs []constraintRef
	for rows.Next() {
		var r constraintRef
		if err := rows.Scan(&r.Schema, &r.Name, &r.UniqueSchema, &r.UniqueName, &r.Table, &r.UniqueTable); err != nil {
			return nil, fmt.Errorf("scan foreign key constraint: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list foreign key constraints: %w", err)
	}
	return refs, nil
}

func (h *twoHop) resolveConstraint(ctx context.Context, ref constraintRef) ([]schema.ForeignKey, error) {
	childArgs := []any{ref.Schema, ref.Name}
	parentArgs := []any{ref.UniqueSchema, ref.UniqueName}
	if h.childByTable {
		childArgs = append(childArgs, ref.Table)
	}
	if h.parentByTable {
		parentArgs = append(parentArgs, ref.UniqueTable)
	}

	child, err := h.keyColumns(ctx, h.childKeys, childArgs)
	if err != nil {
		return nil, fmt.Errorf("load columns of constraint %s.%s: %w", ref.Schema, ref.Name, err)
	}
	parent, err := h.keyColumns(ctx, h.parentKeys, parentArgs)
	if err != nil {
		return nil, fmt.Errorf("load columns of constraint %s.%s: %w", ref.UniqueSchema, ref.UniqueName, err)
	}
	return pairKeyColumns(ref.Name, ref.UniqueName, child, parent)
}

func (h *twoHop) keyColumns(ctx context.Context, q string, args []any) ([]keyColumn, error) {
	rows, err := h.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []keyColumn
	for rows.Next() {
		var k keyColumn
		if err := rows.Scan(&k.Table, &k.Column, &k.Position); err != nil {
			return nil, fmt.Errorf("scan key column: %w", err)
		}
		cols = append(cols, k)
	}
	return cols, rows.Err()
}

// pairKeyColumns joins the child and parent sides of one constraint. Each
// side must name exactly one table and both sides must have the same number
// of columns with matching positions.
func pairKeyColumns(constraint, uniqueConstraint string, child, parent []keyColumn) ([]schema.ForeignKey, error) {
	childTable, err := singleTable(constraint, child)
	if err != nil {
		return nil, err
	}
	parentTable, err := singleTable(uniqueConstraint, parent)
	if err != nil {
		return nil, err
	}
	if len(child) != len(parent) {
		return nil, inconsistent("constraint %s has %d columns but %s has %d",
			constraint, len(child), uniqueConstraint, len(parent))
	}

	byPos := make(map[int]string, len(parent))
	for _, p := range parent {
		byPos[p.Position] = p.Column
	}

	sorted := make([]keyColumn, len(child))
	copy(sorted, child)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	fks := make([]schema.ForeignKey, 0, len(sorted))
	for _, c := range sorted {
		pk, ok := byPos[c.Position]
		if !ok {
			return nil, inconsistent("constraint %s column %s has no counterpart at position %d in %s",
				constraint, c.Column, c.Position, uniqueConstraint)
		}
		fk := schema.NewForeignKey(childTable, parentTable, c.Column, pk)
		fk.Constraint = constraint
		fks = append(fks, fk)
	}
	return fks, nil
}

func singleTable(constraint string, cols []keyColumn) (string, error) {
	if len(cols) == 0 {
		return "", inconsistent("constraint %s has no key columns", constraint)
	}
	table := cols[0].Table
	for _, c := range cols[1:] {
		if c.Table != table {
			return "", inconsistent("constraint %s spans tables %s and %s", constraint, table, c.Table)
		}
	}
	return table, nil
}
