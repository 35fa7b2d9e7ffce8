// Package schema holds the backend-agnostic description of a database
// schema and its text rendering.
//
// Values are plain data: they carry no reference to the connection or
// inspector that produced them.
package schema

// Column describes a single column in a table.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	SQLType  string `json:"sql_type" yaml:"sql_type"` // backend-native type: int4, varchar(255), nvarchar, …
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// Table describes a table and its columns in catalog order.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// ForeignKey is one directed edge: ChildTable.ForeignKeyColumn references
// ParentTable.PrimaryKeyColumn. A composite constraint yields one ForeignKey
// per column pair, all sharing the same Constraint name.
type ForeignKey struct {
	ChildTable       string `json:"child_table" yaml:"child_table"`
	ParentTable      string `json:"parent_table" yaml:"parent_table"`
	ForeignKeyColumn string `json:"foreign_key_column" yaml:"foreign_key_column"`
	PrimaryKeyColumn string `json:"primary_key_column" yaml:"primary_key_column"`
	Constraint       string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// Snapshot is the full inspected schema at one point in time.
// It is built once and must not be mutated afterwards.
type Snapshot struct {
	Tables      []Table      `json:"tables" yaml:"tables"`
	ForeignKeys []ForeignKey `json:"foreign_keys" yaml:"foreign_keys"`
}

// NewColumn builds a Column.
func NewColumn(name, sqlType string, nullable bool) Column {
	return Column{Name: name, SQLType: sqlType, Nullable: nullable}
}

// NewTable builds a Table. A nil columns slice is normalised to empty.
func NewTable(name string, columns []Column) Table {
	if columns == nil {
		columns = []Column{}
	}
	return Table{Name: name, Columns: columns}
}

// NewForeignKey builds a ForeignKey without a constraint name.
func NewForeignKey(childTable, parentTable, foreignKeyColumn, primaryKeyColumn string) ForeignKey {
	return ForeignKey{
		ChildTable:       childTable,
		ParentTable:      parentTable,
		ForeignKeyColumn: foreignKeyColumn,
		PrimaryKeyColumn: primaryKeyColumn,
	}
}

// NewSnapshot builds a Snapshot that owns copies of tables and foreignKeys.
func NewSnapshot(tables []Table, foreignKeys []ForeignKey) *Snapshot {
	s := &Snapshot{
		Tables:      make([]Table, len(tables)),
		ForeignKeys: make([]ForeignKey, len(foreignKeys)),
	}
	for i, t := range tables {
		cols := make([]Column, len(t.Columns))
		copy(cols, t.Columns)
		s.Tables[i] = Table{Name: t.Name, Columns: cols}
	}
	copy(s.ForeignKeys, foreignKeys)
	return s
}

// Table returns the table with the given name.
func (s *Snapshot) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames returns the table names in snapshot order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}
