package schema

import (
	"encoding/json"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"
)

// RenderTable formats t as a block:
//
//	users {
//	  id -> int4
//	  email -> varchar
//	}
func RenderTable(t Table) string {
	var sb strings.Builder
	writeTable(&sb, t)
	return sb.String()
}

// RenderForeignKey formats fk as "child parent fkColumn pkColumn".
func RenderForeignKey(fk ForeignKey) string {
	return fk.ChildTable + " " + fk.ParentTable + " " + fk.ForeignKeyColumn + " " + fk.PrimaryKeyColumn
}

// RenderSchema formats every table block in order, followed by one line per
// foreign key. The result always ends with a newline unless s is empty.
func RenderSchema(s *Snapshot) string {
	var sb strings.Builder
	for _, t := range s.Tables {
		writeTable(&sb, t)
		sb.WriteByte('\n')
	}
	for _, fk := range s.ForeignKeys {
		sb.WriteString(RenderForeignKey(fk))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeTable(sb *strings.Builder, t Table) {
	sb.WriteString(t.Name)
	sb.WriteString(" {\n")
	for _, c := range t.Columns {
		sb.WriteString("  ")
		sb.WriteString(c.Name)
		sb.WriteString(" -> ")
		sb.WriteString(c.SQLType)
		sb.WriteByte('\n')
	}
	sb.WriteByte('}')
}

// Format selects an output encoding for a Snapshot.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts text, yaml/yml and json; empty means text.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, true
	case "yaml", "yml":
		return FormatYAML, true
	case "json":
		return FormatJSON, true
	}
	return "", false
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Encode writes s to w in format f.
func Encode(w io.Writer, s *Snapshot, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	default:
		_, err := io.WriteString(w, RenderSchema(s))
		return err
	}
}
