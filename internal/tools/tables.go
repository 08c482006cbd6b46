package tools

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultSchema = "dbo"

var (
	tableNamePattern  = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// tableRef is a validated schema-qualified table name.
type tableRef struct {
	Schema string
	Name   string
}

// Quoted returns the bracket-quoted form, e.g. [dbo].[orders].
func (t tableRef) Quoted() string {
	return "[" + t.Schema + "].[" + t.Name + "]"
}

func (t tableRef) String() string {
	return t.Schema + "." + t.Name
}

// parseTableName accepts "table" or "schema.table". An unqualified name uses
// schema, or dbo when schema is empty. Only letters, digits and underscores
// are allowed so the name can be safely bracket-quoted.
func parseTableName(name, schema string) (tableRef, error) {
	name = strings.TrimSpace(name)
	if !tableNamePattern.MatchString(name) {
		return tableRef{}, fmt.Errorf("invalid table name %q: use letters, digits and underscores, optionally as schema.table", name)
	}

	if s, t, ok := strings.Cut(name, "."); ok {
		return tableRef{Schema: s, Name: t}, nil
	}

	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = defaultSchema
	}
	if !identifierPattern.MatchString(schema) {
		return tableRef{}, fmt.Errorf("invalid schema name %q", schema)
	}
	return tableRef{Schema: schema, Name: name}, nil
}
