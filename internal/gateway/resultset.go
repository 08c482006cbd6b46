package gateway

import "strings"

// Column describes one result column in server order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultSet holds every row returned by one statement. Values are already
// converted to plain Go types (see convertValue).
type ResultSet struct {
	Columns []Column
	Rows    [][]any

	index map[string]int
}

// NewResultSet returns an empty result set with the given columns.
func NewResultSet(columns []Column) *ResultSet {
	rs := &ResultSet{
		Columns: columns,
		Rows:    make([][]any, 0),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		// first occurrence wins for duplicate names
		if _, exists := rs.index[c.Name]; !exists {
			rs.index[c.Name] = i
		}
	}
	return rs
}

// ColumnNames returns the column names in server order.
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column. An exact match is tried
// first, then a case-insensitive one.
func (rs *ResultSet) Index(name string) (int, bool) {
	if i, ok := rs.index[name]; ok {
		return i, true
	}
	for i, c := range rs.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// Value returns the value of the named column in the given row.
func (rs *ResultSet) Value(row int, name string) (any, bool) {
	if row < 0 || row >= len(rs.Rows) {
		return nil, false
	}
	i, ok := rs.Index(name)
	if !ok {
		return nil, false
	}
	return rs.Rows[row][i], true
}

// String returns the named value formatted as text, or "" for NULL or a
// missing column.
func (rs *ResultSet) String(row int, name string) string {
	v, ok := rs.Value(row, name)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Maps returns each row keyed by column name.
func (rs *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(rs.Rows))
	for r, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for i, c := range rs.Columns {
			if _, exists := m[c.Name]; !exists {
				m[c.Name] = row[i]
			}
		}
		out[r] = m
	}
	return out
}
