package table

// ColumnTypeAccumulator collects the value kinds seen per column so a column can be
// described by a single type. Columns are reported in the order they were first seen.
type ColumnTypeAccumulator struct {
	names []string
	kinds map[string]map[Kind]struct{}
}

func NewColumnTypeAccumulator() *ColumnTypeAccumulator {
	return &ColumnTypeAccumulator{
		kinds: make(map[string]map[Kind]struct{}),
	}
}

func (a *ColumnTypeAccumulator) WriteValue(column string, v Value) {
	seen, exists := a.kinds[column]
	if !exists {
		seen = make(map[Kind]struct{})
		a.kinds[column] = seen
		a.names = append(a.names, column)
	}
	if v.IsNull() {
		return
	}
	seen[v.Kind()] = struct{}{}
}

func (a *ColumnTypeAccumulator) WriteTable(t *Table) {
	for _, col := range t.columns {
		a.WriteValue(col, Null())
	}
	for _, row := range t.rows {
		for c, v := range row {
			a.WriteValue(t.columns[c], v)
		}
	}
}

func (a *ColumnTypeAccumulator) GetColumnNames() []string {
	names := make([]string, len(a.names))
	copy(names, a.names)
	return names
}

// GetColumnType is the single kind of the column's non-null values, "null" when it only
// held nulls, and "mixed" when kinds differ.
func (a *ColumnTypeAccumulator) GetColumnType(column string) string {
	seen := a.kinds[column]
	switch len(seen) {
	case 0:
		return KindNull.String()
	case 1:
		for k := range seen {
			return k.String()
		}
	}
	return "mixed"
}

// GetColumnTypes returns the types in the same order as GetColumnNames.
func (a *ColumnTypeAccumulator) GetColumnTypes() []string {
	types := make([]string, len(a.names))
	for i, name := range a.names {
		types[i] = a.GetColumnType(name)
	}
	return types
}

// ColumnTypes describes each column of t.
func ColumnTypes(t *Table) map[string]string {
	a := NewColumnTypeAccumulator()
	a.WriteTable(t)
	out := make(map[string]string, len(a.names))
	for _, name := range a.names {
		out[name] = a.GetColumnType(name)
	}
	return out
}
