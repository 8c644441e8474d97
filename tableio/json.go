package tableio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danthegoodman1/gojsonutils"
	"github.com/danthegoodman1/tablesplit/table"
)

var ErrNotFlatMap = errors.New("not a flat map")

// FromJSONRows builds a table from decoded JSON objects. Nested objects are flattened first.
// When columns is empty the columns are the sorted union of every row's keys.
// Keys a row lacks are null.
func FromJSONRows(columns []string, rows []map[string]any) (*table.Table, error) {
	flatRows := make([]map[string]any, 0, len(rows))
	keys := make(map[string]struct{})
	for i, row := range rows {
		flat, err := gojsonutils.Flatten(row, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: error flattening row %d: %w", ErrParse, i, err)
		}
		flatMap, ok := flat.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: %w", ErrParse, i, ErrNotFlatMap)
		}
		for k := range flatMap {
			keys[k] = struct{}{}
		}
		flatRows = append(flatRows, flatMap)
	}

	if len(columns) == 0 {
		for k := range keys {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	t, err := table.New(columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for _, flatMap := range flatRows {
		row := make(table.Row, len(columns))
		for c, col := range columns {
			row[c] = table.FromAny(flatMap[col])
		}
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("error in AppendRow: %w", err)
		}
	}
	return t, nil
}
