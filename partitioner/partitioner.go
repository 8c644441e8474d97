package partitioner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danthegoodman1/tablesplit/table"
)

type (
	// Group is every row of a table sharing one split column value, in table order.
	Group struct {
		Key   table.Value
		Label string
		Rows  []int
	}
)

const (
	// TimestampLayout renders as YYYYMMDD-HHMMSS.
	TimestampLayout = "20060102-150405"
	FileExtension   = ".xlsx"

	nullLabel = "null"
)

var (
	ErrLabelCollision = errors.New("distinct values map to the same file label")

	labelReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")
)

// GroupBy partitions the rows of t by the values of column. Groups come back in the order
// their value first appears.
func GroupBy(t *table.Table, column string) ([]Group, error) {
	c, err := t.ColumnIndex(column)
	if err != nil {
		return nil, fmt.Errorf("error in ColumnIndex: %w", err)
	}

	var groups []Group
	byKey := make(map[string]int)
	for i, row := range t.Rows() {
		v := row[c]
		g, exists := byKey[v.Key()]
		if !exists {
			g = len(groups)
			byKey[v.Key()] = g
			groups = append(groups, Group{
				Key:   v,
				Label: Label(v),
			})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups, nil
}

// Label renders a split value as the filename-safe part of an output file name.
// Colons and path separators become underscores, nothing else is touched.
func Label(v table.Value) string {
	if v.IsNull() {
		return nullLabel
	}
	return labelReplacer.Replace(v.String())
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FileName is "{label}-{timestamp}.xlsx".
func FileName(label, timestamp string) string {
	return fmt.Sprintf("%s-%s%s", label, timestamp, FileExtension)
}

// CheckLabels fails when two groups would write to the same file.
func CheckLabels(groups []Group) error {
	seen := make(map[string]table.Value, len(groups))
	for _, g := range groups {
		if other, exists := seen[g.Label]; exists {
			return fmt.Errorf("%w: %q and %q both become %q", ErrLabelCollision, other.String(), g.Key.String(), g.Label)
		}
		seen[g.Label] = g.Key
	}
	return nil
}
