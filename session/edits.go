package session

import (
	"fmt"
	"strings"

	"github.com/danthegoodman1/tablesplit/table"
)

const (
	TeachingWeeksColumn = "teaching_weeks"
	StaffColumn         = "Staff Name"
	PhDColumn           = "PhD Yes/No"

	TeachingWeeksPlaceholder = "Enter value here"
	StaffPlaceholder         = "Enter Name here"
	PhDPlaceholder           = "Enter Yes or No here"
	CustomPlaceholder        = "Enter value here"

	WarnNoColumnsSelected = "No columns selected. Keeping all columns."
)

type Edits struct {
	// Columns to keep, in output order. Empty keeps every original column.
	Columns          []string `json:"columns"`
	AddTeachingWeeks bool     `json:"addTeachingWeeks"`
	AddStaff         bool     `json:"addStaff"`
	AddPhD           bool     `json:"addPhD"`
	// CustomColumn adds one column with this name when it is not blank.
	CustomColumn string `json:"customColumn" validate:"max=255"`
}

// Apply derives the working table from original: projection first, then the placeholder
// columns. original is never modified. Warnings are meant for the user and are not errors.
func Apply(original *table.Table, e Edits) (*table.Table, []string, error) {
	var warnings []string

	cols := e.Columns
	if len(cols) == 0 {
		cols = original.Columns()
		warnings = append(warnings, WarnNoColumnsSelected)
	}

	working, err := original.Project(cols)
	if err != nil {
		return nil, nil, fmt.Errorf("error in Project: %w", err)
	}

	if e.AddTeachingWeeks {
		working.SetColumn(TeachingWeeksColumn, table.String(TeachingWeeksPlaceholder))
	}
	if e.AddStaff {
		working.SetColumn(StaffColumn, table.String(StaffPlaceholder))
	}
	if e.AddPhD {
		working.SetColumn(PhDColumn, table.String(PhDPlaceholder))
	}
	if custom := strings.TrimSpace(e.CustomColumn); custom != "" {
		working.SetColumn(custom, table.String(CustomPlaceholder))
	}

	return working, warnings, nil
}

// SplitOptions are the choices for the split column: "" for none, then every working column.
func SplitOptions(working *table.Table) []string {
	return append([]string{""}, working.Columns()...)
}
