package tableio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/table"
)

var (
	logger = gologger.NewLogger()

	ErrParse    = errors.New("unable to parse table")
	ErrNoHeader = errors.New("missing header row")

	// Cells read as null, matching what spreadsheet tools usually treat as missing.
	naValues = map[string]struct{}{
		"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
		"NULL": {}, "null": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {},
	}
)

const csvSuffix = ".csv"

// LoadFile parses an uploaded file. A name ending in ".csv" (case-sensitive) is read as CSV,
// anything else as xlsx.
func LoadFile(name string, r io.Reader) (*table.Table, error) {
	if strings.HasSuffix(name, csvSuffix) {
		return ReadCSV(r)
	}
	return ReadXLSX(r)
}

// NormalizeHeader fills blank names with "Unnamed: {i}" and suffixes repeats with ".1", ".2", ...
func NormalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for n := 1; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		taken[candidate] = true
		header[i] = candidate
	}
	return header
}

// buildTable types each column from its text cells and assembles the table.
// records shorter than the header are padded with nulls.
func buildTable(rawHeader []string, records [][]string) (*table.Table, error) {
	header := NormalizeHeader(rawHeader)
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrParse, i+2, len(rec), len(header))
		}
	}

	kinds := make([]table.Kind, len(header))
	for c := range header {
		kinds[c] = inferKind(records, c)
	}

	t, err := table.New(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for _, rec := range records {
		row := make(table.Row, len(header))
		for c := range header {
			if c < len(rec) {
				row[c] = convertCell(rec[c], kinds[c])
			}
		}
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("error in AppendRow: %w", err)
		}
	}
	return t, nil
}

func isNA(s string) bool {
	_, na := naValues[strings.TrimSpace(s)]
	return na
}

// parseNumber accepts decimal numbers only, so cells like "0x10" stay text.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// inferKind picks number when every non-missing cell is numeric, bool when every one is
// true/false, string otherwise. An all-missing column is null.
func inferKind(records [][]string, c int) table.Kind {
	allNumbers, allBools, seen := true, true, false
	for _, rec := range records {
		if c >= len(rec) || isNA(rec[c]) {
			continue
		}
		seen = true
		if _, ok := parseNumber(rec[c]); !ok {
			allNumbers = false
		}
		if _, ok := parseBool(rec[c]); !ok {
			allBools = false
		}
		if !allNumbers && !allBools {
			return table.KindString
		}
	}
	switch {
	case !seen:
		return table.KindNull
	case allNumbers:
		return table.KindNumber
	case allBools:
		return table.KindBool
	default:
		return table.KindString
	}
}

func convertCell(s string, kind table.Kind) table.Value {
	if isNA(s) {
		return table.Null()
	}
	switch kind {
	case table.KindNumber:
		f, _ := parseNumber(s)
		return table.Number(f)
	case table.KindBool:
		b, _ := parseBool(s)
		return table.Bool(b)
	default:
		return table.String(s)
	}
}
