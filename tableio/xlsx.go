package tableio

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/danthegoodman1/tablesplit/table"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the sheet every exported workbook writes to.
	SheetName = "Sheet1"

	timestampNumFmt = "yyyy-mm-dd hh:mm:ss"
)

// ReadXLSX reads the first sheet of a workbook, using its first row as the header.
// Cells keep the type the workbook stores: text stays text, numbers formatted as dates
// become timestamps. Data cells right of the last header cell get an "Unnamed: {i}" column.
func ReadXLSX(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: error in excelize.OpenReader: %w", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: error in GetRows: %w", ErrParse, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrNoHeader)
	}

	cr := &cellReader{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cr.date1904 = *props.Date1904
	}

	width := len(rows[0])
	var records []table.Row
	for i, raw := range rows[1:] {
		if len(raw) == 0 {
			continue
		}
		row := make(table.Row, len(raw))
		for c, text := range raw {
			v, err := cr.value(c+1, i+2, text)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrParse, err)
			}
			row[c] = v
		}
		width = max(width, len(row))
		records = append(records, row)
	}

	header := make([]string, width)
	copy(header, rows[0])
	t, err := table.New(NormalizeHeader(header))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for _, rec := range records {
		row := make(table.Row, width)
		copy(row, rec)
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("error in AppendRow: %w", err)
		}
	}

	logger.Debug().Str("sheet", sheet).Int("columns", width).Int("rows", len(records)).Msg("read xlsx")
	return t, nil
}

type cellReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	// style index -> number format is a date
	dateStyles map[int]bool
}

// value types one cell from its stored type and, for numbers, its number format.
func (cr *cellReader) value(col, row int, text string) (table.Value, error) {
	if text == "" {
		return table.Null(), nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return table.Value{}, fmt.Errorf("error in CoordinatesToCellName: %w", err)
	}
	cellType, err := cr.f.GetCellType(cr.sheet, cell)
	if err != nil {
		return table.Value{}, fmt.Errorf("error in GetCellType for %s: %w", cell, err)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		if isNA(text) {
			return table.Null(), nil
		}
		return table.String(text), nil
	case excelize.CellTypeBool:
		return table.Bool(text == "1" || strings.EqualFold(text, "true")), nil
	case excelize.CellTypeError:
		return table.Null(), nil
	case excelize.CellTypeDate:
		if ts, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return table.Time(ts), nil
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", text); err == nil {
			return table.Time(ts), nil
		}
		return table.String(text), nil
	}

	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return table.String(text), nil
	}
	isDate, err := cr.isDateCell(cell)
	if err != nil {
		return table.Value{}, err
	}
	if !isDate {
		return table.Number(num), nil
	}
	ts, err := excelize.ExcelDateToTime(num, cr.date1904)
	if err != nil {
		return table.Number(num), nil
	}
	return table.Time(ts.Round(time.Millisecond)), nil
}

func (cr *cellReader) isDateCell(cell string) (bool, error) {
	idx, err := cr.f.GetCellStyle(cr.sheet, cell)
	if err != nil {
		return false, fmt.Errorf("error in GetCellStyle for %s: %w", cell, err)
	}
	if isDate, ok := cr.dateStyles[idx]; ok {
		return isDate, nil
	}
	style, err := cr.f.GetStyle(idx)
	if err != nil {
		return false, fmt.Errorf("error in GetStyle %d: %w", idx, err)
	}
	isDate := isDateFormat(style.NumFmt, style.CustomNumFmt)
	cr.dateStyles[idx] = isDate
	return isDate, nil
}

// isDateFormat reports whether a number format renders a date or time: one of the
// built-in date formats, or a custom code with date or time tokens outside literals.
func isDateFormat(numFmt int, custom *string) bool {
	switch {
	case numFmt >= 14 && numFmt <= 22,
		numFmt >= 27 && numFmt <= 36,
		numFmt >= 45 && numFmt <= 47,
		numFmt >= 50 && numFmt <= 58:
		return true
	}
	if custom == nil {
		return false
	}
	code := strings.ToLower(*custom)
	// only the positive section matters
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\':
			i++
		case strings.IndexByte("ymdhs", ch) >= 0:
			return true
		}
	}
	return false
}

// EncodeXLSX writes t as a single sheet workbook: a header row of column names followed
// by one row per table row. Nulls are left as empty cells.
func EncodeXLSX(t *table.Table, w io.Writer) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("error in NewStreamWriter: %w", err)
	}

	numFmt := timestampNumFmt
	timeStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return 0, fmt.Errorf("error in NewStyle: %w", err)
	}

	cols := t.Columns()
	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("error writing header row: %w", err)
	}

	for i, row := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, fmt.Errorf("error in CoordinatesToCellName: %w", err)
		}
		vals := make([]any, len(row))
		for c, v := range row {
			if v.Kind() == table.KindTime {
				vals[c] = excelize.Cell{StyleID: timeStyle, Value: v.Timestamp()}
				continue
			}
			vals[c] = v.Any()
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return 0, fmt.Errorf("error writing row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("error in StreamWriter.Flush: %w", err)
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("error in WriteTo: %w", err)
	}
	return n, nil
}
