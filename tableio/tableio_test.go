package tableio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danthegoodman1/tablesplit/table"
	"github.com/xuri/excelize/v2"
)

var staffCSV = []byte(`Module,Week,Lecturer,Online
CS101,1,ada,true
CS101,2,bob,FALSE
EE201,1,,true
EE201,NaN,cy,
`)

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(bytes.NewReader(staffCSV))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.NumRows() != 4 {
		t.Fatalf("expected 4 rows, got %d", tbl.NumRows())
	}
	types := table.ColumnTypes(tbl)
	if types["Module"] != "string" || types["Week"] != "number" || types["Lecturer"] != "string" || types["Online"] != "bool" {
		t.Fatalf("bad types %v", types)
	}

	v, _ := tbl.Value(2, "Lecturer")
	if !v.IsNull() {
		t.Fatalf("empty cell should be null, got %v", v)
	}
	v, _ = tbl.Value(3, "Week")
	if !v.IsNull() {
		t.Fatalf("NaN should be null, got %v", v)
	}
	v, _ = tbl.Value(1, "Online")
	if !v.Equal(table.Bool(false)) {
		t.Fatalf("expected false, got %v", v)
	}
}

func TestReadCSVHeaderNormalization(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufeffa,,a,a\n1,2,3,4\n5\n"))
	if err != nil {
		t.Fatal(err)
	}
	cols := tbl.Columns()
	expected := []string{"a", "Unnamed: 1", "a.1", "a.2"}
	for i := range expected {
		if cols[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, cols)
		}
	}
	v, _ := tbl.Value(1, "a.2")
	if !v.IsNull() {
		t.Fatal("short row should be padded with null")
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrNoHeader) || !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
	if _, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n")); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for a wide row, got %v", err)
	}
}

func TestLoadFileChoosesParserBySuffix(t *testing.T) {
	if _, err := LoadFile("staff.csv", bytes.NewReader(staffCSV)); err != nil {
		t.Fatal(err)
	}
	// The suffix check is case-sensitive, so this is read as a workbook and fails.
	if _, err := LoadFile("staff.CSV", bytes.NewReader(staffCSV)); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl, err := table.New([]string{"dept", "val", "note", "remote"})
	if err != nil {
		t.Fatal(err)
	}
	_ = tbl.AppendRow(table.Row{table.String("CS"), table.Number(1.5), table.String("Enter value here"), table.Bool(true)})
	_ = tbl.AppendRow(table.Row{table.String("EE"), table.Number(2), table.Null(), table.Bool(false)})

	var b bytes.Buffer
	n, err := EncodeXLSX(tbl, &b)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 || int64(b.Len()) != n {
		t.Fatalf("reported %d bytes, buffer has %d", n, b.Len())
	}

	back, err := LoadFile("out.xlsx", &b)
	if err != nil {
		t.Fatal(err)
	}
	cols := back.Columns()
	if len(cols) != 4 || cols[0] != "dept" || cols[3] != "remote" {
		t.Fatalf("bad columns %v", cols)
	}
	if back.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", back.NumRows())
	}
	v, _ := back.Value(0, "val")
	if !v.Equal(table.Number(1.5)) {
		t.Fatalf("expected 1.5, got %v", v)
	}
	v, _ = back.Value(1, "note")
	if !v.IsNull() {
		t.Fatalf("expected null, got %v", v)
	}
	v, _ = back.Value(0, "remote")
	if !v.Equal(table.Bool(true)) {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestEncodeXLSXTimestamps(t *testing.T) {
	tbl, _ := table.New([]string{"at"})
	_ = tbl.AppendRow(table.Row{table.Time(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))})
	var b bytes.Buffer
	if _, err := EncodeXLSX(tbl, &b); err != nil {
		t.Fatal(err)
	}
	back, err := ReadXLSX(&b)
	if err != nil {
		t.Fatal(err)
	}
	if back.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", back.NumRows())
	}
	v, _ := back.Value(0, "at")
	if v.Kind() != table.KindTime || !v.Timestamp().Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the timestamp back, got %s %v", v.Kind(), v)
	}
}

func TestFromJSONRows(t *testing.T) {
	tbl, err := FromJSONRows(nil, []map[string]any{
		{"dept": "CS", "val": 1.0},
		{"dept": "EE", "ok": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	cols := tbl.Columns()
	if len(cols) != 3 || cols[0] != "dept" || cols[1] != "ok" || cols[2] != "val" {
		t.Fatalf("bad columns %v", cols)
	}
	v, _ := tbl.Value(1, "val")
	if !v.IsNull() {
		t.Fatalf("missing key should be null, got %v", v)
	}

	tbl, err = FromJSONRows([]string{"val", "dept"}, []map[string]any{{"dept": "CS", "val": 1.0}})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Columns()[0] != "val" {
		t.Fatalf("explicit column order ignored: %v", tbl.Columns())
	}
}

func TestReadCSVKeepsHexAsText(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("code,n\n0x10,1\n-0X1p4,2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if types := table.ColumnTypes(tbl); types["code"] != "string" || types["n"] != "number" {
		t.Fatalf("bad types %v", types)
	}
	v, _ := tbl.Value(0, "code")
	if !v.Equal(table.String("0x10")) {
		t.Fatalf("expected 0x10 as text, got %v", v)
	}
}

// courseWorkbook is a workbook written the way spreadsheet users write them: typed cells,
// a text ID with leading zeros, and a note in a column without a header.
func courseWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	set := func(cell string, v any) {
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			t.Fatal(err)
		}
	}
	set("A1", "when")
	set("B1", "id")
	set("C1", "remote")
	set("D1", "count")

	set("A2", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	if err := f.SetCellStr(SheetName, "B2", "007"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellBool(SheetName, "C2", true); err != nil {
		t.Fatal(err)
	}
	set("D2", 3)

	set("A3", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err := f.SetCellStr(SheetName, "B3", "010"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellBool(SheetName, "C3", false); err != nil {
		t.Fatal(err)
	}
	set("D3", 4.5)
	set("E3", "bring laptop")

	b, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestReadXLSXKeepsCellTypes(t *testing.T) {
	tbl, err := ReadXLSX(courseWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.NumRows())
	}

	v, _ := tbl.Value(0, "when")
	if v.Kind() != table.KindTime || !v.Timestamp().Equal(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected a timestamp, got %s %v", v.Kind(), v)
	}
	if v.String() != "2024-01-01 09:30:00" {
		t.Fatalf("bad timestamp text %q", v.String())
	}

	v, _ = tbl.Value(0, "id")
	if !v.Equal(table.String("007")) {
		t.Fatalf("text cell lost its leading zeros: %s %v", v.Kind(), v)
	}

	v, _ = tbl.Value(0, "remote")
	if !v.Equal(table.Bool(true)) {
		t.Fatalf("expected true, got %v", v)
	}
	v, _ = tbl.Value(1, "remote")
	if !v.Equal(table.Bool(false)) {
		t.Fatalf("expected false, got %v", v)
	}

	v, _ = tbl.Value(1, "count")
	if !v.Equal(table.Number(4.5)) {
		t.Fatalf("expected 4.5, got %v", v)
	}

	types := table.ColumnTypes(tbl)
	if types["when"] != "timestamp" || types["id"] != "string" || types["remote"] != "bool" || types["count"] != "number" {
		t.Fatalf("bad types %v", types)
	}
}

func TestReadXLSXWidensHeader(t *testing.T) {
	tbl, err := ReadXLSX(courseWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}
	cols := tbl.Columns()
	if len(cols) != 5 || cols[4] != "Unnamed: 4" {
		t.Fatalf("expected an unnamed fifth column, got %v", cols)
	}
	v, _ := tbl.Value(0, "Unnamed: 4")
	if !v.IsNull() {
		t.Fatalf("expected null, got %v", v)
	}
	v, _ = tbl.Value(1, "Unnamed: 4")
	if !v.Equal(table.String("bring laptop")) {
		t.Fatalf("expected the note, got %v", v)
	}
}

func TestIsDateFormat(t *testing.T) {
	str := func(s string) *string { return &s }
	for _, tc := range []struct {
		numFmt int
		custom *string
		isDate bool
	}{
		{0, nil, false},
		{2, nil, false},
		{14, nil, true},
		{22, nil, true},
		{49, nil, false},
		{164, str("yyyy-mm-dd hh:mm:ss"), true},
		{164, str("0.00"), false},
		{164, str(`#,##0 "days"`), false},
		{164, str("[Red]0.00;[Blue]-0.00"), false},
		{164, str(`[$-409]d-mmm-yy`), true},
		{164, str("General"), false},
	} {
		if got := isDateFormat(tc.numFmt, tc.custom); got != tc.isDate {
			t.Fatalf("isDateFormat(%d, %v) = %v", tc.numFmt, tc.custom, got)
		}
	}
}
