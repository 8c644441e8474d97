package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danthegoodman1/tablesplit/table"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a CSV document whose first record is the header.
func ReadCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error reading csv header: %w", ErrParse, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: error in csv.Read: %w", ErrParse, err)
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		records = append(records, rec)
	}

	logger.Debug().Int("columns", len(header)).Int("rows", len(records)).Msg("read csv")
	return buildTable(header, records)
}
