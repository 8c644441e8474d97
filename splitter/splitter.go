package splitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/tablesplit/datastore"
	"github.com/danthegoodman1/tablesplit/partitioner"
	"github.com/danthegoodman1/tablesplit/table"
	"github.com/danthegoodman1/tablesplit/tableio"
	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/rs/zerolog"
)

type (
	ExportedFile struct {
		Label string
		Value table.Value
		Name  string
		Path  string
		Rows  int64
		Bytes int64
	}

	ExportStats struct {
		ID          string
		SplitColumn string
		Destination string
		// Timestamp is shared by every file name of the export.
		Timestamp    string
		NumRows      int64
		NumFiles     int64
		BytesWritten int64
		TimeMS       int64
		Files        []ExportedFile
	}
)

var ErrNoRows = errors.New("no rows found")

// Export writes one xlsx file per distinct value of splitColumn into ds, named
// "{label}-{timestamp}.xlsx" with the timestamp taken once from now.
// Each file holds the header and that group's rows with every column of t, in table order.
//
// Files are written one after the other. On failure the files already written stay
// in place and are listed in the returned stats; later groups are not attempted.
func Export(ctx context.Context, t *table.Table, splitColumn string, ds datastore.DataStore, now time.Time) (ExportStats, error) {
	start := time.Now()
	stats := ExportStats{
		ID:          utils.GenKSortedID("exp_"),
		SplitColumn: splitColumn,
		Destination: ds.Describe(),
		Timestamp:   partitioner.FormatTimestamp(now),
	}
	logger := zerolog.Ctx(ctx).With().Str("exportID", stats.ID).Str("splitColumn", splitColumn).Logger()

	groups, err := partitioner.GroupBy(t, splitColumn)
	if err != nil {
		return stats, fmt.Errorf("error in GroupBy: %w", err)
	}
	if len(groups) == 0 {
		return stats, ErrNoRows
	}
	if err := partitioner.CheckLabels(groups); err != nil {
		return stats, err
	}

	logger.Debug().Int("groups", len(groups)).Str("destination", stats.Destination).Msg("exporting groups")

	for _, g := range groups {
		part := t.Select(g.Rows)

		var b bytes.Buffer
		n, err := tableio.EncodeXLSX(part, &b)
		if err != nil {
			return stats, fmt.Errorf("error encoding group %q: %w", g.Label, err)
		}

		name := partitioner.FileName(g.Label, stats.Timestamp)
		p, err := ds.WriteFile(ctx, name, &b)
		if err != nil {
			return stats, fmt.Errorf("error writing %s: %w", name, err)
		}

		stats.Files = append(stats.Files, ExportedFile{
			Label: g.Label,
			Value: g.Key,
			Name:  name,
			Path:  p,
			Rows:  int64(part.NumRows()),
			Bytes: n,
		})
		stats.NumFiles++
		stats.NumRows += int64(part.NumRows())
		stats.BytesWritten += n
	}

	stats.TimeMS = time.Since(start).Milliseconds()
	logger.Info().Int64("files", stats.NumFiles).Int64("rows", stats.NumRows).Int64("bytes", stats.BytesWritten).Msg("export finished")
	return stats, nil
}

// Paths lists where each file was written.
func (s ExportStats) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}
