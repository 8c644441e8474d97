package metastore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/splitter"
)

var (
	logger = gologger.NewLogger()
)

const DefaultListLimit = 50

type (
	MetaStore interface {
		// RecordExport stores the outcome of an export and the files it wrote
		RecordExport(ctx context.Context, rec ExportRecord) error

		// ListExports lists the most recent exports first
		ListExports(ctx context.Context, limit int) ([]ExportRecord, error)

		Shutdown(ctx context.Context) error
	}

	ExportRecord struct {
		ID           string
		SessionID    string
		SourceName   string
		SplitColumn  string
		Destination  string
		Timestamp    string
		NumFiles     int64
		NumRows      int64
		BytesWritten int64
		Files        []FileRecord
		CreatedAt    time.Time
	}

	FileRecord struct {
		Name  string
		Path  string
		Label string
		Rows  int64
		Bytes int64
	}
)

func NewExportRecord(sessionID, sourceName string, stats splitter.ExportStats, createdAt time.Time) ExportRecord {
	rec := ExportRecord{
		ID:           stats.ID,
		SessionID:    sessionID,
		SourceName:   sourceName,
		SplitColumn:  stats.SplitColumn,
		Destination:  stats.Destination,
		Timestamp:    stats.Timestamp,
		NumFiles:     stats.NumFiles,
		NumRows:      stats.NumRows,
		BytesWritten: stats.BytesWritten,
		CreatedAt:    createdAt,
	}
	for _, f := range stats.Files {
		rec.Files = append(rec.Files, FileRecord{
			Name:  f.Name,
			Path:  f.Path,
			Label: f.Label,
			Rows:  f.Rows,
			Bytes: f.Bytes,
		})
	}
	return rec
}

// MemoryMetaStore keeps history for the life of the process.
type MemoryMetaStore struct {
	mu      sync.Mutex
	records []ExportRecord
}

func NewMemoryMetaStore() *MemoryMetaStore {
	return &MemoryMetaStore{}
}

func (mms *MemoryMetaStore) RecordExport(_ context.Context, rec ExportRecord) error {
	mms.mu.Lock()
	defer mms.mu.Unlock()
	mms.records = append(mms.records, rec)
	return nil
}

func (mms *MemoryMetaStore) ListExports(_ context.Context, limit int) ([]ExportRecord, error) {
	mms.mu.Lock()
	defer mms.mu.Unlock()
	if limit <= 0 {
		limit = DefaultListLimit
	}
	out := make([]ExportRecord, len(mms.records))
	copy(out, mms.records)
	// ksuid IDs sort by creation time
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (mms *MemoryMetaStore) Shutdown(_ context.Context) error {
	return nil
}
