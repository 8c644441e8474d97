package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

type (
	CRDBMetaStore struct {
		pool       *pgxpool.Pool
		tryTimeout time.Duration
	}
)

func NewCRDBMetaStore(pool *pgxpool.Pool) *CRDBMetaStore {
	return &CRDBMetaStore{
		pool:       pool,
		tryTimeout: time.Second * 10,
	}
}

func (cms *CRDBMetaStore) RecordExport(ctx context.Context, rec ExportRecord) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("exportID", rec.ID).Msg("recording export")

	return utils.ReliableExecInTx(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO exports (id, session_id, source_name, split_column, destination, ts, num_files, num_rows, bytes_written, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.ID, rec.SessionID, rec.SourceName, rec.SplitColumn, rec.Destination, rec.Timestamp,
			rec.NumFiles, rec.NumRows, rec.BytesWritten, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting export: %w", err)
		}

		for _, f := range rec.Files {
			_, err = tx.Exec(ctx, `INSERT INTO export_files (export_id, name, path, label, num_rows, bytes) VALUES ($1, $2, $3, $4, $5, $6)`,
				rec.ID, f.Name, f.Path, f.Label, f.Rows, f.Bytes)
			if err != nil {
				return fmt.Errorf("error inserting export file %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

func (cms *CRDBMetaStore) ListExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var records []ExportRecord
	err := utils.ReliableExec(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		records = nil
		rows, err := conn.Query(ctx, `SELECT id, session_id, source_name, split_column, destination, ts, num_files, num_rows, bytes_written, created_at
FROM exports ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
		if err != nil {
			return fmt.Errorf("error selecting exports: %w", err)
		}
		defer rows.Close()

		byID := make(map[string]int)
		var ids []string
		for rows.Next() {
			var rec ExportRecord
			var createdAt pgtype.Timestamptz
			err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SourceName, &rec.SplitColumn, &rec.Destination, &rec.Timestamp,
				&rec.NumFiles, &rec.NumRows, &rec.BytesWritten, &createdAt)
			if err != nil {
				return fmt.Errorf("error scanning export: %w", err)
			}
			rec.CreatedAt = createdAt.Time.UTC()
			byID[rec.ID] = len(records)
			ids = append(ids, rec.ID)
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating exports: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		fileRows, err := conn.Query(ctx, `SELECT export_id, name, path, label, num_rows, bytes FROM export_files WHERE export_id = ANY($1) ORDER BY export_id, name`, ids)
		if err != nil {
			return fmt.Errorf("error selecting export files: %w", err)
		}
		defer fileRows.Close()
		for fileRows.Next() {
			var exportID string
			var f FileRecord
			if err := fileRows.Scan(&exportID, &f.Name, &f.Path, &f.Label, &f.Rows, &f.Bytes); err != nil {
				return fmt.Errorf("error scanning export file: %w", err)
			}
			if i, ok := byID[exportID]; ok {
				records[i].Files = append(records[i].Files, f)
			}
		}
		return fileRows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	cms.pool.Close()
	return nil
}
