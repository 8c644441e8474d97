package datastore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

type (
	DiskDataStore struct {
		fs       afero.Fs
		rootPath string
	}
)

// NewDiskDataStore writes into rootPath, which must already exist: it is never created.
func NewDiskDataStore(fs afero.Fs, rootPath string) *DiskDataStore {
	return &DiskDataStore{
		fs:       fs,
		rootPath: rootPath,
	}
}

// WriteFile writes to a temp file in the root and renames it into place, so a failed
// write never leaves a truncated file behind.
func (dds *DiskDataStore) WriteFile(ctx context.Context, name string, r io.Reader) (string, error) {
	logger := zerolog.Ctx(ctx)

	info, err := dds.fs.Stat(dds.rootPath)
	if err != nil {
		if exists, _ := afero.Exists(dds.fs, dds.rootPath); !exists {
			return "", missing(dds.rootPath)
		}
		return "", fmt.Errorf("error in Stat: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, dds.rootPath)
	}

	tmp, err := afero.TempFile(dds.fs, dds.rootPath, ".tablesplit-*")
	if err != nil {
		return "", fmt.Errorf("error in afero.TempFile: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		dds.fs.Remove(tmpName)
		return "", fmt.Errorf("error in io.Copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		dds.fs.Remove(tmpName)
		return "", fmt.Errorf("error closing temp file: %w", err)
	}

	finalPath := filepath.Join(dds.rootPath, name)
	if err := dds.fs.Rename(tmpName, finalPath); err != nil {
		dds.fs.Remove(tmpName)
		return "", fmt.Errorf("error in Rename: %w", err)
	}

	logger.Debug().Str("path", finalPath).Int64("bytes", n).Msg("wrote file to disk")
	return finalPath, nil
}

func (dds *DiskDataStore) Describe() string {
	return "file://" + dds.rootPath
}

func (dds *DiskDataStore) Shutdown(_ context.Context) error {
	return nil
}
