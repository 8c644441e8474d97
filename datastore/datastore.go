package datastore

import (
	"context"
	"errors"
	"io"
	"os"
)

var (
	// ErrDestinationMissing wraps os.ErrNotExist so callers can use either.
	ErrDestinationMissing = errors.New("output destination does not exist")
	ErrNotADirectory      = errors.New("output destination is not a directory")
)

type (
	DataStore interface {
		// WriteFile creates name under the store's root with the content of r, replacing any
		// existing file of that name, and returns the path or URL it was written to.
		WriteFile(ctx context.Context, name string, r io.Reader) (string, error)

		// Describe names the destination for logs and export history.
		Describe() string

		Shutdown(ctx context.Context) error
	}
)

func missing(path string) error {
	return &os.PathError{Op: "stat", Path: path, Err: errors.Join(ErrDestinationMissing, os.ErrNotExist)}
}
