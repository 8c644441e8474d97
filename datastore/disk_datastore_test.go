package datastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestDiskDataStoreWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/out", 0o755); err != nil {
		t.Fatal(err)
	}
	dds := NewDiskDataStore(fs, "/out")

	p, err := dds.WriteFile(context.Background(), "CS-20240101-120000.xlsx", strings.NewReader("first"))
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/out", "CS-20240101-120000.xlsx") {
		t.Fatalf("bad path %s", p)
	}

	// Same name again replaces the file.
	if _, err := dds.WriteFile(context.Background(), "CS-20240101-120000.xlsx", strings.NewReader("second")); err != nil {
		t.Fatal(err)
	}
	b, err := afero.ReadFile(fs, p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "second" {
		t.Fatalf("expected overwritten content, got %q", string(b))
	}

	entries, err := afero.ReadDir(fs, "/out")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}

func TestDiskDataStoreMissingDirectory(t *testing.T) {
	dds := NewDiskDataStore(afero.NewMemMapFs(), "/nope")
	_, err := dds.WriteFile(context.Background(), "a.xlsx", strings.NewReader("x"))
	if !errors.Is(err, os.ErrNotExist) || !errors.Is(err, ErrDestinationMissing) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestDiskDataStoreRootIsAFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/file", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dds := NewDiskDataStore(fs, "/file")
	_, err := dds.WriteFile(context.Background(), "a.xlsx", strings.NewReader("x"))
	if !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("expected ErrNotADirectory, got %v", err)
	}
}

func TestS3Key(t *testing.T) {
	sds := &S3DataStore{bucket: "b", prefix: "exports/2024"}
	if sds.key("CS.xlsx") != "exports/2024/CS.xlsx" {
		t.Fatalf("bad key %s", sds.key("CS.xlsx"))
	}
	sds = &S3DataStore{bucket: "b"}
	if sds.key("CS.xlsx") != "CS.xlsx" {
		t.Fatalf("bad key %s", sds.key("CS.xlsx"))
	}
}
