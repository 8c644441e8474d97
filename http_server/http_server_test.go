package http_server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danthegoodman1/tablesplit/datastore"
	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/metastore"
	"github.com/danthegoodman1/tablesplit/session"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const deptCSV = "dept,val\nCS,1\nEE,2\nCS,3\n"

// sessionResp mirrors SessionView, table.Value only encodes
type sessionResp struct {
	ID           string
	NumRows      int
	Columns      []string
	ColumnTypes  map[string]string
	Preview      []map[string]any
	Warnings     []string
	SplitOptions []string
}

func testServer(t *testing.T) (*HTTPServer, afero.Fs) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/out", 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewHTTPServer(Options{
		Sessions:         session.NewStore(time.Hour),
		MetaStore:        metastore.NewMemoryMetaStore(),
		Fs:               fs,
		DefaultOutputDir: "/out",
		MaxUploadBytes:   1 << 20,
	})
	s.Now = func() time.Time { return time.Date(2024, 5, 6, 13, 14, 15, 0, time.UTC) }
	return s, fs
}

func do(t *testing.T, s *HTTPServer, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, s, method, path, b, "application/json")
}

func upload(t *testing.T, s *HTTPServer, name, content string) sessionResp {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/sessions", b.Bytes(), w.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionResp
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func TestHealthCheck(t *testing.T) {
	s, _ := testServer(t)
	rec := do(t, s, http.MethodGet, "/hc", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadEditExport(t *testing.T) {
	s, fs := testServer(t)

	view := upload(t, s, "depts.csv", deptCSV)
	if view.NumRows != 3 || len(view.Columns) != 2 || len(view.SplitOptions) != 3 {
		t.Fatalf("bad session view %+v", view)
	}
	if len(view.Preview) != 3 || view.Preview[0]["dept"] != "CS" {
		t.Fatalf("bad preview %v", view.Preview)
	}
	if view.ColumnTypes["val"] != "number" {
		t.Fatalf("expected number column, got %v", view.ColumnTypes)
	}

	rec := doJSON(t, s, http.MethodPut, "/sessions/"+view.ID+"/edits", session.Edits{Columns: []string{}, AddStaff: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("edits got %d: %s", rec.Code, rec.Body.String())
	}
	var edited sessionResp
	if err := json.Unmarshal(rec.Body.Bytes(), &edited); err != nil {
		t.Fatal(err)
	}
	if len(edited.Columns) != 3 || edited.Columns[2] != session.StaffColumn {
		t.Fatalf("bad columns after edit %v", edited.Columns)
	}
	if len(edited.Warnings) != 1 || edited.Warnings[0] != session.WarnNoColumnsSelected {
		t.Fatalf("expected the fallback warning, got %v", edited.Warnings)
	}

	rec = doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{"SplitColumn": "dept"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("export got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		NumFiles int64
		NumRows  int64
		Files    []struct{ Path string }
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.NumFiles != 2 || body.NumRows != 3 {
		t.Fatalf("bad export response %s", rec.Body.String())
	}
	for _, name := range []string{"CS-20240506-131415.xlsx", "EE-20240506-131415.xlsx"} {
		if ok, _ := afero.Exists(fs, filepath.Join("/out", name)); !ok {
			t.Fatalf("%s not written", name)
		}
	}

	rec = do(t, s, http.MethodGet, "/exports", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("exports got %d", rec.Code)
	}
	var history []metastore.ExportRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].SessionID != view.ID || len(history[0].Files) != 2 {
		t.Fatalf("bad history %s", rec.Body.String())
	}
}

func TestExportErrors(t *testing.T) {
	s, _ := testServer(t)
	view := upload(t, s, "depts.csv", deptCSV)

	rec := doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{"SplitColumn": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown split column got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{"SplitColumn": "dept", "OutputDirectory": "/missing"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing directory got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{"SplitColumn": "dept", "Destination": "ftp"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad destination got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing split column got %d", rec.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	s, _ := testServer(t)
	if rec := do(t, s, http.MethodGet, "/sessions/nope", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/sessions/nope", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete got %d", rec.Code)
	}
}

func TestEditsUnknownColumn(t *testing.T) {
	s, _ := testServer(t)
	view := upload(t, s, "depts.csv", deptCSV)
	rec := doJSON(t, s, http.MethodPut, "/sessions/"+view.ID+"/edits", session.Edits{Columns: []string{"nope"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestBadUpload(t *testing.T) {
	s, _ := testServer(t)
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, _ := w.CreateFormFile("file", "depts.xlsx")
	_, _ = part.Write([]byte(deptCSV))
	_ = w.Close()

	rec := do(t, s, http.MethodPost, "/sessions", b.Bytes(), w.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("csv content named .xlsx got %d", rec.Code)
	}
}

func TestCreateSessionFromRowsAndDelete(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/sessions/rows", map[string]any{
		"Name": "api",
		"Rows": []map[string]any{{"dept": "CS", "val": 1}, {"dept": "EE", "val": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionResp
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.NumRows != 2 || strings.Join(view.Columns, ",") != "dept,val" {
		t.Fatalf("bad view %+v", view)
	}

	if rec := do(t, s, http.MethodDelete, "/sessions/"+view.ID, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/sessions/"+view.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete got %d", rec.Code)
	}
}

func TestEditsDuplicateColumns(t *testing.T) {
	s, _ := testServer(t)
	view := upload(t, s, "depts.csv", deptCSV)
	rec := doJSON(t, s, http.MethodPut, "/sessions/"+view.ID+"/edits", session.Edits{Columns: []string{"dept", "dept"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

type brokenStore struct{}

func (brokenStore) WriteFile(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("bucket unreachable")
}

func (brokenStore) Describe() string { return "s3://broken" }

func (brokenStore) Shutdown(context.Context) error { return nil }

func TestExportFailureLogsHandler(t *testing.T) {
	var logs bytes.Buffer
	orig := logger
	logger = zerolog.New(&logs).Hook(gologger.CallerHook{})
	defer func() { logger = orig }()

	s, _ := testServer(t)
	s.NewS3Store = func(string) (datastore.DataStore, error) { return brokenStore{}, nil }
	view := upload(t, s, "depts.csv", deptCSV)

	rec := doJSON(t, s, http.MethodPost, "/sessions/"+view.ID+"/export", map[string]any{"SplitColumn": "dept", "Destination": "s3"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var failure ExportFailure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatal(err)
	}
	if len(failure.WrittenFiles) != 0 || !strings.Contains(failure.Error, "request id") {
		t.Fatalf("bad failure body %s", rec.Body.String())
	}

	found := false
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatal(err)
		}
		if entry["message"] != "error exporting" {
			continue
		}
		found = true
		if caller, _ := entry["caller"].(string); !strings.Contains(caller, "ExportHandler") {
			t.Fatalf("error attributed to %q", caller)
		}
	}
	if !found {
		t.Fatalf("no export error logged: %s", logs.String())
	}
}
