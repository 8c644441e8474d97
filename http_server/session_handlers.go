package http_server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danthegoodman1/tablesplit/session"
	"github.com/danthegoodman1/tablesplit/table"
	"github.com/danthegoodman1/tablesplit/tableio"
)

const previewRows = 5

type (
	RowsReqBody struct {
		Name string `validate:"required"`
		// Optional column order, defaults to the sorted union of row keys
		Columns []string
		Rows    []map[string]any `validate:"required,min=1"`
	}

	SessionView struct {
		ID              string
		SourceName      string
		CreatedAt       time.Time
		UpdatedAt       time.Time
		NumRows         int
		OriginalColumns []string
		Columns         []string
		ColumnTypes     map[string]string
		Preview         []map[string]table.Value
		Edits           session.Edits
		Warnings        []string
		SplitOptions    []string
	}
)

// newSessionView must be called with the session locked.
func newSessionView(s *session.Session) SessionView {
	head := s.Working.Head(previewRows)
	preview := make([]map[string]table.Value, head.NumRows())
	for i := range preview {
		preview[i] = head.RowMap(i)
	}
	return SessionView{
		ID:              s.ID,
		SourceName:      s.SourceName,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		NumRows:         s.Working.NumRows(),
		OriginalColumns: s.Original.Columns(),
		Columns:         s.Working.Columns(),
		ColumnTypes:     table.ColumnTypes(s.Working),
		Preview:         preview,
		Edits:           s.Edits,
		Warnings:        s.Warnings,
		SplitOptions:    session.SplitOptions(s.Working),
	}
}

func (s *HTTPServer) startSession(c *CustomContext, name string, t *table.Table) error {
	sess := session.New(name, t, s.Now())
	s.Sessions.Put(sess)
	c.ReqLogger().Info().Str("sessionID", sess.ID).Str("source", name).Int("rows", t.NumRows()).Int("columns", t.NumColumns()).Msg("created session")

	sess.Lock()
	defer sess.Unlock()
	return c.JSON(http.StatusCreated, newSessionView(sess))
}

func (s *HTTPServer) CreateSessionFromUpload(c *CustomContext) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.String(http.StatusBadRequest, "missing multipart field 'file'")
	}
	f, err := fh.Open()
	if err != nil {
		return c.InternalError(err, "error opening uploaded file")
	}
	defer f.Close()

	t, err := tableio.LoadFile(fh.Filename, f)
	if errors.Is(err, tableio.ErrParse) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error loading uploaded file")
	}

	return s.startSession(c, fh.Filename, t)
}

func (s *HTTPServer) CreateSessionFromRows(c *CustomContext) error {
	var reqBody RowsReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	t, err := tableio.FromJSONRows(reqBody.Columns, reqBody.Rows)
	if errors.Is(err, tableio.ErrParse) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error building table from rows")
	}

	return s.startSession(c, reqBody.Name, t)
}

func (s *HTTPServer) getSession(c *CustomContext) (*session.Session, error) {
	sess, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		return nil, c.String(http.StatusNotFound, err.Error())
	}
	return sess, nil
}

func (s *HTTPServer) GetSession(c *CustomContext) error {
	sess, err := s.getSession(c)
	if sess == nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	return c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *HTTPServer) UpdateEdits(c *CustomContext) error {
	sess, err := s.getSession(c)
	if sess == nil {
		return err
	}

	var edits session.Edits
	if err := ValidateRequest(c, &edits); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	sess.Lock()
	defer sess.Unlock()
	err = sess.ApplyEdits(edits, s.Now())
	if errors.Is(err, table.ErrColumnNotFound) || errors.Is(err, table.ErrDuplicateColumn) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error applying edits")
	}

	for _, w := range sess.Warnings {
		c.ReqLogger().Warn().Str("sessionID", sess.ID).Msg(w)
	}
	return c.JSON(http.StatusOK, newSessionView(sess))
}

func (s *HTTPServer) DeleteSession(c *CustomContext) error {
	if err := s.Sessions.Delete(c.Param("id")); err != nil {
		return c.String(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
