package http_server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danthegoodman1/tablesplit/datastore"
	"github.com/danthegoodman1/tablesplit/metastore"
	"github.com/danthegoodman1/tablesplit/partitioner"
	"github.com/danthegoodman1/tablesplit/splitter"
	"github.com/danthegoodman1/tablesplit/table"
	"github.com/danthegoodman1/tablesplit/utils"
)

const (
	DestinationDisk = "disk"
	DestinationS3   = "s3"
)

type (
	ExportReqBody struct {
		SplitColumn string `validate:"required"`
		// Directory on disk, or key prefix for s3. Defaults to the server's output directory.
		OutputDirectory *string
		Destination     string `validate:"omitempty,oneof=disk s3"`
	}

	ExportFailure struct {
		Error string
		// Files written before the failure, they are not cleaned up
		WrittenFiles []string
	}
)

func (s *HTTPServer) destination(reqBody ExportReqBody) (datastore.DataStore, error) {
	dir := strings.TrimSpace(utils.Deref(reqBody.OutputDirectory, ""))
	if reqBody.Destination == DestinationS3 {
		return s.NewS3Store(dir)
	}
	if dir == "" {
		dir = s.DefaultOutputDir
	}
	return datastore.NewDiskDataStore(s.Fs, dir), nil
}

func (s *HTTPServer) ExportHandler(c *CustomContext) error {
	sess, err := s.getSession(c)
	if sess == nil {
		return err
	}

	var reqBody ExportReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*60)
	defer cancel()

	ds, err := s.destination(reqBody)
	if errors.Is(err, datastore.ErrNoBucket) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error opening destination")
	}

	sess.Lock()
	defer sess.Unlock()

	stats, err := splitter.Export(ctx, sess.Working, reqBody.SplitColumn, ds, s.Now())
	switch {
	case err == nil:
	case errors.Is(err, table.ErrColumnNotFound), errors.Is(err, partitioner.ErrLabelCollision), errors.Is(err, splitter.ErrNoRows):
		return c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, os.ErrNotExist), errors.Is(err, datastore.ErrNotADirectory):
		return c.String(http.StatusUnprocessableEntity, err.Error())
	default:
		c.logInternalError(1, err, "error exporting")
		return c.JSON(http.StatusInternalServerError, ExportFailure{
			Error:        c.internalErrorMessage(),
			WrittenFiles: utils.ArrayOrEmpty(stats.Paths()),
		})
	}

	rec := metastore.NewExportRecord(sess.ID, sess.SourceName, stats, s.Now())
	if err := s.MetaStore.RecordExport(ctx, rec); err != nil {
		// the files exist either way
		c.ReqLogger().Error().Err(err).Str("exportID", stats.ID).Msg("error recording export")
	}

	return c.JSON(http.StatusCreated, stats)
}

func (s *HTTPServer) ListExports(c *CustomContext) error {
	limit := metastore.DefaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			return c.String(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = l
	}

	records, err := s.MetaStore.ListExports(c.Request().Context(), limit)
	if err != nil {
		return c.InternalError(err, "error listing exports")
	}
	return c.JSON(http.StatusOK, utils.ArrayOrEmpty(records))
}
