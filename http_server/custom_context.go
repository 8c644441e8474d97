package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		reqLogger := logger.With().Str("reqID", reqID).Logger()
		ctx = reqLogger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

// logInternalError attributes the line to the handler skip frames above it:
// 1 when the handler calls it directly.
func (c *CustomContext) logInternalError(skip int, err error, msg string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(skip).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(skip).Err(err).Msg(msg)
	}
}

func (c *CustomContext) InternalError(err error, msg string) error {
	c.logInternalError(2, err, msg)
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// ReqLogger is the request scoped logger carrying the request ID.
func (c *CustomContext) ReqLogger() *zerolog.Logger {
	return zerolog.Ctx(c.Request().Context())
}
