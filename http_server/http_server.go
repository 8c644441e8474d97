package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danthegoodman1/tablesplit/datastore"
	"github.com/danthegoodman1/tablesplit/gologger"
	"github.com/danthegoodman1/tablesplit/metastore"
	"github.com/danthegoodman1/tablesplit/session"
	"github.com/danthegoodman1/tablesplit/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type (
	HTTPServer struct {
		Echo *echo.Echo

		Sessions  *session.Store
		MetaStore metastore.MetaStore
		// Fs backs disk exports
		Fs               afero.Fs
		DefaultOutputDir string
		// NewS3Store opens the S3 destination for a key prefix
		NewS3Store func(prefix string) (datastore.DataStore, error)
		Now        func() time.Time
	}

	Options struct {
		Sessions         *session.Store
		MetaStore        metastore.MetaStore
		Fs               afero.Fs
		DefaultOutputDir string
		MaxUploadBytes   int64
	}
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewHTTPServer builds the API without listening, see Start.
func NewHTTPServer(opts Options) *HTTPServer {
	s := &HTTPServer{
		Echo:             echo.New(),
		Sessions:         opts.Sessions,
		MetaStore:        opts.MetaStore,
		Fs:               opts.Fs,
		DefaultOutputDir: opts.DefaultOutputDir,
		NewS3Store: func(prefix string) (datastore.DataStore, error) {
			return datastore.NewS3DataStore(prefix)
		},
		Now: time.Now,
	}
	if s.Sessions == nil {
		s.Sessions = session.NewStore(0)
	}
	if s.MetaStore == nil {
		s.MetaStore = metastore.NewMemoryMetaStore()
	}
	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}
	if s.DefaultOutputDir == "" {
		s.DefaultOutputDir = utils.HomeDirOrDefault(".")
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &utils.NoEscapeJSONSerializer{}

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	if opts.MaxUploadBytes > 0 {
		s.Echo.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (opts.MaxUploadBytes+1023)/1024)))
	}
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)

	sessionsGroup := s.Echo.Group("/sessions")
	sessionsGroup.POST("", ccHandler(s.CreateSessionFromUpload))
	sessionsGroup.POST("/rows", ccHandler(s.CreateSessionFromRows))
	sessionsGroup.GET("/:id", ccHandler(s.GetSession))
	sessionsGroup.PUT("/:id/edits", ccHandler(s.UpdateEdits))
	sessionsGroup.POST("/:id/export", ccHandler(s.ExportHandler))
	sessionsGroup.DELETE("/:id", ccHandler(s.DeleteSession))

	s.Echo.GET("/exports", ccHandler(s.ListExports))

	return s
}

// Start listens on HTTP_PORT and serves h2c in the background.
func (s *HTTPServer) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", utils.HTTP_PORT))
	if err != nil {
		return fmt.Errorf("error creating tcp listener: %w", err)
	}
	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start h2c server, exiting")
		}
	}()
	return nil
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		// Log otherwise
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req recived")
		return nil
	}
}
