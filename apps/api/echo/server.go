package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		PaperSvc   *paper.Service
		GradingSvc *grading.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		logger:   deps.Logger,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.app.HideBanner = true
	s.app.Debug = deps.Conf.Debug
	s.app.Validator = &appValidator{validate: deps.Validate}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)

	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit("2M"))
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.AllowOrigins,
		// browsers reject credentials with a wildcard origin
		AllowCredentials: !hasWildcard(s.conf.Server.AllowOrigins),
	}))
	s.app.Use(identityMiddleware(s.conf))

	api := s.app.Group("/api")
	api.GET("/ping", s.ping)
	registerPaperAPI(api, deps.PaperSvc, deps.GradingSvc)

	registerAuthAPI(s.app.Group("/auth"), s.conf)
}

// Start blocks while serving. Errors other than a normal shutdown are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) ping(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": s.conf.PingMessage})
}

// appValidator plugs go-playground/validator into echo.Context.Validate.
type appValidator struct {
	validate *validator.Validate
}

func (v *appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func hasWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
