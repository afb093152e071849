package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
)

type (
	Deps struct {
		GradingSvc *grading.Service
		Translator ut.Translator
		Logger     core.Logger
	}

	Server struct {
		*http.Server
		app      *echo.Echo
		deps     *Deps
		shutdown chan os.Signal
		errors   chan error
	}
)

var _ http.Handler = (*Server)(nil) // interface compliance check

func NewServer(conf *core.Config, deps *Deps) *Server {
	app := echo.New()
	s := &Server{
		Server: &http.Server{
			Addr:         conf.Server.Address(),
			Handler:      app,
			ReadTimeout:  conf.Server.ReadTimeout,
			WriteTimeout: conf.Server.WriteTimeout,
		},
		app:      app,
		deps:     deps,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup(conf)
	return s
}

func (s *Server) setup(conf *core.Config) {
	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Logger.SetLevel(log.INFO)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit("2M"))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerGradingAPI(v1, s.deps.GradingSvc)
}

// Start listens until the Server is shut down; errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.StartServer(s.Server); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Notas API!")
}
