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

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		GradingSvc  *grading.Service
		ResultSvc   *results.Service
		InstanceSvc *instance.Service
		SetupSvc    *setup.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(conf.Server.MaxUploadSize))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf.SecretKey))

	registerGradingAPI(v1, jwt, s.GradingSvc, s.Validate)
	registerResultsAPI(v1, jwt, s.ResultSvc, s.InstanceSvc, s.Validate)
	registerInstanceAPI(v1, jwt, s.InstanceSvc, s.Validate)
	registerSetupAPI(v1, jwt, s.SetupSvc, s.Validate)
}

// Start blocks until the server stops. Startup errors are sent to Errors().
func (s *Server) Start() {
	s.Logger.Info("API listening", core.LogFields{"host": s.Conf.Server.Host})
	if err := s.app.Start(s.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
