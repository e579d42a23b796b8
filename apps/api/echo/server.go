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

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/filestore"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		GroupSvc      group.ServiceInterface
		AssignmentSvc assignment.ServiceInterface
		FeedbackSvc   feedback.ServiceInterface
		ChatSvc       chat.ServiceInterface
		FileStore     filestore.Store
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(metricsMiddleware())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", health)

	// uploads kept on disk are served by the API itself
	if local, ok := s.deps.FileStore.(*filestore.LocalStore); ok && local.BaseURL != "" {
		s.app.Static(local.BaseURL, local.Dir)
	}

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(g, jwt, conf, s.deps.UserSvc, s.deps.Validate)
	registerGroupAPI(g, jwt, s.deps.GroupSvc, s.deps.AssignmentSvc, s.deps.UserSvc, s.deps.Validate)
	registerAssignmentAPI(g, jwt, s.deps.AssignmentSvc, s.deps.UserSvc, s.deps.Validate)
	registerAIAPI(g, jwt, conf, s.deps.FeedbackSvc, s.deps.AssignmentSvc, s.deps.UserSvc)
	registerUploadAPI(g, jwt, conf, s.deps.FileStore)
	registerChatAPI(g, jwt, s.deps.ChatSvc, s.deps.UserSvc, s.deps.Validate)
}

// Start listens on the configured address. Listening errors are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal notifies on SIGINT, SIGTERM, or when a shutdown error is handled.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
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
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
