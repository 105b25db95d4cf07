package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/note"
	"github.com/vintech/portal/core/student"
)

type (
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger

		IdentitySvc *identity.Service
		StudentSvc  *student.Service
		FeesSvc     *fees.Service
		NoteSvc     *note.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		// ShutdownSignal receives a value when an unrecoverable error asks
		// the process to stop.
		ShutdownSignal() <-chan struct{}
		Errors() <-chan error
	}

	server struct {
		deps *ServerDeps
		app  *echo.Echo

		shutdownCh chan struct{}
		errCh      chan error
	}
)

var _ Server = (*server)(nil)

func NewServer(deps *ServerDeps) Server {
	s := &server{
		deps:       deps,
		app:        echo.New(),
		shutdownCh: make(chan struct{}, 1),
		errCh:      make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := configureAuth(conf)

	registerAuthAPI(v1, jwt, s.deps)
	registerUserAPI(v1, jwt, s.deps)
	registerMenuAPI(v1, jwt)
	registerDashboardAPI(v1, jwt, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerFeesAPI(v1, jwt, s.deps)
	registerRevenueAPI(v1, jwt, s.deps)
	registerBranchAPI(v1, jwt, s.deps)
	registerNoteAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ShutdownSignal() <-chan struct{} { return s.shutdownCh }

func (s *server) Errors() <-chan error { return s.errCh }

func (s *server) signalShutdown() {
	select {
	case s.shutdownCh <- struct{}{}:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Vintech Portal API!")
}
