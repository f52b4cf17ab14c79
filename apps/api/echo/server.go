package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/action"
	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool

		Logger     core.Logger
		Translator ut.Translator

		Catalog       catalog.Repository
		PlanSvc       *plan.Service
		TranscriptSvc *transcript.Service
		ReconcileSvc  *reconcile.Service
		Applier       *action.Applier
		ApprovalSvc   *approval.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil) // interface compliance check

func NewServer(opts *Options) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts, "opts"),
	).CheckAndPanic()
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Logger, "Logger"),
		vala.IsNotNil(opts.Catalog, "Catalog"),
		vala.IsNotNil(opts.PlanSvc, "PlanSvc"),
		vala.IsNotNil(opts.TranscriptSvc, "TranscriptSvc"),
		vala.IsNotNil(opts.ReconcileSvc, "ReconcileSvc"),
		vala.IsNotNil(opts.Applier, "Applier"),
		vala.IsNotNil(opts.ApprovalSvc, "ApprovalSvc"),
	).CheckAndPanic()

	s := &server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", actorMiddleware)

	registerReferenceAPI(v1, s.opts.Catalog)
	registerPlanAPI(v1, s.opts.PlanSvc, s.opts.ApprovalSvc)
	registerReconcileAPI(v1, s.opts.PlanSvc, s.opts.ReconcileSvc, s.opts.Applier)
	registerTranscriptAPI(v1, s.opts.PlanSvc, s.opts.TranscriptSvc)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGSTOP:
	default: // already shutting down
	}
}

func (s *server) Start() {
	s.opts.Logger.Info("API listening", "address", s.opts.Address)
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Plan of Study API!")
}
