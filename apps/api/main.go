package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/vintech/portal/apps/api/echo"
	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/note"
	"github.com/vintech/portal/core/student"
	emailsvc "github.com/vintech/portal/services/email"
	legacysvc "github.com/vintech/portal/services/legacy"
	logsvc "github.com/vintech/portal/services/logger"
	"github.com/vintech/portal/storage/backend"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// remote Data Backend: tables, RPCs and auth
	backendClient := backend.NewClient(conf)
	legacyClient := legacysvc.NewClient(conf)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	identitySvc := identity.NewService(backend.NewIdentityRepo(backendClient), backend.NewAuth(backendClient), mailSvc, conf)
	studentSvc := student.NewService(backend.NewStudentRepo(backendClient))
	feesSvc := fees.NewService(
		backend.NewTransactionRepo(backendClient),
		legacyClient,
		backend.NewAggregates(backendClient),
		logger,
		conf,
	)
	noteSvc := note.NewService(backend.NewNoteRepo(backendClient))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	identity.InitValidators(core.Validate, core.Translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			IdentitySvc: identitySvc,
			StudentSvc:  studentSvc,
			FeesSvc:     feesSvc,
			NoteSvc:     noteSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-sigCh:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	case <-server.ShutdownSignal():
		logger.Info("Start shutdown...")
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
