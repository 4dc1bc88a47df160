package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/internal/infrastructure/observability"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/handlers"
	"github.com/playarena/chat-sync/internal/interfaces/httpserver/routes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine and the local HTTP bridge",
	Long: `Connects to the chat service, keeps the directory and open conversation in
sync and, unless CHAT_SYNC_BRIDGE_ENABLED=false, serves the HTTP bridge on
CHAT_SYNC_PORT until interrupted.`,
	RunE: runServe,
}

// Application holds the main application components.
type Application struct {
	cfg        *config.Config
	controller *chatsync.Controller
	httpServer *httpserver.HTTPServer
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	cfg *config.Config,
	controller *chatsync.Controller,
	httpServer *httpserver.HTTPServer,
	log zerolog.Logger,
) *Application {
	return &Application{
		cfg:        cfg,
		controller: controller,
		httpServer: httpServer,
		log:        log,
	}
}

// Start runs the engine and the bridge until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	a.controller.Start(ctx)
	defer a.controller.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.BridgeEnabled {
		g.Go(func() error {
			return a.httpServer.Run(gctx)
		})
	} else {
		a.log.Info().Msg("HTTP bridge disabled")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, err := buildApplication(cfg, log)
	if err != nil {
		return err
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("api", cfg.APIBaseURL).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		return err
	}

	log.Info().Msg("application exited cleanly")
	return nil
}

// buildApplication wires the application the same way CreateApplication does.
func buildApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	controller, err := newController(cfg, log)
	if err != nil {
		return nil, err
	}
	service := ProvideService(controller)
	routeProvider := routes.NewProvider(handlers.NewProvider(service))
	httpServer := httpserver.New(cfg, log, service, routeProvider)
	return NewApplication(cfg, controller, httpServer, log), nil
}
