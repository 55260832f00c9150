package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the HTTP server with the JSON API, the guide WebSocket and the
answer stream. Metrics and pprof listen on their own ports.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = log.Sync() }()

	// Initialize observability
	otelShutdown, err := server.InitObservability(cfg.Observability, Version, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			log.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if cfg.AI.APIKey == "" {
		log.Warn("No server AI key configured, sessions must select their own")
	}

	// Create server
	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Setup router
	srv.SetRouter(server.SetupRouter(server.RouterDeps{
		Sessions:    srv.Sessions(),
		Enricher:    srv.Enricher(),
		Session:     cfg.Session,
		ServiceName: cfg.Observability.ServiceName,
		Logger:      log,
	}))

	// Sweep idle sessions until shutdown
	go srv.Sessions().Run(ctx, cfg.Session.SweepInterval)

	// Start pprof server (on separate port, not exposed publicly)
	server.StartPprofServer(cfg.Observability.PprofAddr, log)

	httpServer := srv.HTTPServer()

	// Setup graceful shutdown
	done := make(chan bool, 1)
	go server.GracefulShutdown(ctx, httpServer, cfg.Server.ShutdownTimeout, log, done)

	log.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("version", Version))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-done
		return err
	}

	// Wait for graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
	return nil
}
