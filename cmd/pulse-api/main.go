// cmd/pulse-api/main.go

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/commentpulse/internal/server"
	"github.com/cognicore/commentpulse/pkg/pulse"
	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/config"
	"github.com/cognicore/commentpulse/pkg/pulse/events"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
	"github.com/cognicore/commentpulse/pkg/pulse/store/memstore"
	"github.com/cognicore/commentpulse/pkg/pulse/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Load stoplist, lexicon and model
	components, err := config.NewLoader(cfg, logger).Load()
	if err != nil {
		log.Fatalf("Failed to load components: %v", err)
	}

	reports, err := initArchive(ctx, cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to open report archive: %v", err)
	}

	var publisher events.Publisher
	if cfg.Events.Enabled {
		natsConn, err := events.Connect(events.ConnConfig{
			URL:            cfg.Events.URL,
			MaxReconnects:  cfg.Events.MaxReconnects,
			ReconnectWait:  cfg.Events.ReconnectWait,
			ConnectTimeout: cfg.Events.ConnectTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
		publisher = events.NewNATSPublisher(natsConn, cfg.Events.SubjectPrefix)
	}

	svc, err := pulse.New(pulse.Options{
		Normalizer:  components.Normalizer,
		Classifier:  components.Classifier,
		Engine:      analytics.NewEngine(components.Stoplist, analytics.DefaultLimits),
		Store:       reports,
		Publisher:   publisher,
		Logger:      logger,
		Workers:     cfg.Limits.NormalizeWorkers,
		MaxComments: cfg.Limits.MaxComments,
	})
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	httpServer := server.NewServer(cfg.Server, svc, logger)

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr()).Str("classifier", cfg.Classifier.Backend).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
}

// initArchive opens the configured report store. A nil store disables
// report history.
func initArchive(ctx context.Context, cfg config.ArchiveConfig) (store.ReportStore, error) {
	switch cfg.Backend {
	case config.ArchiveSQLite:
		return sqlite.OpenSQLite(ctx, cfg.Path)
	case config.ArchiveMemory:
		return memstore.New(), nil
	}
	return nil, nil
}
