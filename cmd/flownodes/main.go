package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mshogin/flownodes/internal/application/services"
	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
	"github.com/mshogin/flownodes/internal/infrastructure/logging"
	"github.com/mshogin/flownodes/internal/infrastructure/metrics"
	"github.com/mshogin/flownodes/internal/infrastructure/providers"
	"github.com/mshogin/flownodes/internal/infrastructure/staging"
	"github.com/mshogin/flownodes/internal/infrastructure/status"
	"github.com/mshogin/flownodes/internal/presentation/api"
)

func main() {
	// Parse CLI flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	host := flag.String("host", "", "Server host (overrides config)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Apply CLI overrides
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}
	logging.SetDefaultLogger(logger)

	env, err := config.LoadEnvironment()
	if err != nil {
		logger.Fatal("failed to read environment", err)
	}

	area := staging.NewArea(cfg.Staging.Dir, "flownodes", cfg.Staging.Suffix)
	board := status.NewBoard()
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter("flownodes")
	exporter.RegisterCollector(collector)

	nodes := buildNodes(cfg, env, area, board, collector, logger)

	handler := api.NewHandler(nodes, board, exporter, env, logger)

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", map[string]interface{}{"addr": addr, "nodes": len(nodes)})
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server error", err)

	case sig := <-shutdown:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
			if err := server.Close(); err != nil {
				logger.Error("failed to close server", err)
			}
		}

		if err := area.Cleanup(); err != nil {
			logger.Warn("staging cleanup failed", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("server stopped")
	}
}

func newLogger(cfg config.LoggingConfig) (*logging.StructuredLogger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	switch cfg.Output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output: %w", err)
		}
		out = f
	}
	return logging.NewStructuredLogger(out, level), nil
}

func buildNodes(
	cfg *config.Config,
	env *config.Environment,
	area *staging.Area,
	board *status.Board,
	collector *metrics.Collector,
	logger *logging.StructuredLogger,
) []api.Node {
	workspaces := services.NewDispatcher(providers.NewConversationFactory(cfg.Services.Conversation, nil))
	ingestor := services.NewPayloadIngestor(area)
	analyzers := providers.NewNLUFactory(cfg.Services.NLU, nil)

	nodes := make([]api.Node, 0, len(cfg.Nodes))
	for _, nodeCfg := range cfg.Nodes {
		deps := services.Dependencies{
			Status:  board,
			Metrics: collector,
			Logger:  logger,
		}

		switch nodeCfg.Type {
		case config.NodeTypeWorkspaceManager:
			deps.Bound, _ = env.BoundCredentials(config.ServiceConversation)
			nodes = append(nodes, services.NewWorkspaceManager(nodeCfg, ingestor, workspaces, deps))
		case config.NodeTypeNLU:
			deps.Bound, _ = env.BoundCredentials(config.ServiceNLU)
			nodes = append(nodes, services.NewFeatureExtractor(nodeCfg, analyzers, deps))
		}

		board.SetStatus(nodeCfg.ID, models.StatusIdle())
		logger.Info("initialized node", map[string]interface{}{"node_id": nodeCfg.ID, "type": nodeCfg.Type})
	}
	return nodes
}
