// Package main implements the entry point for the UberSpatchBoard
// application. UberSpatchBoard tails IRC rescue-channel traffic, parses
// ratsignals, dispatch commands, jump calls and status reports, and
// maintains a live board of rescue cases served over HTTP and WebSocket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/targodan/UberSpatchBoard/config"
	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/gateway"
	"github.com/targodan/UberSpatchBoard/ingest"
	"github.com/targodan/UberSpatchBoard/marshal"
	"github.com/targodan/UberSpatchBoard/metric"
	"github.com/targodan/UberSpatchBoard/parse"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "uberspatchboard"
)

// retentionSweepInterval is how often closed cases past their retention
// window are evicted from the board.
const retentionSweepInterval = time.Minute

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load configuration, writing the defaults when none exists yet
	cfg, err := config.LoadOrCreate(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The CLI level overrides the config file level
	level := cliCfg.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger := setupLogger(level, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting UberSpatchBoard",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	board, err := assembleBoard(cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble board: %w", err)
	}

	// Run application with signal handling
	return runWithSignalHandling(ctx, cfg, board, cliCfg.ShutdownTimeout)
}

// initializeCLI parses and validates flags
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// board bundles the wired application components for startup and
// ordered shutdown.
type board struct {
	caseManager  *data.CaseManager
	consumer     *ingest.Consumer
	sources      []ingest.Source
	gateway      *gateway.Gateway
	metricServer *metric.Server
}

// assembleBoard wires the case manager, parser, handler, ingestion
// pipeline and serving surfaces from the configuration.
func assembleBoard(cfg *config.Config, logger *slog.Logger) (*board, error) {
	registry := metric.NewRegistry()

	caseManager := data.NewCaseManager()

	handler := parse.NewDefaultHandler(logger)
	handler.RegisterCaseManager(caseManager)

	parser := parse.NewParser(logger)
	parser.RegisterHandler(handler)

	consumer := ingest.NewConsumer(ingest.ConsumerDeps{
		Parser:          parser,
		QueueCapacity:   cfg.QueueCapacity,
		MetricsRegistry: registry,
		Logger:          logger,
	})
	if err := consumer.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize consumer: %w", err)
	}

	sources, err := buildSources(cfg.Sources, logger)
	if err != nil {
		return nil, err
	}

	b := &board{
		caseManager: caseManager,
		consumer:    consumer,
		sources:     sources,
	}

	if cfg.Gateway.Enabled {
		b.gateway = gateway.New(gateway.Deps{
			Addr:        cfg.Gateway.Listen,
			CaseManager: caseManager,
			Logger:      logger,
		})
		if err := b.gateway.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize gateway: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		b.metricServer = metric.NewServer(cfg.Metrics.Listen, "/metrics", registry)
	}

	return b, nil
}

// buildSources constructs one ingestion source per configured entry.
func buildSources(configs []config.SourceConfig, logger *slog.Logger) ([]ingest.Source, error) {
	sources := make([]ingest.Source, 0, len(configs))
	for i, sc := range configs {
		switch sc.Type {
		case config.SourceFile:
			sources = append(sources, ingest.NewFileSource(ingest.FileDeps{
				Path:       sc.Path,
				Channel:    sc.Channel,
				Marshaller: marshal.NewHexchat(),
				Logger:     logger,
			}))
		case config.SourceNATS:
			sources = append(sources, ingest.NewNATSSource(ingest.NATSDeps{
				URL:        sc.URL,
				Subject:    sc.Subject,
				Channel:    sc.Channel,
				Marshaller: marshal.NewHexchat(),
				Logger:     logger,
			}))
		default:
			return nil, fmt.Errorf("source %d: unknown type %q", i, sc.Type)
		}
	}
	return sources, nil
}

// runWithSignalHandling starts the board and handles shutdown signals
func runWithSignalHandling(ctx context.Context, cfg *config.Config, b *board, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if b.metricServer != nil {
		go func() {
			if err := b.metricServer.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	if err := b.consumer.Start(signalCtx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	for _, src := range b.sources {
		if err := b.consumer.AddSource(src); err != nil {
			return fmt.Errorf("add source %s: %w", src.Name(), err)
		}
		slog.Info("Source attached", "source", src.Name())
	}

	if b.gateway != nil {
		if err := b.gateway.Start(signalCtx); err != nil {
			return fmt.Errorf("start gateway: %w", err)
		}
		slog.Info("Gateway listening", "address", b.gateway.Address())
	}

	sweepDone := make(chan struct{})
	go sweepClosedCases(signalCtx, b.caseManager, cfg.CaseRetention.Std(), sweepDone)

	slog.Info("UberSpatchBoard started", "sources", len(b.sources))

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")
	<-sweepDone

	if err := shutdown(b, shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("UberSpatchBoard shutdown complete")
	return nil
}

// sweepClosedCases periodically evicts closed cases older than the
// retention window.
func sweepClosedCases(ctx context.Context, cm *data.CaseManager, retention time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := cm.RemoveClosedBefore(time.Now().Add(-retention)); removed > 0 {
				slog.Debug("Evicted closed cases", "count", removed)
			}
		}
	}
}

// shutdown stops the board components in reverse start order
func shutdown(b *board, timeout time.Duration) error {
	var firstErr error

	if err := b.consumer.Stop(timeout); err != nil {
		slog.Error("Error stopping consumer", "error", err)
		firstErr = err
	}

	if b.gateway != nil {
		if err := b.gateway.Stop(timeout); err != nil {
			slog.Error("Error stopping gateway", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if b.metricServer != nil {
		if err := b.metricServer.Stop(); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}
