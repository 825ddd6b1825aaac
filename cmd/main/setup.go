package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stream-operators/src/config"
	"stream-operators/src/data_source/simulated"
	"stream-operators/src/data_source/swim"
	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/metric"
	"stream-operators/src/network"
	"stream-operators/src/operators"
	"stream-operators/src/reasoning"
	"stream-operators/src/router"
	"stream-operators/src/storage"
	"stream-operators/src/synthesis"
	"stream-operators/src/utils"
)

// app holds the wired components shared by every command.
type app struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metric.Metrics
	DB       interfaces.IDatabase
	Journal  *storage.Journal
	Client   *reasoning.Client
	Manager  *operators.Manager
	Runtime  operators.Runtime
	Schedule *utils.MarketScheduler
}

// -----------------------------------------------------------------------------

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if streamType != "" {
		cfg.Stream.Type = streamType
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------

const (
	dbInitRetries = 4
	dbInitBackoff = 500 * time.Millisecond
)

// setupDatabase opens the configured journal backend; nil when storage is off.
func setupDatabase(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(cfg.MConfig, logger.NewLogger(cfg, "Database"))
	if err != nil || db == nil {
		return nil, err
	}
	if err := initializeDatabase(ctx, db, appLogger, dbInitBackoff); err != nil {
		_ = db.Close()
		return nil, err
	}
	appLogger.Info("Journal enabled (%s)", cfg.Storage.DBType)
	return db, nil
}

// initializeDatabase retries schema setup while a freshly started server refuses connections.
func initializeDatabase(ctx context.Context, db interfaces.IDatabase, log *logger.Logger, backoff time.Duration) error {
	return helpers.RetryWithBackoff(ctx, log, "initialize database", dbInitRetries, backoff, db.Initialize)
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *config.Config) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(cfg.MConfig, logger.NewLogger(cfg, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupSubscriber picks the stream backend.
func setupSubscriber(cfg *config.Config) interfaces.ISubscriber {
	switch cfg.Stream.Type {
	case "simulated":
		return simulated.NewSubscriber(cfg.Stream, logger.NewLogger(cfg, "SimulatedSubscriber"))
	default:
		return swim.NewSubscriber(cfg.Stream, logger.NewLogger(cfg, "SwimSubscriber"))
	}
}

// -----------------------------------------------------------------------------

// newApp wires every component. sink receives emissions besides the journal.
func newApp(ctx context.Context, sink interfaces.IEmitter, symbols []string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	appLogger := logger.NewLogger(cfg, cfg.Name)
	metrics := metric.NewMetrics()

	db, err := setupDatabase(ctx, cfg, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	retryDelay := time.Duration(cfg.Reasoning.RetryDelayMs) * time.Millisecond
	reasoner := reasoning.NewOpenAIReasoner(cfg.Reasoning, setupNetwork(cfg), logger.NewLogger(cfg, "OpenAIReasoner"))
	client := reasoning.NewClient(reasoner, logger.NewLogger(cfg, "ReasoningClient"), metrics)
	engine := synthesis.NewEngine(client, cfg.Reasoning.MaxRetries, retryDelay, logger.NewLogger(cfg, "SynthesisEngine"), metrics)

	a := &app{
		Config:   cfg,
		Logger:   appLogger,
		Metrics:  metrics,
		DB:       db,
		Client:   client,
		Schedule: utils.NewMarketScheduler(symbols, logger.NewLogger(cfg, "MarketScheduler")),
	}

	emitter := operators.FanOut{sink}
	if db != nil {
		a.Journal = storage.NewJournal(db, logger.NewLogger(cfg, "Journal"))
		engine.WithRecorder(a.Journal)
		emitter = append(emitter, a.Journal)
	}

	a.Runtime = operators.Runtime{
		Subscriber: setupSubscriber(cfg),
		Client:     client,
		Engine:     engine,
		Emitter:    emitter,
		Clock:      a.Schedule,
		Metrics:    metrics,
		MaxRetries: cfg.Reasoning.MaxRetries,
		RetryDelay: retryDelay,
		Logger:     logger.NewLogger(cfg, "Operators"),
	}
	a.Manager = operators.NewManager(ctx, a.Runtime)
	return a, nil
}

// router builds a command router dispatching through d.
func (a *app) router(d interfaces.IDispatcher) *router.Router {
	delay := time.Duration(a.Config.Reasoning.RetryDelayMs) * time.Millisecond
	return router.NewRouter(a.Client, d, a.Config.Router, delay, logger.NewLogger(a.Config, "Router"))
}

// runJournal flushes the journal until ctx is done; no-op without storage.
func (a *app) runJournal(ctx context.Context) error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Run(ctx)
}

// Close releases the database.
func (a *app) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warning("Failed to close database: %v", err)
		}
	}
}

// stdoutPrinter prints emissions the way the CLI commands do.
func stdoutPrinter() *operators.ConsolePrinter {
	return operators.NewConsolePrinter(os.Stdout)
}
