package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"stratlab/internal/config"
	"stratlab/internal/data"
	"stratlab/internal/logging"
	"stratlab/internal/runner"
	"stratlab/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	// Application constants
	AppName           = "stratlab"
	AppVersion        = "1.0.0"
	DefaultConfigPath = "./config.json"
)

var (
	// Command line flags
	configPath = flag.String("config", DefaultConfigPath, "Path to configuration file")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
	version    = flag.Bool("version", false, "Show version information")
	help       = flag.Bool("help", false, "Show help information")

	// Global variables
	cfg    *config.Config
	logger *logging.Logger
)

// Application represents the main application
type Application struct {
	ctx    context.Context
	cancel context.CancelFunc

	service *data.Service
	runner  *runner.Runner
	server  *server.Server
}

func init() {
	// Set up command line parsing
	flag.Usage = printUsage

	// Set runtime optimizations
	runtime.GOMAXPROCS(runtime.NumCPU())
}

func main() {
	// Parse command line flags
	flag.Parse()

	// Handle version flag
	if *version {
		printVersion()
		os.Exit(0)
	}

	// Handle help flag
	if *help {
		printUsage()
		os.Exit(0)
	}

	// Initialize application
	app, err := initializeApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Run application
	if err := app.run(); err != nil {
		logger.Fatalf("Application failed: %v", err)
	}

	logger.Info("Application shutdown completed")
}

// initializeApplication initializes the application
func initializeApplication() (*Application, error) {
	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		ctx:    ctx,
		cancel: cancel,
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	// Load configuration
	var err error
	cfg, err = config.LoadConfig(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply environment overrides, then the debug flag
	applyEnvOverrides(cfg)
	if *debugMode {
		cfg.App.Debug = true
		cfg.Logging.Level = "debug"
	}

	// Ensure required directories exist
	if err := ensureDirectories(cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	// Initialize logging
	logger = logging.NewLogger(cfg.Logging)
	logging.InitGlobalLogger(cfg.Logging)

	// Log application startup
	logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": cfg.App.Environment,
		"config_path": *configPath,
		"debug_mode":  cfg.App.Debug,
	}).Info("Starting stratlab service")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Initialize components
	if err := app.initializeComponents(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	// Set up signal handling
	app.setupSignalHandling()

	return app, nil
}

// applyEnvOverrides lets environment variables override file settings
func applyEnvOverrides(cfg *config.Config) {
	cfg.Server.Host = config.GetEnv("STRATLAB_HOST", cfg.Server.Host)
	cfg.Server.Port = config.GetEnvInt("STRATLAB_PORT", cfg.Server.Port)
	cfg.Logging.Level = config.GetEnv("STRATLAB_LOG_LEVEL", cfg.Logging.Level)
	cfg.App.Debug = config.GetEnvBool("STRATLAB_DEBUG", cfg.App.Debug)
	cfg.Data.Provider = config.GetEnv("STRATLAB_DATA_PROVIDER", cfg.Data.Provider)
	cfg.Data.AlphaVantageKey = config.GetEnv("ALPHA_VANTAGE_KEY", cfg.Data.AlphaVantageKey)
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents(cfg *config.Config) error {
	logger.Info("Initializing application components")

	service, err := data.NewService(cfg.Data, logging.CreateDataLogger())
	if err != nil {
		return fmt.Errorf("failed to create data service: %w", err)
	}
	app.service = service

	app.runner = runner.NewRunner(cfg, service, logging.CreateRunnerLogger())
	app.server = server.NewServer(cfg, service, app.runner, logging.CreateServerLogger())

	logger.Info("Components initialized successfully")
	return nil
}

// run starts the HTTP server and blocks until shutdown
func (app *Application) run() error {
	logger.Info("Application initialized successfully")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start()
	}()

	// Wait for a server failure or a shutdown signal
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-app.ctx.Done():
		logger.Info("Shutdown signal received")
	}

	return app.shutdown()
}

// setupSignalHandling sets up signal handling for graceful shutdown
func (app *Application) setupSignalHandling() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("Signal received, initiating shutdown")

		// Cancel context to trigger shutdown
		app.cancel()
	}()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() error {
	logger.Info("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown completed successfully")
	return nil
}

// ensureDirectories ensures required directories exist
func ensureDirectories(cfg *config.Config) error {
	directories := []string{
		cfg.Logging.Directory,
		cfg.Data.CacheDirectory,
		cfg.Backtest.ResultsDirectory,
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// printUsage prints command line usage information
func printUsage() {
	fmt.Printf(`%s - backtesting and signal analysis service

Usage: %s [options]

Options:
`, AppName, os.Args[0])
	flag.PrintDefaults()
	fmt.Printf(`
Examples:
  %s                                    # Run with default config
  %s -config ./myconfig.json            # Run with custom config
  %s -debug                             # Run in debug mode
  %s -version                           # Show version

Environment Variables:
  STRATLAB_HOST            Override server bind host
  STRATLAB_PORT            Override server port
  STRATLAB_LOG_LEVEL       Override log level (debug, info, warn, error)
  STRATLAB_DEBUG           Enable debug mode
  STRATLAB_DATA_PROVIDER   Override market data provider (yahoo, alphavantage, csv)
  ALPHA_VANTAGE_KEY        API key for the Alpha Vantage provider

Configuration:
  A configuration file with default values is created on first run.
  The default configuration file location is: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], DefaultConfigPath)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf(`%s %s

Go Version: %s
GOOS: %s
GOARCH: %s
`, AppName, AppVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
