package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stratlab/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with component tagging and domain event helpers
type Logger struct {
	*logrus.Logger
	component string
}

// Global logger instance
var globalLogger *Logger

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Set formatter
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	// Set output
	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		output = createFileWriter(cfg)
	case "both":
		output = io.MultiWriter(os.Stdout, createFileWriter(cfg))
	default:
		output = os.Stdout
	}

	logger.SetOutput(output)

	return &Logger{
		Logger: logger,
	}
}

// createFileWriter creates a rotating file writer
func createFileWriter(cfg config.LoggingConfig) io.Writer {
	// Ensure log directory exists
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		fmt.Printf("Warning: Failed to create log directory: %v\n", err)
		return os.Stdout
	}

	logFile := filepath.Join(cfg.Directory, "stratlab.log")

	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg config.LoggingConfig) {
	globalLogger = NewLogger(cfg)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Create default logger if not initialized
		globalLogger = NewLogger(config.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
	}
	return globalLogger
}

// NewComponentLogger creates a logger for a specific component
func NewComponentLogger(component string) *Logger {
	baseLogger := GetGlobalLogger()
	return &Logger{
		Logger:    baseLogger.Logger,
		component: component,
	}
}

// entry returns a logrus entry carrying the component tag
func (l *Logger) entry() *logrus.Entry {
	if l.component != "" {
		return l.Logger.WithField("component", l.component)
	}
	return logrus.NewEntry(l.Logger)
}

// Logging methods with component awareness

// Debug logs a debug message
func (l *Logger) Debug(args ...interface{}) {
	l.entry().Debug(args...)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry().Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(args ...interface{}) {
	l.entry().Info(args...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry().Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(args ...interface{}) {
	l.entry().Warn(args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(args ...interface{}) {
	l.entry().Error(args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry().Errorf(format, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(args ...interface{}) {
	l.entry().Fatal(args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.entry().Fatalf(format, args...)
}

// WithFields adds multiple fields to the log entry
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithField adds a single field to the log entry
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithError adds an error field to the log entry
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

// Domain-specific logging methods

// LogTrade logs one completed round-trip from the ledger
func (l *Logger) LogTrade(symbol string, exitReason string, shares, entryPrice, exitPrice, pnlAmount, pnlPct float64) {
	l.WithFields(logrus.Fields{
		"event":       "trade_closed",
		"symbol":      symbol,
		"exit_reason": exitReason,
		"shares":      shares,
		"entry_price": entryPrice,
		"exit_price":  exitPrice,
		"pnl_amount":  pnlAmount,
		"pnl_pct":     pnlPct,
	}).Info("Trade closed")
}

// LogPosition logs a position entry
func (l *Logger) LogPosition(symbol string, shares, entryPrice, stopLoss, takeProfit float64) {
	l.WithFields(logrus.Fields{
		"event":       "position_opened",
		"symbol":      symbol,
		"shares":      shares,
		"entry_price": entryPrice,
		"stop_loss":   stopLoss,
		"take_profit": takeProfit,
	}).Info("Position opened")
}

// LogSignal logs a trading signal evaluation
func (l *Logger) LogSignal(strategy string, symbol string, action string, score float64, reason string) {
	l.WithFields(logrus.Fields{
		"event":    "trading_signal",
		"strategy": strategy,
		"symbol":   symbol,
		"action":   action,
		"score":    score,
		"reason":   reason,
	}).Info("Trading signal generated")
}

// LogBacktest logs the completion of one backtest run
func (l *Logger) LogBacktest(runID string, symbol string, strategy string, trades int, returnPct, sharpe float64, duration time.Duration) {
	l.WithFields(logrus.Fields{
		"event":        "backtest_complete",
		"run_id":       runID,
		"symbol":       symbol,
		"strategy":     strategy,
		"trades":       trades,
		"return_pct":   returnPct,
		"sharpe_ratio": sharpe,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Backtest completed")
}

// LogDataFetch logs a market data retrieval
func (l *Logger) LogDataFetch(source string, symbol string, bars int, fromCache bool) {
	l.WithFields(logrus.Fields{
		"event":      "data_fetch",
		"source":     source,
		"symbol":     symbol,
		"bars":       bars,
		"from_cache": fromCache,
	}).Debug("Market data fetched")
}

// LogPerformance logs performance metrics
func (l *Logger) LogPerformance(totalPnL float64, winRate float64, tradeCount int, sharpeRatio float64) {
	l.WithFields(logrus.Fields{
		"event":        "performance_update",
		"total_pnl":    totalPnL,
		"win_rate":     winRate,
		"trade_count":  tradeCount,
		"sharpe_ratio": sharpeRatio,
	}).Info("Performance metrics updated")
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error, context map[string]interface{}) {
	fields := logrus.Fields{
		"event":     "error",
		"operation": operation,
		"error":     err.Error(),
	}

	// Add context fields
	for k, v := range context {
		fields[k] = v
	}

	l.WithFields(fields).Error("Operation failed")
}

// Global convenience functions

// Debug logs a debug message using the global logger
func Debug(args ...interface{}) {
	GetGlobalLogger().Debug(args...)
}

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...interface{}) {
	GetGlobalLogger().Debugf(format, args...)
}

// Info logs an info message using the global logger
func Info(args ...interface{}) {
	GetGlobalLogger().Info(args...)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().Infof(format, args...)
}

// Warn logs a warning message using the global logger
func Warn(args ...interface{}) {
	GetGlobalLogger().Warn(args...)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	GetGlobalLogger().Warnf(format, args...)
}

// Error logs an error message using the global logger
func Error(args ...interface{}) {
	GetGlobalLogger().Error(args...)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message using the global logger
func Fatalf(format string, args ...interface{}) {
	GetGlobalLogger().Fatalf(format, args...)
}

// CreateEngineLogger creates a logger for the backtest engine
func CreateEngineLogger() *Logger {
	return NewComponentLogger("engine")
}

// CreateDataLogger creates a logger for data operations
func CreateDataLogger() *Logger {
	return NewComponentLogger("data")
}

// CreateServerLogger creates a logger for the HTTP server
func CreateServerLogger() *Logger {
	return NewComponentLogger("server")
}

// CreateRunnerLogger creates a logger for run orchestration
func CreateRunnerLogger() *Logger {
	return NewComponentLogger("runner")
}

// CreateSignalLogger creates a logger for signal evaluation
func CreateSignalLogger() *Logger {
	return NewComponentLogger("signals")
}
