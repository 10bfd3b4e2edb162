package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"stratlab/internal/types"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig            `json:"app"`
	Server   ServerConfig         `json:"server"`
	Data     DataConfig           `json:"data"`
	Backtest BacktestConfig       `json:"backtest"`
	Strategy types.StrategyConfig `json:"strategy"`
	Logging  LoggingConfig        `json:"logging"`
}

// AppConfig contains basic application configuration
type AppConfig struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Environment     string        `json:"environment"` // "development", "production", "test"
	Timezone        string        `json:"timezone"`
	Debug           bool          `json:"debug"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	EnableCORS      bool          `json:"enable_cors"`
}

// DataConfig contains market data provider configuration
type DataConfig struct {
	// Provider selection
	Provider string `json:"provider"` // "yahoo", "alphavantage", "csv"

	// Directory scanned for <SYMBOL>.csv files by the csv provider
	CSVDirectory string `json:"csv_directory"`

	// Cache
	CacheDirectory string        `json:"cache_directory"`
	CacheTTL       time.Duration `json:"cache_ttl"`
	CacheEnabled   bool          `json:"cache_enabled"`

	// Network
	RequestTimeout time.Duration `json:"request_timeout"`
	RetryAttempts  int           `json:"retry_attempts"`
	RetryDelay     time.Duration `json:"retry_delay"`

	// Alpha Vantage key. Empty means read ALPHA_VANTAGE_KEY from the
	// environment at request time.
	AlphaVantageKey string `json:"alpha_vantage_key"`

	// Default history window when a request omits dates
	DefaultStartDate string `json:"default_start_date"` // YYYY-MM-DD
	DefaultEndDate   string `json:"default_end_date"`   // YYYY-MM-DD

	// Series shorter than this fail validation before simulation
	MinBars int `json:"min_bars"`
}

// BacktestConfig contains backtest execution and output configuration
type BacktestConfig struct {
	ResultsDirectory  string `json:"results_directory"`
	ExportTrades      bool   `json:"export_trades"`
	ExportEquityCurve bool   `json:"export_equity_curve"`
	MaxConcurrentRuns int    `json:"max_concurrent_runs"`
	DefaultStrategy   string `json:"default_strategy"` // "rsi", "macd", "combined"
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level     string `json:"level"`     // "debug", "info", "warn", "error"
	Format    string `json:"format"`    // "json", "text"
	Output    string `json:"output"`    // "stdout", "file", "both"
	Directory string `json:"directory"` // Log file directory

	// File rotation
	MaxSize    int  `json:"max_size"`    // Max MB per file
	MaxBackups int  `json:"max_backups"` // Max number of old files
	MaxAge     int  `json:"max_age"`     // Max days to retain
	Compress   bool `json:"compress"`    // Compress old files
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:            "stratlab",
			Version:         "1.0.0",
			Environment:     "development",
			Timezone:        "UTC",
			Debug:           false,
			ShutdownTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableCORS:      true,
		},
		Data: DataConfig{
			Provider:         "yahoo",
			CSVDirectory:     "./data",
			CacheDirectory:   "./cache",
			CacheTTL:         24 * time.Hour,
			CacheEnabled:     true,
			RequestTimeout:   30 * time.Second,
			RetryAttempts:    3,
			RetryDelay:       1 * time.Second,
			DefaultStartDate: "2015-01-01",
			DefaultEndDate:   "2025-12-31",
			MinBars:          50,
		},
		Backtest: BacktestConfig{
			ResultsDirectory:  "./results",
			ExportTrades:      true,
			ExportEquityCurve: true,
			MaxConcurrentRuns: 4,
			DefaultStrategy:   "combined",
		},
		Strategy: types.DefaultStrategyConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			Directory:  "./logs",
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config if file doesn't exist
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig, configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	// Read file
	data, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal JSON with indentation
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write file
	if err := ioutil.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	// Validate data config
	validProviders := []string{"yahoo", "alphavantage", "csv"}
	providerValid := false
	for _, provider := range validProviders {
		if c.Data.Provider == provider {
			providerValid = true
			break
		}
	}
	if !providerValid {
		return fmt.Errorf("invalid data provider: %s", c.Data.Provider)
	}
	if c.Data.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}
	if c.Data.MinBars <= 0 {
		return fmt.Errorf("min bars must be positive")
	}

	// Validate backtest config
	if c.Backtest.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("max concurrent runs must be positive")
	}

	// Validate strategy config
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("invalid strategy config: %w", err)
	}

	// Validate logging config
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := []string{"json", "text"}
	formatValid := false
	for _, format := range validFormats {
		if c.Logging.Format == format {
			formatValid = true
			break
		}
	}
	if !formatValid {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetEnv returns environment variable with default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool returns boolean environment variable with default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// GetEnvFloat returns float environment variable with default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := parseFloat(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvInt returns integer environment variable with default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := parseInt(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for parsing
func parseFloat(s string) (float64, error) {
	var result float64
	_, err := fmt.Sscanf(s, "%f", &result)
	return result, err
}

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}
