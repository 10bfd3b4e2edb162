package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stratlab/internal/config"
	"stratlab/internal/data"
	"stratlab/internal/indicators"
	"stratlab/internal/logging"
	"stratlab/internal/runner"
	"stratlab/internal/signals"
	"stratlab/internal/types"
	"stratlab/pkg/simulation"
)

// Server exposes the data, signal, and backtest layers over HTTP
type Server struct {
	app     config.AppConfig
	config  config.ServerConfig
	service *data.Service
	runner  *runner.Runner
	logger  *logging.Logger
	http    *http.Server
}

// NewServer creates the HTTP server
func NewServer(cfg *config.Config, service *data.Service, run *runner.Runner, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.CreateServerLogger()
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		app:     cfg.App,
		config:  cfg.Server,
		service: service,
		runner:  run,
		logger:  logger,
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(s.requestLogger())
	router.Use(gin.Recovery())

	if s.config.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/quote/:ticker", s.handleQuote)
	router.GET("/indicators/:ticker", s.handleIndicators)
	router.GET("/signals/:ticker", s.handleSignals)

	router.POST("/backtest", s.handleBacktest)
	router.POST("/backtest/compare", s.handleBacktestCompare)
	router.POST("/backtest/batch", s.handleBacktestBatch)

	return router
}

// Start binds the listener and serves until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Infof("HTTP server listening on %s", addr)

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requestLogger logs every request with method, path, status and latency
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(started).String(),
		}).Debug("Request handled")
	}
}

// statusForError maps data and validation failures to HTTP statuses
func statusForError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no data"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "no quote"):
		return http.StatusNotFound
	case strings.Contains(msg, "invalid"),
		strings.Contains(msg, "unknown strategy"),
		strings.Contains(msg, "unsupported"),
		strings.Contains(msg, "insufficient data"),
		strings.Contains(msg, "is not before"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error body with the mapped status
func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// handleRoot returns the service banner
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.app.Name,
		"version": s.app.Version,
		"status":  "running",
		"endpoints": []string{
			"/health",
			"/quote/{ticker}",
			"/indicators/{ticker}",
			"/signals/{ticker}",
			"/backtest",
			"/backtest/compare",
			"/backtest/batch",
		},
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.app.Name,
	})
}

// handleQuote returns the latest quote for a ticker
func (s *Server) handleQuote(c *gin.Context) {
	ticker := c.Param("ticker")

	quote, err := s.service.Quote(c.Request.Context(), ticker)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":         quote.Symbol,
		"price":          quote.Price,
		"change":         quote.ChangeAmount(),
		"change_pct":     quote.ChangePct(),
		"open":           quote.Open,
		"high":           quote.High,
		"low":            quote.Low,
		"volume":         quote.Volume,
		"previous_close": quote.PreviousClose,
		"timestamp":      quote.Timestamp.Format(time.RFC3339),
	})
}

// handleIndicators returns the indicator snapshot for a ticker over the
// requested period (default 1y)
func (s *Server) handleIndicators(c *gin.Context) {
	ticker := c.Param("ticker")
	period := c.DefaultQuery("period", "1y")

	bars, err := s.service.BarsForPeriod(c.Request.Context(), ticker, period)
	if err != nil {
		s.writeError(c, err)
		return
	}

	snap := indicators.ComputeSnapshot(ticker, bars)
	if snap == nil {
		s.writeError(c, fmt.Errorf("no data for %s", ticker))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":      ticker,
		"period":      period,
		"indicators":  snap,
		"data_points": snap.DataPoints,
	})
}

// handleSignals scores a ticker and returns the conflict-adjusted
// recommendation. With validate=true the combined strategy is
// backtested over the same series and its results attached.
func (s *Server) handleSignals(c *gin.Context) {
	ticker := c.Param("ticker")
	period := c.DefaultQuery("period", "1y")

	bars, err := s.service.BarsForPeriod(c.Request.Context(), ticker, period)
	if err != nil {
		s.writeError(c, err)
		return
	}

	snap := indicators.ComputeSnapshot(ticker, bars)
	if snap == nil {
		s.writeError(c, fmt.Errorf("no data for %s", ticker))
		return
	}

	technical := signals.ScoreTechnical(snap)
	overall := signals.CombineOverall(technical.Score, nil, nil)
	records := signals.RecordsFromComponents(technical.Components)

	var validation *signals.BacktestValidation
	if c.DefaultQuery("validate", "false") == "true" {
		report, err := s.runner.RunSeries(runner.RunRequest{
			Ticker:   ticker,
			Strategy: string(signals.VariantCombined),
		}, bars)
		if err != nil {
			s.logger.Warnf("Signal validation backtest for %s failed: %v", ticker, err)
		} else {
			validation = &signals.BacktestValidation{
				WinRatePct:      report.TradeStats.WinRatePct,
				SharpeRatio:     report.Performance.SharpeRatio,
				TotalTrades:     report.TradeStats.TotalTrades,
				ConfidenceLevel: report.TradeStats.ConfidenceLevel,
			}
		}
	}

	enhanced := signals.EnhanceScore(overall, records, snap.Volume.VolumeRatio, validation)

	c.JSON(http.StatusOK, gin.H{
		"ticker":          ticker,
		"period":          period,
		"current_price":   snap.CurrentPrice,
		"technical_score": technical,
		"recommendation":  enhanced,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// backtestRequest is the JSON body for /backtest and /backtest/compare
type backtestRequest struct {
	Ticker    string                `json:"ticker"`
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Strategy  string                `json:"strategy"`
	Backend   string                `json:"backend"`
	Config    *types.StrategyConfig `json:"config"`
	Save      bool                  `json:"save_results"`
}

// batchRequest is the JSON body for /backtest/batch
type batchRequest struct {
	Tickers   []string              `json:"tickers"`
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Strategy  string                `json:"strategy"`
	Backend   string                `json:"backend"`
	Config    *types.StrategyConfig `json:"config"`
}

// toRunRequest converts the HTTP body into a runner request
func (r backtestRequest) toRunRequest() runner.RunRequest {
	req := runner.RunRequest{
		Ticker:    r.Ticker,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Strategy:  r.Strategy,
		Backend:   simulation.BackendKind(r.Backend),
		Save:      r.Save,
	}
	if r.Config != nil {
		req.Config = *r.Config
	}
	return req
}

// handleBacktest runs one backtest and returns the full report
func (s *Server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	report, err := s.runner.Run(c.Request.Context(), req.toRunRequest())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleBacktestCompare runs every strategy variant over one series
func (s *Server) handleBacktestCompare(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	comparison, err := s.runner.RunComparison(c.Request.Context(), req.toRunRequest())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// handleBacktestBatch fans one backtest out over a ticker list
func (s *Server) handleBacktestBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Tickers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tickers is required"})
		return
	}

	base := backtestRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Strategy:  req.Strategy,
		Backend:   req.Backend,
		Config:    req.Config,
	}
	items := s.runner.RunBatch(c.Request.Context(), req.Tickers, base.toRunRequest())

	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"count":   len(items),
	})
}
