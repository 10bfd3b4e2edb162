package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"stratlab/internal/logging"
	"stratlab/internal/types"
)

// csvColumns are the required columns, in parse order. The first column
// also accepts "timestamp" as its header.
var csvColumns = []string{"date", "open", "high", "low", "close", "volume"}

// CSVProvider serves daily bars from local CSV files named
// <SYMBOL>.csv. It never reaches the network, which makes it the
// offline path for reproducible runs.
type CSVProvider struct {
	directory string
	logger    *logging.Logger
}

// NewCSVProvider creates a provider reading from the given directory
func NewCSVProvider(directory string, logger *logging.Logger) *CSVProvider {
	if logger == nil {
		logger = logging.CreateDataLogger()
	}

	return &CSVProvider{
		directory: directory,
		logger:    logger,
	}
}

// Name identifies the provider in logs and errors
func (p *CSVProvider) Name() string {
	return "csv"
}

// FetchDailyBars loads the symbol file and returns bars inside the date
// range, sorted chronologically
func (p *CSVProvider) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbol = NormalizeSymbol(symbol)

	file, path, err := p.openSymbolFile(symbol)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	bars, err := p.readBars(file, path, start, end)
	if err != nil {
		return nil, err
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no data for %s in range %s", symbol, FormatDateRange(start, end))
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	p.logger.LogDataFetch("csv", symbol, len(bars), false)
	return bars, nil
}

// FetchQuote synthesizes a quote from the most recent bar on file
func (p *CSVProvider) FetchQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	end := time.Now()
	start := end.AddDate(-1, 0, 0)

	bars, err := p.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	last := bars[len(bars)-1]
	quote := &types.Quote{
		Symbol:    NormalizeSymbol(symbol),
		Price:     last.Close,
		Open:      last.Open,
		High:      last.High,
		Low:       last.Low,
		Volume:    last.Volume,
		Timestamp: last.Date,
	}
	if len(bars) > 1 {
		quote.PreviousClose = bars[len(bars)-2].Close
	}

	return quote, nil
}

// openSymbolFile tries the common filename casings for a symbol
func (p *CSVProvider) openSymbolFile(symbol string) (*os.File, string, error) {
	candidates := []string{
		filepath.Join(p.directory, symbol+".csv"),
		filepath.Join(p.directory, strings.ToLower(symbol)+".csv"),
	}

	for _, path := range candidates {
		file, err := os.Open(path)
		if err == nil {
			return file, path, nil
		}
	}

	return nil, "", fmt.Errorf("CSV file not found for symbol %s (tried: %v)", symbol, candidates)
}

// readBars parses the CSV stream, skipping malformed rows with a
// warning and filtering to the requested range
func (p *CSVProvider) readBars(file io.Reader, path string, start, end time.Time) ([]types.PriceBar, error) {
	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header in %s: %w", path, err)
	}
	if !validHeader(header) {
		return nil, fmt.Errorf("invalid CSV header in %s, required columns: %v", path, csvColumns)
	}

	var bars []types.PriceBar
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record at line %d: %w", line, err)
		}
		line++

		if len(record) < len(csvColumns) {
			continue
		}

		bar, err := parseBarRecord(record)
		if err != nil {
			p.logger.Warnf("Skipping line %d of %s: %v", line, path, err)
			continue
		}

		if !bar.Date.Before(start) && !bar.Date.After(end) {
			bars = append(bars, bar)
		}
	}

	return bars, nil
}

// validHeader checks the required columns are present
func validHeader(header []string) bool {
	if len(header) < len(csvColumns) {
		return false
	}

	names := make(map[string]bool, len(header))
	for _, h := range header {
		names[strings.ToLower(strings.TrimSpace(h))] = true
	}
	if names["timestamp"] {
		names["date"] = true
	}

	for _, col := range csvColumns {
		if !names[col] {
			return false
		}
	}
	return true
}

// parseBarRecord parses one CSV row into a bar
func parseBarRecord(record []string) (types.PriceBar, error) {
	date, err := ParseDateString(strings.TrimSpace(record[0]))
	if err != nil {
		return types.PriceBar{}, err
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return types.PriceBar{}, fmt.Errorf("invalid %s value: %s", csvColumns[i+1], record[i+1])
		}
		values[i] = v
	}

	bar := types.NewPriceBar(date, values[0], values[1], values[2], values[3], values[4])
	if !bar.IsValid() {
		return types.PriceBar{}, fmt.Errorf("invalid OHLC relationships: O=%.2f H=%.2f L=%.2f C=%.2f",
			bar.Open, bar.High, bar.Low, bar.Close)
	}

	return bar, nil
}
