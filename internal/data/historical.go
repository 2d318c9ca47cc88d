// Package data implements the historical data collaborator: a finite
// ordered sequence of (timestamp_ms, symbol, price, volume) tuples, loaded
// from CSV and replayed in timestamp order. Grounded on
// original_source/include/backtesting/HistoricalDataLoader.h.
package data

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Trade is one historical print: a timestamp, symbol, price, and volume.
type Trade struct {
	TimestampMs int64
	Symbol      string
	Price       float64
	Volume      int64
}

// LoadCSV reads trade data from a CSV file in timestamp,symbol,price,volume
// format, skipping blank lines, '#'-prefixed comments, and a header row
// (detected by the presence of "timestamp" or "symbol" in the first
// non-comment line). The result is sorted by timestamp ascending.
func LoadCSV(path string) ([]Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open historical data file: %w", err)
	}
	defer f.Close()

	var trades []Trade
	firstLine := true
	lineNumber := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if firstLine {
			firstLine = false
			lower := strings.ToLower(line)
			if strings.Contains(lower, "timestamp") || strings.Contains(lower, "symbol") {
				continue
			}
		}

		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid CSV format at line %d: want 4 fields, got %d", lineNumber, len(fields))
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp %q: %w", lineNumber, fields[0], err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q: %w", lineNumber, fields[2], err)
		}
		volume, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid volume %q: %w", lineNumber, fields[3], err)
		}

		trades = append(trades, Trade{
			TimestampMs: ts,
			Symbol:      strings.TrimSpace(fields[1]),
			Price:       price,
			Volume:      volume,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read historical data file: %w", err)
	}

	SortByTimestamp(trades)
	return trades, nil
}

// FilterBySymbol returns the subset of trades matching symbol.
func FilterBySymbol(trades []Trade, symbol string) []Trade {
	filtered := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.Symbol == symbol {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// FilterByTimeRange returns the subset of trades with timestamps in
// [startMs, endMs] inclusive.
func FilterByTimeRange(trades []Trade, startMs, endMs int64) []Trade {
	filtered := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.TimestampMs >= startMs && t.TimestampMs <= endMs {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// SortByTimestamp sorts trades ascending by timestamp in place.
func SortByTimestamp(trades []Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].TimestampMs < trades[j].TimestampMs
	})
}
