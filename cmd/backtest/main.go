// Command backtest replays a historical CSV trade file through the core
// engine's backtest driver and prints the resulting performance report.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"trading-core/internal/backtest"
	"trading-core/internal/strategy"
	"trading-core/pkg/logger"
)

func main() {
	dataPath := flag.String("data", "", "path to a historical trades CSV file (required)")
	capital := flag.Float64("capital", 1000000, "starting capital")
	symbols := flag.String("symbols", "", "comma-separated symbol filter (all symbols if empty)")
	startMs := flag.Int64("start-ms", 0, "start of the replay window in epoch milliseconds")
	endMs := flag.Int64("end-ms", 0, "end of the replay window in epoch milliseconds (0 disables the upper bound)")
	smaSpec := flag.String("sma", "", "SYMBOL:FAST:SLOW:SIZE SMA crossover strategy to run (repeatable via comma separation)")
	verbose := flag.Bool("v", false, "log to stderr at DEBUG instead of discarding")
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "backtest: -data is required")
		os.Exit(1)
	}

	log := logger.NewDiscard()
	if *verbose {
		log = logger.New(os.Stderr, logger.DEBUG, "")
	}

	bt := backtest.New(*capital, log)
	if err := bt.LoadDataFile(*dataPath); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}

	if *symbols != "" {
		bt.SetSymbols(strings.Split(*symbols, ","))
	}
	if *startMs != 0 || *endMs != 0 {
		end := *endMs
		if end == 0 {
			end = math.MaxInt64
		}
		bt.SetTimeRange(*startMs, end)
	}

	if err := addSMAStrategies(bt, *smaSpec); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}

	results, err := bt.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("total return:     %.2f%% (%.2f)\n", results.TotalReturn*100, results.TotalReturnDollars)
	fmt.Printf("sharpe ratio:     %.3f\n", results.SharpeRatio)
	fmt.Printf("max drawdown:     %.2f%% (%.2f)\n", results.MaxDrawdown*100, results.MaxDrawdownDollars)
	fmt.Printf("trades:           %d (win rate %.1f%%, profit factor %.2f)\n", results.TotalTrades, results.WinRate*100, results.ProfitFactor)
	fmt.Printf("duration:         %.1f days\n", results.DurationDays)
}

func addSMAStrategies(bt *backtest.Backtester, specs string) error {
	specs = strings.TrimSpace(specs)
	if specs == "" {
		return nil
	}
	for _, spec := range strings.Split(specs, ",") {
		fields := strings.Split(spec, ":")
		if len(fields) != 4 {
			return fmt.Errorf("invalid -sma entry %q, want SYMBOL:FAST:SLOW:SIZE", spec)
		}
		symbol := fields[0]
		var fast, slow int
		var size float64
		if _, err := fmt.Sscanf(fields[1], "%d", &fast); err != nil {
			return fmt.Errorf("invalid fast period %q: %w", fields[1], err)
		}
		if _, err := fmt.Sscanf(fields[2], "%d", &slow); err != nil {
			return fmt.Errorf("invalid slow period %q: %w", fields[2], err)
		}
		if _, err := fmt.Sscanf(fields[3], "%g", &size); err != nil {
			return fmt.Errorf("invalid order size %q: %w", fields[3], err)
		}
		bt.AddStrategy(strategy.NewSMACrossStrategy(fmt.Sprintf("sma-%s", symbol), symbol, fast, slow, size, bt.Portfolio(), nil))
	}
	return nil
}
