// Command engine runs the live (simulated) trading core: it loads config,
// wires the event bus and its collaborators through internal/engine,
// registers the strategies named on the command line, and serves the
// optional reporting API until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trading-core/internal/api"
	"trading-core/internal/engine"
	"trading-core/internal/strategy"
	"trading-core/pkg/logger"
)

const version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	journalPath := flag.String("journal", "", "path to a SQLite journal file (disabled if empty)")
	apiAddr := flag.String("api", "", "address to serve the reporting API on, e.g. :8080 (disabled if empty)")
	jwtSecret := flag.String("jwt-secret", "", "shared secret signing reporting API tokens (falls back to env.jwt_secret)")
	logLevel := flag.String("log-level", "INFO", "DEBUG, INFO, WARNING, ERROR, or CRITICAL")
	smaSpecs := flag.String("sma", "", "comma-separated SYMBOL:FAST:SLOW:SIZE SMA crossover strategies")
	rsiSpecs := flag.String("rsi", "", "comma-separated SYMBOL:PERIOD:OVERSOLD:OVERBOUGHT:SIZE RSI reversion strategies")
	flag.Parse()

	e, err := engine.New(engine.Options{
		ConfigPath:  *configPath,
		LogLevel:    parseLevel(*logLevel),
		JournalPath: *journalPath,
		APIAddr:     *apiAddr,
		JWTSecret:   *jwtSecret,
		Version:     version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}

	if err := registerSMAStrategies(e, *smaSpecs); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	if err := registerRSIStrategies(e, *rsiSpecs); err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}

	if *apiAddr != "" && *jwtSecret != "" {
		token, err := api.IssueToken(*jwtSecret, 24*time.Hour)
		if err == nil {
			fmt.Printf("reporting api operator token (valid 24h): %s\n", token)
		}
	}

	if err := e.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: start: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := e.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "engine: stop: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) logger.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return logger.DEBUG
	case "WARNING":
		return logger.WARNING
	case "ERROR":
		return logger.ERROR
	case "CRITICAL":
		return logger.CRITICAL
	default:
		return logger.INFO
	}
}

// registerSMAStrategies parses specs formatted as
// "SYMBOL:FAST:SLOW:SIZE,SYMBOL:FAST:SLOW:SIZE" and registers one
// SMACrossStrategy per entry.
func registerSMAStrategies(e *engine.Engine, specs string) error {
	for _, spec := range splitSpecs(specs) {
		fields := strings.Split(spec, ":")
		if len(fields) != 4 {
			return fmt.Errorf("invalid -sma entry %q, want SYMBOL:FAST:SLOW:SIZE", spec)
		}
		symbol := fields[0]
		fast, err := parseIntField(fields[1], "fast period")
		if err != nil {
			return err
		}
		slow, err := parseIntField(fields[2], "slow period")
		if err != nil {
			return err
		}
		size, err := parseFloatField(fields[3], "order size")
		if err != nil {
			return err
		}
		name := fmt.Sprintf("sma-%s", symbol)
		e.AddStrategy(strategy.NewSMACrossStrategy(name, symbol, fast, slow, size, e.Portfolio, nil))
	}
	return nil
}

// registerRSIStrategies parses specs formatted as
// "SYMBOL:PERIOD:OVERSOLD:OVERBOUGHT:SIZE,..." and registers one
// RSIReversionStrategy per entry.
func registerRSIStrategies(e *engine.Engine, specs string) error {
	for _, spec := range splitSpecs(specs) {
		fields := strings.Split(spec, ":")
		if len(fields) != 5 {
			return fmt.Errorf("invalid -rsi entry %q, want SYMBOL:PERIOD:OVERSOLD:OVERBOUGHT:SIZE", spec)
		}
		symbol := fields[0]
		period, err := parseIntField(fields[1], "period")
		if err != nil {
			return err
		}
		oversold, err := parseFloatField(fields[2], "oversold threshold")
		if err != nil {
			return err
		}
		overbought, err := parseFloatField(fields[3], "overbought threshold")
		if err != nil {
			return err
		}
		size, err := parseFloatField(fields[4], "order size")
		if err != nil {
			return err
		}
		name := fmt.Sprintf("rsi-%s", symbol)
		e.AddStrategy(strategy.NewRSIReversionStrategy(name, symbol, period, oversold, overbought, size, e.Portfolio, nil))
	}
	return nil
}

func splitSpecs(specs string) []string {
	specs = strings.TrimSpace(specs)
	if specs == "" {
		return nil
	}
	return strings.Split(specs, ",")
}

func parseIntField(s, label string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", label, s, err)
	}
	return v, nil
}

func parseFloatField(s, label string) (float64, error) {
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", label, s, err)
	}
	return v, nil
}
