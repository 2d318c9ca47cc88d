// Package config is the read-only, string-keyed, dotted-section
// configuration store. Values are flattened from a
// nested YAML document (or built-in defaults when no file is given) into
// dotted keys such as "portfolio.initial_capital", mirroring the original
// engine's section-prefixed key/value table but sourced from YAML instead
// of an ad hoc key=value format. A .env overlay (via godotenv) supplies
// secrets, such as the dashboard's JWT signing key, that don't belong in a
// checked-in YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store is an immutable snapshot of configuration values, keyed by dotted
// path. The core reads it only at construction time, never globally.
type Store struct {
	values map[string]string
}

// Load reads a YAML config file (if path is non-empty and exists) and
// overlays a .env file (if present) for secret keys under env.*. Missing
// files are not an error: the store falls back to the built-in defaults.
func Load(path string) (*Store, error) {
	values := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			var doc map[string]any
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
			flatten("", doc, values)
		}
	}

	if env, err := godotenv.Read(); err == nil {
		for k, v := range env {
			values["env."+strings.ToLower(k)] = v
		}
	}

	return &Store{values: values}, nil
}

// New builds a Store directly from a flat key/value map, useful in tests
// that want to pin exact config without a YAML fixture.
func New(values map[string]string) *Store {
	merged := defaults()
	for k, v := range values {
		merged[k] = v
	}
	return &Store{values: merged}
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		default:
			out[key] = fmt.Sprintf("%v", val)
		}
	}
}

// defaults holds every config key the core consults, including rng_seed
// and max_fills_per_sec for backtest reproducibility and exchange
// throttling.
func defaults() map[string]string {
	return map[string]string{
		"portfolio.initial_capital":        "1000000",
		"portfolio.max_position_size":      "1000000",
		"portfolio.max_portfolio_exposure": "5000000",
		"exchange.fill_latency_ms":         "10",
		"exchange.rejection_rate":          "0.0",
		"exchange.partial_fill_rate":       "0.0",
		"exchange.slippage_bps":            "5.0",
		"exchange.instant_fills":           "false",
		"exchange.rng_seed":                "0",
		"exchange.max_fills_per_sec":       "1000",
		"strategy.sma.fast_period":         "10",
		"strategy.sma.slow_period":         "30",
		"strategy.sma.position_size":       "100",
	}
}

// GetString returns the value at key, or defaultValue if absent.
func (s *Store) GetString(key, defaultValue string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return defaultValue
}

// GetInt returns the integer value at key, or defaultValue if absent or
// unparseable.
func (s *Store) GetInt(key string, defaultValue int) int {
	if v, ok := s.values[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetFloat returns the float64 value at key, or defaultValue if absent or
// unparseable.
func (s *Store) GetFloat(key string, defaultValue float64) float64 {
	if v, ok := s.values[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetBool returns the boolean value at key, or defaultValue if absent or
// unparseable. Accepts true/false/1/0/yes/no/on/off, case-insensitively.
func (s *Store) GetBool(key string, defaultValue bool) bool {
	v, ok := s.values[key]
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// All returns a copy of every key/value pair, for debugging/testing.
func (s *Store) All() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
