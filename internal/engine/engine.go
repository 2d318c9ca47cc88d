// Package engine is the live-trading composition root: it wires Config →
// Logger → EventBus → Portfolio → StrategyManager → SimulatedExchange →
// the optional order logger, journal, and reporting API into one runnable
// unit. Engine owns lifecycle only; it has no trading logic of its own.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"trading-core/internal/api"
	"trading-core/internal/events"
	"trading-core/internal/exchange"
	"trading-core/internal/journal"
	"trading-core/internal/order"
	"trading-core/internal/orderlog"
	"trading-core/internal/risk"
	"trading-core/internal/strategy"
	"trading-core/pkg/config"
	"trading-core/pkg/logger"
	"trading-core/pkg/runid"
)

// Options configures an Engine before Start. JournalPath and APIAddr are
// optional; the engine runs without a journal or reporting API when they
// are empty.
type Options struct {
	ConfigPath  string
	LogWriter   io.Writer
	LogLevel    logger.Level
	JournalPath string
	APIAddr     string
	JWTSecret   string
	Version     string
}

// Engine owns one run's collaborators and their lifecycle. Construct with
// New, register strategies with AddStrategy, then Start/Stop.
type Engine struct {
	cfg *config.Store
	log *logger.Logger

	Bus       *events.Bus
	Portfolio *risk.Portfolio
	Manager   *strategy.Manager
	Exchange  *exchange.Simulated

	orderLog *orderlog.Logger
	journal  *journal.Journal

	apiServer *api.Server
	httpSrv   *http.Server
	apiAddr   string

	runTag string
}

// New loads config, builds a logger tagged with the machine id, and wires
// the core collaborators. It does not start the exchange or any
// strategies; call Start for that.
func New(opts Options) (*Engine, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	tag, err := runid.Machine()
	if err != nil {
		tag = ""
	}

	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	log := logger.New(w, opts.LogLevel, tag)
	return newWithLogger(cfg, log, opts, tag)
}

func newWithLogger(cfg *config.Store, log *logger.Logger, opts Options, tag string) (*Engine, error) {
	bus := events.NewBus(log)
	pf := risk.New(cfg, bus, log)
	mgr := strategy.NewManager(bus)
	ex := exchange.New(cfg, bus, log)

	e := &Engine{
		cfg:       cfg,
		log:       log,
		Bus:       bus,
		Portfolio: pf,
		Manager:   mgr,
		Exchange:  ex,
		apiAddr:   opts.APIAddr,
		runTag:    tag,
	}

	e.orderLog = orderlog.New(bus, log)

	if opts.JournalPath != "" {
		jrn, err := journal.Open(opts.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		jrn.Start(bus, log)
		e.journal = jrn
	}

	if opts.APIAddr != "" {
		secret := opts.JWTSecret
		if secret == "" {
			secret = cfg.GetString("env.jwt_secret", "")
		}
		if secret == "" {
			return nil, fmt.Errorf("api address set but no JWT secret configured (env.jwt_secret)")
		}
		meta := api.SystemMeta{Version: opts.Version, StartedAt: time.Now(), RunTag: tag}
		e.apiServer = api.NewServer(bus, pf, mgr, ex, e.journal, log, meta, secret)
	}

	return e, nil
}

// AddStrategy registers a strategy with the manager. Call before Start so
// StartAll picks it up.
func (e *Engine) AddStrategy(s strategy.Strategy) {
	e.Manager.Add(s)
}

// Start brings the exchange, every registered strategy, and (if
// configured) the reporting API up. It returns once everything is
// listening; call Stop to tear down.
func (e *Engine) Start() error {
	e.log.Infof("engine", "starting (run=%s)", e.runTag)
	e.Exchange.Start()
	e.Manager.StartAll()
	e.Bus.Publish(events.New(events.CategorySystem, events.System{Kind: events.SystemStarted, Message: "engine started"}))

	if e.apiServer != nil {
		e.httpSrv = &http.Server{Addr: e.apiAddr, Handler: e.apiServer.Handler()}
		go func() {
			if err := e.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				e.log.Errorf("engine", "api server: %v", err)
			}
		}()
		e.log.Infof("engine", "reporting api listening on %s", e.apiAddr)
	}

	return nil
}

// Stop tears the engine down in reverse order: API, strategies, exchange,
// journal, portfolio.
func (e *Engine) Stop() error {
	e.Bus.Publish(events.New(events.CategorySystem, events.System{Kind: events.SystemStopped, Message: "engine stopping"}))

	if e.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.httpSrv.Shutdown(ctx); err != nil {
			e.log.Errorf("engine", "api shutdown: %v", err)
		}
	}

	e.Manager.StopAll()
	e.Exchange.Stop()
	e.Manager.Close()
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.log.Errorf("engine", "journal close: %v", err)
		}
	}
	e.orderLog.Close()
	e.Portfolio.Close()

	e.log.Infof("engine", "stopped")
	return nil
}

// Positions returns every non-flat position the portfolio currently holds.
func (e *Engine) Positions() []*order.Position {
	return e.Portfolio.Orders().GetAllPositions()
}
