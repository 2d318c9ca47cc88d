// Package backtest implements the backtest driver, grounded on
// original_source/include/backtesting/Backtester.h and its .cpp: it replays
// historical trades through the event bus against a Portfolio, an in-process
// SimulatedExchange configured for deterministic instant fills, and a set of
// strategies, snapshotting portfolio state after every trade and reducing
// the snapshot series to a metrics.Results report at the end of the run.
package backtest

import (
	"fmt"

	"trading-core/internal/data"
	"trading-core/internal/events"
	"trading-core/internal/exchange"
	"trading-core/internal/risk"
	"trading-core/internal/strategy"
	"trading-core/pkg/config"
	"trading-core/pkg/logger"
	"trading-core/pkg/metrics"
)

// deterministicExchangeConfig mirrors the original engine's constructor,
// which hardcodes zero latency and zero randomness so a backtest run is
// reproducible and instantaneous regardless of the exchange.* keys an
// operator might have set for live trading.
var deterministicExchangeConfig = map[string]string{
	"exchange.fill_latency_ms":   "0",
	"exchange.rejection_rate":    "0",
	"exchange.partial_fill_rate": "0",
	"exchange.slippage_bps":      "0",
	"exchange.instant_fills":     "true",
}

// Backtester replays historical trades through a fresh Portfolio,
// SimulatedExchange, and StrategyManager, and reduces the resulting
// portfolio snapshots into a performance report.
type Backtester struct {
	initialCapital float64

	bus       *events.Bus
	portfolio *risk.Portfolio
	exchange  *exchange.Simulated
	manager   *strategy.Manager
	log       *logger.Logger

	trades  []data.Trade
	hasTime bool
	startMs int64
	endMs   int64
	symbols []string

	snapshots []metrics.Snapshot
}

// New builds a Backtester seeded with initialCapital. log may be nil, in
// which case log output is discarded.
func New(initialCapital float64, log *logger.Logger) *Backtester {
	if log == nil {
		log = logger.NewDiscard()
	}
	b := &Backtester{initialCapital: initialCapital, log: log}
	b.reset()
	return b
}

// AddStrategy registers s to receive market data and order/fill events
// during the run.
func (b *Backtester) AddStrategy(s strategy.Strategy) {
	b.manager.Add(s)
}

// LoadDataFile loads historical trades from a CSV file via internal/data.
func (b *Backtester) LoadDataFile(path string) error {
	trades, err := data.LoadCSV(path)
	if err != nil {
		return fmt.Errorf("load historical data: %w", err)
	}
	b.trades = trades
	return nil
}

// LoadData installs pre-parsed historical trades directly.
func (b *Backtester) LoadData(trades []data.Trade) {
	b.trades = trades
}

// SetTimeRange restricts the replay to trades with TimestampMs in
// [startMs, endMs] inclusive.
func (b *Backtester) SetTimeRange(startMs, endMs int64) {
	b.hasTime = true
	b.startMs = startMs
	b.endMs = endMs
}

// SetSymbols restricts the replay to the given symbols, defaulting to every
// symbol present in the loaded data.
func (b *Backtester) SetSymbols(symbols []string) {
	b.symbols = append([]string(nil), symbols...)
}

// Portfolio exposes the run's Portfolio for inspection after Run returns.
func (b *Backtester) Portfolio() *risk.Portfolio { return b.portfolio }

// Snapshots returns the portfolio snapshot series recorded during the most
// recent run.
func (b *Backtester) Snapshots() []metrics.Snapshot {
	return append([]metrics.Snapshot(nil), b.snapshots...)
}

// Run replays the loaded historical trades and returns the resulting
// performance report. It errors if no data was loaded, no strategies were
// added, or every trade is excluded by the configured filters.
func (b *Backtester) Run() (metrics.Results, error) {
	if len(b.trades) == 0 {
		return metrics.Results{}, fmt.Errorf("backtest: no historical data loaded")
	}
	if b.manager.Count() == 0 {
		return metrics.Results{}, fmt.Errorf("backtest: no strategies added")
	}

	filtered := b.filteredTrades()
	if len(filtered) == 0 {
		return metrics.Results{}, fmt.Errorf("backtest: no data after applying filters")
	}

	b.snapshots = b.snapshots[:0]

	b.exchange.Start()
	b.manager.StartAll()

	b.replay(filtered)

	b.manager.StopAll()
	b.exchange.Stop()

	return metrics.Calculate(b.snapshots, b.initialCapital), nil
}

// Reset discards all run state (snapshots, loaded data, portfolio,
// exchange) so the Backtester can be reused for a fresh run. Registered
// strategies are not retained; AddStrategy must be called again.
func (b *Backtester) Reset() {
	b.reset()
}

func (b *Backtester) reset() {
	if b.bus != nil {
		b.manager.Close()
		b.portfolio.Close()
	}

	b.bus = events.NewBus(b.log)
	b.portfolio = risk.NewWithCapital(b.initialCapital, config.New(nil), b.bus, b.log)
	b.exchange = exchange.New(config.New(deterministicExchangeConfig), b.bus, b.log)
	b.manager = strategy.NewManager(b.bus)

	b.trades = nil
	b.hasTime = false
	b.symbols = nil
	b.snapshots = nil
}

func (b *Backtester) filteredTrades() []data.Trade {
	filtered := b.trades
	if b.hasTime {
		filtered = data.FilterByTimeRange(filtered, b.startMs, b.endMs)
	}
	if len(b.symbols) > 0 {
		var bySymbol []data.Trade
		for _, symbol := range b.symbols {
			bySymbol = append(bySymbol, data.FilterBySymbol(filtered, symbol)...)
		}
		data.SortByTimestamp(bySymbol)
		filtered = bySymbol
	}
	return filtered
}

func (b *Backtester) replay(trades []data.Trade) {
	b.takeSnapshot(trades[0].TimestampMs)

	for _, trade := range trades {
		b.exchange.SetMarketPrice(trade.Symbol, trade.Price)

		b.bus.Publish(events.New(events.CategoryMarketTrade, events.Trade{
			Symbol: trade.Symbol,
			Price:  trade.Price,
			Qty:    float64(trade.Volume),
		}))

		b.takeSnapshot(trade.TimestampMs)
	}
}

func (b *Backtester) takeSnapshot(timestampMs int64) {
	marketPrices := b.exchange.MarketPrices()

	b.snapshots = append(b.snapshots, metrics.Snapshot{
		TimestampMs:    timestampMs,
		PortfolioValue: b.portfolio.PortfolioValue(marketPrices),
		Cash:           b.portfolio.Cash(),
		RealizedPnL:    b.portfolio.RealizedPnL(),
		UnrealizedPnL:  b.portfolio.UnrealizedPnL(marketPrices),
	})
}
