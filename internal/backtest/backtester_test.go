package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-core/internal/data"
	"trading-core/internal/strategy"
	"trading-core/pkg/logger"
)

func risingThenFallingTrades() []data.Trade {
	prices := []float64{100, 101, 102, 103, 104, 105, 106, 107, 106, 104, 101, 98, 95, 92}
	trades := make([]data.Trade, len(prices))
	for i, p := range prices {
		trades[i] = data.Trade{TimestampMs: int64(i * 1000), Symbol: "AAPL", Price: p, Volume: 10}
	}
	return trades
}

func TestBacktesterRunProducesSnapshotsAndResults(t *testing.T) {
	bt := New(100000, logger.NewDiscard())
	bt.LoadData(risingThenFallingTrades())

	bt.AddStrategy(strategy.NewSMACrossStrategy("sma", "AAPL", 2, 4, 10, bt.Portfolio(), nil))

	results, err := bt.Run()
	require.NoError(t, err)

	snapshots := bt.Snapshots()
	assert.Len(t, snapshots, len(risingThenFallingTrades())+1, "expected one snapshot per trade plus the initial snapshot")
	assert.Equal(t, int64(0), snapshots[0].TimestampMs)
	assert.Equal(t, int64(0), results.StartTimeMs)
}

func TestBacktesterRunErrorsWithoutData(t *testing.T) {
	bt := New(100000, logger.NewDiscard())
	bt.AddStrategy(strategy.NewSMACrossStrategy("sma", "AAPL", 2, 4, 10, bt.Portfolio(), nil))

	_, err := bt.Run()
	assert.Error(t, err)
}

func TestBacktesterRunErrorsWithoutStrategies(t *testing.T) {
	bt := New(100000, logger.NewDiscard())
	bt.LoadData(risingThenFallingTrades())

	_, err := bt.Run()
	assert.Error(t, err)
}

func TestBacktesterSetSymbolsFiltersReplay(t *testing.T) {
	bt := New(100000, logger.NewDiscard())
	trades := risingThenFallingTrades()
	trades = append(trades, data.Trade{TimestampMs: 500, Symbol: "MSFT", Price: 50, Volume: 1})
	bt.LoadData(trades)
	bt.SetSymbols([]string{"AAPL"})

	bt.AddStrategy(strategy.NewSMACrossStrategy("sma", "AAPL", 2, 4, 10, bt.Portfolio(), nil))

	_, err := bt.Run()
	require.NoError(t, err)

	_, ok := bt.exchange.MarketPrice("MSFT")
	assert.False(t, ok, "expected MSFT to be excluded by SetSymbols filter")
}

func TestBacktesterResetAllowsRerun(t *testing.T) {
	bt := New(100000, logger.NewDiscard())
	bt.LoadData(risingThenFallingTrades())
	bt.AddStrategy(strategy.NewSMACrossStrategy("sma", "AAPL", 2, 4, 10, bt.Portfolio(), nil))

	_, err := bt.Run()
	require.NoError(t, err, "first run")

	bt.Reset()
	bt.LoadData(risingThenFallingTrades())
	bt.AddStrategy(strategy.NewSMACrossStrategy("sma", "AAPL", 2, 4, 10, bt.Portfolio(), nil))

	_, err = bt.Run()
	require.NoError(t, err, "second run after Reset")
}
