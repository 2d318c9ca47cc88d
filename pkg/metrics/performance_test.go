package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotalReturnAndDrawdown(t *testing.T) {
	snapshots := []Snapshot{
		{TimestampMs: 0, PortfolioValue: 100000, Cash: 100000},
		{TimestampMs: 86400000, PortfolioValue: 110000, Cash: 90000, RealizedPnL: 0},
		{TimestampMs: 172800000, PortfolioValue: 95000, Cash: 90000, RealizedPnL: -5000},
		{TimestampMs: 259200000, PortfolioValue: 120000, Cash: 90000, RealizedPnL: 10000},
	}

	results := Calculate(snapshots, 100000)

	assert.InDelta(t, 0.2, results.TotalReturn, 1e-9)
	assert.Equal(t, 20000.0, results.TotalReturnDollars)

	wantDD := (110000.0 - 95000.0) / 110000.0
	assert.InDelta(t, wantDD, results.MaxDrawdown, 1e-9)
	assert.Equal(t, 15000.0, results.MaxDrawdownDollars)

	assert.Equal(t, 2, results.TotalTrades)
	assert.Equal(t, 1, results.WinningTrades)
	assert.Equal(t, 1, results.LosingTrades)
	assert.Equal(t, 0.5, results.WinRate)
	assert.Equal(t, 10000.0, results.AverageWin)
	assert.Equal(t, 5000.0, results.AverageLoss)
	assert.Equal(t, 2.0, results.ProfitFactor)
	assert.Equal(t, 10000.0, results.LargestWin)
	assert.Equal(t, -5000.0, results.LargestLoss)
	assert.InDelta(t, 3.0, results.DurationDays, 1e-9)
}

func TestCalculateEmptySnapshotsIsZeroValue(t *testing.T) {
	assert.Equal(t, Results{}, Calculate(nil, 100000))
}

func TestCalculateNoTradesReportsZeroRateAndFactor(t *testing.T) {
	snapshots := []Snapshot{
		{TimestampMs: 0, PortfolioValue: 100000},
		{TimestampMs: 1000, PortfolioValue: 101000},
	}
	results := Calculate(snapshots, 100000)
	assert.Equal(t, 0, results.TotalTrades)
	assert.Equal(t, 0.0, results.WinRate)
	assert.Equal(t, 0.0, results.ProfitFactor)
}

func TestTotalReturn(t *testing.T) {
	assert.Equal(t, 0.5, TotalReturn(100, 150))
	assert.Equal(t, 0.0, TotalReturn(0, 150))
}

func TestSharpeRatioRewardsHigherMeanReturn(t *testing.T) {
	// Same dispersion, different means.
	higher := []float64{0.03, -0.01, 0.03, -0.01}
	lower := []float64{0.02, -0.02, 0.02, -0.02}

	higherSharpe := SharpeRatio(higher, 0.02)
	lowerSharpe := SharpeRatio(lower, 0.02)

	assert.Greater(t, higherSharpe, lowerSharpe)
}

func TestSharpeRatioEmptyReturnsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio(nil, 0.02))
}

func TestMaxDrawdownNoDeclineIsZero(t *testing.T) {
	values := []float64{100, 105, 110, 120}
	assert.Equal(t, 0.0, MaxDrawdown(values))
}

func TestMaxDrawdownTracksPeakToTrough(t *testing.T) {
	values := []float64{100, 200, 50, 150}
	want := (200.0 - 50.0) / 200.0
	assert.InDelta(t, want, MaxDrawdown(values), 1e-9)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.75, WinRate(3, 4))
	assert.Equal(t, 0.0, WinRate(0, 0))
}
