// Package metrics computes backtest performance statistics from a series of
// portfolio snapshots, grounded on
// original_source/include/backtesting/PerformanceMetrics.h and its .cpp.
package metrics

import "math"

// Snapshot is the portfolio's state at a point in time during a backtest.
type Snapshot struct {
	TimestampMs    int64
	PortfolioValue float64
	Cash           float64
	RealizedPnL    float64
	UnrealizedPnL  float64
}

// Results summarizes a backtest's return, risk, and trade statistics.
type Results struct {
	TotalReturn        float64
	TotalReturnDollars float64
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int

	SharpeRatio        float64
	MaxDrawdown        float64
	MaxDrawdownDollars float64

	WinRate      float64
	AverageWin   float64
	AverageLoss  float64
	ProfitFactor float64
	LargestWin   float64
	LargestLoss  float64

	StartTimeMs  int64
	EndTimeMs    int64
	DurationDays float64
}

// defaultRiskFreeRate is the annual risk-free rate used when Calculate's
// caller doesn't have a specific one in mind.
const defaultRiskFreeRate = 0.02

// Calculate derives a full Results from an ordered series of snapshots and
// the capital the backtest started with. An empty snapshot series returns
// a zero Results.
func Calculate(snapshots []Snapshot, initialCapital float64) Results {
	return CalculateWithRiskFreeRate(snapshots, initialCapital, defaultRiskFreeRate)
}

// CalculateWithRiskFreeRate is Calculate with an explicit annual risk-free
// rate, used to compute the Sharpe ratio's excess return.
func CalculateWithRiskFreeRate(snapshots []Snapshot, initialCapital, riskFreeRate float64) Results {
	var results Results
	if len(snapshots) == 0 {
		return results
	}

	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.PortfolioValue
	}

	finalValue := snapshots[len(snapshots)-1].PortfolioValue
	results.TotalReturn = TotalReturn(initialCapital, finalValue)
	results.TotalReturnDollars = finalValue - initialCapital

	results.StartTimeMs = snapshots[0].TimestampMs
	results.EndTimeMs = snapshots[len(snapshots)-1].TimestampMs
	results.DurationDays = float64(results.EndTimeMs-results.StartTimeMs) / (1000.0 * 86400.0)

	returns := periodReturns(values)
	results.SharpeRatio = SharpeRatio(returns, riskFreeRate)
	results.MaxDrawdown = MaxDrawdown(values)

	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > maxDD {
			maxDD = dd
		}
	}
	results.MaxDrawdownDollars = maxDD

	totalWin, totalLoss := 0.0, 0.0
	prevRealized := 0.0
	for _, s := range snapshots {
		change := s.RealizedPnL - prevRealized
		if math.Abs(change) > 0.01 {
			results.TotalTrades++
			if change > 0 {
				results.WinningTrades++
				totalWin += change
				if change > results.LargestWin {
					results.LargestWin = change
				}
			} else {
				results.LosingTrades++
				totalLoss += math.Abs(change)
				if math.Abs(change) > math.Abs(results.LargestLoss) {
					results.LargestLoss = change
				}
			}
		}
		prevRealized = s.RealizedPnL
	}

	results.WinRate = WinRate(results.WinningTrades, results.TotalTrades)
	if results.WinningTrades > 0 {
		results.AverageWin = totalWin / float64(results.WinningTrades)
	}
	if results.LosingTrades > 0 {
		results.AverageLoss = totalLoss / float64(results.LosingTrades)
	}
	if totalLoss > 0 {
		results.ProfitFactor = totalWin / totalLoss
	}

	return results
}

// TotalReturn returns the fractional return from initialValue to finalValue.
func TotalReturn(initialValue, finalValue float64) float64 {
	if initialValue == 0 {
		return 0
	}
	return (finalValue - initialValue) / initialValue
}

// SharpeRatio computes the annualized Sharpe ratio of a daily return
// series against an annual risk-free rate, assuming 252 trading days.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	dailyRiskFree := math.Pow(1.0+riskFreeRate, 1.0/252.0) - 1.0

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRiskFree
	}

	mean := meanOf(excess)
	stdDev := stdDevOf(excess, mean)
	if stdDev == 0 {
		return 0
	}
	return (mean / stdDev) * math.Sqrt(252.0)
}

// MaxDrawdown returns the largest peak-to-trough fractional decline across
// the given value series.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	maxDD := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// WinRate returns winningTrades / totalTrades, or 0 if there were no
// trades.
func WinRate(winningTrades, totalTrades int) float64 {
	if totalTrades == 0 {
		return 0
	}
	return float64(winningTrades) / float64(totalTrades)
}

func periodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		}
	}
	return returns
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
