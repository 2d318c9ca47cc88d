package strategy

import (
	"sync"

	"trading-core/internal/events"
	"trading-core/internal/indicators"
	"trading-core/internal/risk"
	"trading-core/pkg/logger"
)

// RSIReversionStrategy buys when RSI drops below oversoldThreshold and
// sells when RSI rises above overboughtThreshold, grounded on
// cmd/trading-core/internal/strategy/rsi.go's RSIStrategy (period-based
// average gain/loss, oversold/overbought thresholds).
type RSIReversionStrategy struct {
	BaseStrategy

	symbol              string
	period              int
	oversoldThreshold   float64
	overboughtThreshold float64
	orderSize           float64

	log *logger.Logger

	mu         sync.Mutex
	prices     []float64
	rsi        float64
	lastSignal events.Side
	haveSignal bool
}

// NewRSIReversionStrategy builds a strategy trading symbol on RSI
// overbought/oversold reversals.
func NewRSIReversionStrategy(name, symbol string, period int, oversold, overbought, orderSize float64, portfolio *risk.Portfolio, log *logger.Logger) *RSIReversionStrategy {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &RSIReversionStrategy{
		BaseStrategy:        NewBaseStrategy(name, portfolio),
		symbol:              symbol,
		period:              period,
		oversoldThreshold:   oversold,
		overboughtThreshold: overbought,
		orderSize:           orderSize,
		log:                 log,
		prices:              make([]float64, 0, period+1),
	}
}

// Start resets price history on a stopped->running transition.
func (s *RSIReversionStrategy) Start() {
	if s.StartTransition() {
		s.mu.Lock()
		s.prices = s.prices[:0]
		s.haveSignal = false
		s.mu.Unlock()
		s.log.Infof("strategy", "%s started on %s", s.Name(), s.symbol)
	}
}

// Stop is the idempotent counterpart to Start.
func (s *RSIReversionStrategy) Stop() {
	if s.StopTransition() {
		s.log.Infof("strategy", "%s stopped", s.Name())
	}
}

// OnTrade feeds the last-traded price into the RSI calculation.
func (s *RSIReversionStrategy) OnTrade(trade events.Trade) {
	if trade.Symbol != s.symbol {
		return
	}
	s.onPrice(trade.Price, map[string]float64{s.symbol: trade.Price})
}

// OnQuote feeds the quote midpoint into the RSI calculation.
func (s *RSIReversionStrategy) OnQuote(quote events.Quote) {
	if quote.Symbol != s.symbol {
		return
	}
	mid := (quote.Bid + quote.Ask) / 2
	s.onPrice(mid, map[string]float64{s.symbol: mid})
}

// OnOrder is a no-op: shared Portfolio state already tracks order status.
func (s *RSIReversionStrategy) OnOrder(events.Order) {}

// OnFill is a no-op for the same reason.
func (s *RSIReversionStrategy) OnFill(events.Fill) {}

func (s *RSIReversionStrategy) onPrice(price float64, marketPrices map[string]float64) {
	s.mu.Lock()

	s.prices = append(s.prices, price)
	if len(s.prices) > s.period+1 {
		s.prices = s.prices[1:]
	}
	if len(s.prices) < s.period+1 {
		s.mu.Unlock()
		return
	}

	s.rsi = indicators.RSI(s.prices, s.period)

	var side events.Side
	var signal bool
	switch {
	case s.rsi < s.oversoldThreshold:
		side, signal = events.SideBuy, true
	case s.rsi > s.overboughtThreshold:
		side, signal = events.SideSell, true
	}
	if signal && s.haveSignal && side == s.lastSignal {
		signal = false
	}
	if signal {
		s.lastSignal = side
		s.haveSignal = true
	}
	rsi := s.rsi
	s.mu.Unlock()

	if !signal {
		return
	}

	s.log.Infof("strategy", "%s RSI=%.2f triggered %s %s", s.Name(), rsi, side, s.symbol)
	s.SubmitOrder(s.symbol, side, events.OrderTypeMarket, price, s.orderSize, marketPrices)
}
