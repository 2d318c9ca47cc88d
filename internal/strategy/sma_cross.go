package strategy

import (
	"sync"

	"trading-core/internal/events"
	"trading-core/internal/indicators"
	"trading-core/internal/risk"
	"trading-core/pkg/logger"
)

// SMACrossStrategy is a moving-average crossover strategy: it buys on a
// golden cross (fast SMA moves above slow SMA) and sells on a death cross
// (fast SMA moves below slow SMA), grounded on
// original_source/include/strategy/SMAStrategy.h.
type SMACrossStrategy struct {
	BaseStrategy

	symbol     string
	fastPeriod int
	slowPeriod int
	orderSize  float64

	log *logger.Logger

	mu         sync.Mutex
	prices     []float64
	fastSMA    float64
	slowSMA    float64
	haveCross  bool
	lastSignal events.Side
}

// NewSMACrossStrategy builds a strategy trading symbol with the given SMA
// periods and fixed order size.
func NewSMACrossStrategy(name, symbol string, fastPeriod, slowPeriod int, orderSize float64, portfolio *risk.Portfolio, log *logger.Logger) *SMACrossStrategy {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &SMACrossStrategy{
		BaseStrategy: NewBaseStrategy(name, portfolio),
		symbol:       symbol,
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		orderSize:    orderSize,
		log:          log,
		prices:       make([]float64, 0, slowPeriod),
	}
}

// Start resets the price history on a stopped->running transition.
func (s *SMACrossStrategy) Start() {
	if s.StartTransition() {
		s.mu.Lock()
		s.prices = s.prices[:0]
		s.haveCross = false
		s.mu.Unlock()
		s.log.Infof("strategy", "%s started on %s", s.Name(), s.symbol)
	}
}

// Stop is the idempotent counterpart to Start.
func (s *SMACrossStrategy) Stop() {
	if s.StopTransition() {
		s.log.Infof("strategy", "%s stopped", s.Name())
	}
}

// OnTrade feeds the last-traded price into the crossover detector.
func (s *SMACrossStrategy) OnTrade(trade events.Trade) {
	if trade.Symbol != s.symbol {
		return
	}
	s.onPrice(trade.Price, map[string]float64{s.symbol: trade.Price})
}

// OnQuote feeds the quote midpoint into the crossover detector.
func (s *SMACrossStrategy) OnQuote(quote events.Quote) {
	if quote.Symbol != s.symbol {
		return
	}
	mid := (quote.Bid + quote.Ask) / 2
	s.onPrice(mid, map[string]float64{s.symbol: mid})
}

// OnOrder is a no-op: this strategy doesn't track its own order state
// beyond what the shared Portfolio already maintains.
func (s *SMACrossStrategy) OnOrder(events.Order) {}

// OnFill is a no-op for the same reason.
func (s *SMACrossStrategy) OnFill(events.Fill) {}

func (s *SMACrossStrategy) onPrice(price float64, marketPrices map[string]float64) {
	s.mu.Lock()

	s.prices = append(s.prices, price)
	if len(s.prices) > s.slowPeriod {
		s.prices = s.prices[1:]
	}
	if len(s.prices) < s.slowPeriod {
		s.mu.Unlock()
		return
	}

	prevFast, prevSlow := s.fastSMA, s.slowSMA
	hadCross := s.haveCross
	s.fastSMA = indicators.SMA(s.prices, s.fastPeriod)
	s.slowSMA = indicators.SMA(s.prices, s.slowPeriod)
	s.haveCross = true

	var side events.Side
	var cross bool
	if hadCross {
		if prevFast <= prevSlow && s.fastSMA > s.slowSMA {
			side, cross = events.SideBuy, true
		} else if prevFast >= prevSlow && s.fastSMA < s.slowSMA {
			side, cross = events.SideSell, true
		}
	}
	if cross && side == s.lastSignal {
		cross = false
	}
	if cross {
		s.lastSignal = side
	}
	s.mu.Unlock()

	if !cross {
		return
	}

	s.log.Infof("strategy", "%s cross detected: %s %s", s.Name(), side, s.symbol)
	s.SubmitOrder(s.symbol, side, events.OrderTypeMarket, price, s.orderSize, marketPrices)
}
