// Package strategy holds the Strategy interface and StrategyManager fan-out,
// grounded on original_source/include/strategy/Strategy.h and
// StrategyManager.h. Go has no virtual dispatch, so the C++ template-method
// base class becomes a
// BaseStrategy helper that concrete strategies embed for the shared
// plumbing (naming, running flag, order submission through the portfolio)
// while implementing the Strategy interface's hooks themselves.
package strategy

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"trading-core/internal/events"
	"trading-core/internal/order"
	"trading-core/internal/risk"
)

// Strategy is the interface the StrategyManager fans events out to. The
// Manager delivers the event hooks only to strategies whose IsRunning
// reports true; the hooks of SMACrossStrategy and RSIReversionStrategy do
// not check the flag themselves when called directly.
type Strategy interface {
	Name() string
	IsRunning() bool
	Start()
	Stop()
	OnQuote(events.Quote)
	OnTrade(events.Trade)
	OnOrder(events.Order)
	OnFill(events.Fill)
}

// BaseStrategy carries the plumbing every concrete strategy needs: a name,
// a running flag, and order submission routed through the shared
// Portfolio. Concrete strategies embed it and implement the four event
// hooks plus Start/Stop, using StartTransition/StopTransition to get the
// same start-only-if-stopped/stop-only-if-running idempotency the original
// engine's Strategy::start()/stop() provide.
type BaseStrategy struct {
	name      string
	portfolio *risk.Portfolio
	running   atomic.Bool
}

// NewBaseStrategy builds the shared strategy plumbing.
func NewBaseStrategy(name string, portfolio *risk.Portfolio) BaseStrategy {
	return BaseStrategy{name: name, portfolio: portfolio}
}

// Name returns the strategy's registered name.
func (b *BaseStrategy) Name() string { return b.name }

// IsRunning reports whether the strategy is currently active.
func (b *BaseStrategy) IsRunning() bool { return b.running.Load() }

// StartTransition flips the strategy to running and reports whether it was
// previously stopped, so callers only run their one-time startup logic
// once.
func (b *BaseStrategy) StartTransition() bool {
	return b.running.CompareAndSwap(false, true)
}

// StopTransition flips the strategy to stopped and reports whether it was
// previously running.
func (b *BaseStrategy) StopTransition() bool {
	return b.running.CompareAndSwap(true, false)
}

// SubmitOrder generates a fresh order id and submits through the portfolio,
// which runs the pre-trade risk check before the order reaches the bus.
func (b *BaseStrategy) SubmitOrder(symbol string, side events.Side, typ events.OrderType, price, qty float64, marketPrices map[string]float64) bool {
	return b.portfolio.SubmitOrder(b.GenerateOrderID(), symbol, side, typ, price, qty, marketPrices)
}

// CancelOrder requests cancellation of orderID through the portfolio.
func (b *BaseStrategy) CancelOrder(orderID string) {
	b.portfolio.CancelOrder(orderID)
}

// GetPosition returns the strategy's shared view of symbol's position, or
// nil if no position exists.
func (b *BaseStrategy) GetPosition(symbol string) *order.Position {
	return b.portfolio.Orders().GetPosition(symbol)
}

// GenerateOrderID returns a strategy-prefixed, globally unique order id.
func (b *BaseStrategy) GenerateOrderID() string {
	return fmt.Sprintf("%s-%s", b.name, uuid.NewString())
}
