// Package risk implements the Portfolio collaborator: capital tracking and
// the pre-trade risk gate, grounded on
// original_source/include/risk/Portfolio.h and its .cpp.
package risk

import (
	"sync"

	"trading-core/internal/events"
	"trading-core/internal/order"
	"trading-core/pkg/config"
	"trading-core/pkg/logger"
)

// Portfolio wraps an order.Manager with capital tracking and pre-trade risk
// limits. It is the only collaborator that may reject a submission before
// an Order event ever reaches the bus.
type Portfolio struct {
	mu sync.Mutex

	initialCapital float64
	cash           float64

	maxPositionSize      float64
	maxPortfolioExposure float64

	orders *order.Manager
	bus    *events.Bus
	log    *logger.Logger

	fillSubID uint64
}

// New builds a Portfolio reading portfolio.* keys from cfg and sharing
// bus/log with the rest of the engine.
func New(cfg *config.Store, bus *events.Bus, log *logger.Logger) *Portfolio {
	return NewWithCapital(cfg.GetFloat("portfolio.initial_capital", 1000000), cfg, bus, log)
}

// NewWithCapital builds a Portfolio with an explicit initial capital,
// overriding whatever portfolio.initial_capital is set in cfg — mirroring
// the original engine's two-constructor split.
func NewWithCapital(initialCapital float64, cfg *config.Store, bus *events.Bus, log *logger.Logger) *Portfolio {
	if log == nil {
		log = logger.NewDiscard()
	}
	p := &Portfolio{
		initialCapital:       initialCapital,
		cash:                 initialCapital,
		maxPositionSize:      cfg.GetFloat("portfolio.max_position_size", 1000000),
		maxPortfolioExposure: cfg.GetFloat("portfolio.max_portfolio_exposure", 5000000),
		orders:               order.NewManager(bus, log),
		bus:                  bus,
		log:                  log,
	}
	p.fillSubID = bus.Subscribe(events.CategoryFill, p.onFillEvent)
	return p
}

// Close releases the Portfolio's bus subscriptions.
func (p *Portfolio) Close() {
	p.bus.Unsubscribe(p.fillSubID)
	p.orders.Close()
}

// Orders exposes the underlying order manager for queries (positions,
// active orders, P&L); strategies and reporting code read through it.
func (p *Portfolio) Orders() *order.Manager { return p.orders }

// SubmitOrder runs the pre-trade risk check and, if it passes, submits the
// order through the OrderManager. It returns false without submitting if
// the order would breach a risk limit. A race exists between this check
// and the eventual OrderManager.Submit call: market prices or cash can
// move between the two, so the check is advisory, not a hard guarantee
// (documented design decision, not a bug).
func (p *Portfolio) SubmitOrder(orderID, symbol string, side events.Side, typ events.OrderType, price, qty float64, marketPrices map[string]float64) bool {
	p.mu.Lock()
	ok := p.preTradeRiskCheck(symbol, side, price, qty, marketPrices)
	p.mu.Unlock()

	if !ok {
		p.log.Warnf("risk", "order rejected by pre-trade check: %s %s %.4f @ %.4f", side, symbol, qty, price)
		return false
	}

	p.orders.Submit(orderID, symbol, side, typ, price, qty)
	return true
}

// CancelOrder requests cancellation via the underlying OrderManager.
func (p *Portfolio) CancelOrder(orderID string) {
	p.orders.Cancel(orderID)
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// InitialCapital returns the capital the portfolio was seeded with.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// PortfolioValue returns cash plus unrealized P&L at the given marks.
func (p *Portfolio) PortfolioValue(marketPrices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash + p.orders.TotalUnrealizedPnL(marketPrices)
}

// RealizedPnL returns total realized P&L across all positions.
func (p *Portfolio) RealizedPnL() float64 {
	return p.orders.TotalRealizedPnL()
}

// UnrealizedPnL returns total unrealized P&L across all positions at the
// given marks.
func (p *Portfolio) UnrealizedPnL(marketPrices map[string]float64) float64 {
	return p.orders.TotalUnrealizedPnL(marketPrices)
}

// TotalPnL returns realized plus unrealized P&L at the given marks.
func (p *Portfolio) TotalPnL(marketPrices map[string]float64) float64 {
	return p.RealizedPnL() + p.UnrealizedPnL(marketPrices)
}

// GrossExposure sums the absolute notional value of every position at the
// given marks. Positions without a quoted mark are excluded.
func (p *Portfolio) GrossExposure(marketPrices map[string]float64) float64 {
	exposure := 0.0
	for _, pos := range p.orders.GetAllPositions() {
		if mark, ok := marketPrices[pos.Symbol]; ok {
			exposure += absFloat(pos.Quantity * mark)
		}
	}
	return exposure
}

// NetExposure sums signed notional value (long minus short) across every
// position at the given marks.
func (p *Portfolio) NetExposure(marketPrices map[string]float64) float64 {
	exposure := 0.0
	for _, pos := range p.orders.GetAllPositions() {
		if mark, ok := marketPrices[pos.Symbol]; ok {
			exposure += pos.Quantity * mark
		}
	}
	return exposure
}

// SetMaxPositionSize overrides the per-symbol position notional limit.
func (p *Portfolio) SetMaxPositionSize(max float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxPositionSize = max
}

// MaxPositionSize returns the current per-symbol position notional limit.
func (p *Portfolio) MaxPositionSize() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxPositionSize
}

// SetMaxPortfolioExposure overrides the aggregate gross exposure limit.
func (p *Portfolio) SetMaxPortfolioExposure(max float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxPortfolioExposure = max
}

// MaxPortfolioExposure returns the current aggregate gross exposure limit.
func (p *Portfolio) MaxPortfolioExposure() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxPortfolioExposure
}

// Clear resets cash to initial capital and discards all orders/positions.
// Intended for tests and between backtest runs.
func (p *Portfolio) Clear() {
	p.mu.Lock()
	p.cash = p.initialCapital
	p.mu.Unlock()
	p.orders.Clear()
}

// preTradeRiskCheck rejects a non-positive quantity and then implements the
// three pre-trade gates: cash
// sufficiency for buys, per-symbol position notional, and aggregate gross
// exposure excluding the symbol being traded (since that symbol's
// contribution is about to be replaced by newPositionValue). Caller holds
// p.mu.
func (p *Portfolio) preTradeRiskCheck(symbol string, side events.Side, price, qty float64, marketPrices map[string]float64) bool {
	if qty <= 0 {
		return false
	}

	orderValue := price * qty

	if side == events.SideBuy && orderValue > p.cash {
		return false
	}

	currentQty := 0.0
	if pos := p.orders.GetPosition(symbol); pos != nil {
		currentQty = pos.Quantity
	}
	newQty := currentQty + qty
	if side == events.SideSell {
		newQty = currentQty - qty
	}
	newPositionValue := absFloat(newQty * price)

	if newPositionValue > p.maxPositionSize {
		return false
	}

	currentExposure := 0.0
	for _, pos := range p.orders.GetAllPositions() {
		if pos.Symbol == symbol {
			continue
		}
		if mark, ok := marketPrices[pos.Symbol]; ok {
			currentExposure += absFloat(pos.Quantity * mark)
		}
	}

	newExposure := currentExposure + newPositionValue
	return newExposure <= p.maxPortfolioExposure
}

func (p *Portfolio) onFillEvent(event events.Event) {
	fill, ok := event.Payload.(events.Fill)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tradeValue := fill.Price * fill.Qty
	switch fill.Side {
	case events.SideBuy:
		p.cash -= tradeValue
	case events.SideSell:
		p.cash += tradeValue
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
