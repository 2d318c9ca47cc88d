// Package exchange implements the simulated exchange collaborator: a
// stand-in fill engine that accepts, rejects, and (partially) fills orders
// with configurable latency and slippage, grounded on
// original_source/include/exchange/SimulatedExchange.h. It never matches
// against a real order book — that's explicitly out of scope — it only
// reacts to the Order events OrderManager/Portfolio already publish.
package exchange

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"trading-core/internal/events"
	"trading-core/pkg/cache"
	"trading-core/pkg/config"
	"trading-core/pkg/logger"
)

// Config mirrors the original engine's SimulatedExchange::Config, sourced
// from the exchange.* config keys.
type Config struct {
	FillLatency     time.Duration
	RejectionRate   float64
	PartialFillRate float64
	SlippageBps     float64
	InstantFills    bool
	RNGSeed         int64
	MaxFillsPerSec  float64
}

// ConfigFromStore reads exchange.* keys into a Config.
func ConfigFromStore(cfg *config.Store) Config {
	return Config{
		FillLatency:     time.Duration(cfg.GetInt("exchange.fill_latency_ms", 10)) * time.Millisecond,
		RejectionRate:   cfg.GetFloat("exchange.rejection_rate", 0.0),
		PartialFillRate: cfg.GetFloat("exchange.partial_fill_rate", 0.0),
		SlippageBps:     cfg.GetFloat("exchange.slippage_bps", 5.0),
		InstantFills:    cfg.GetBool("exchange.instant_fills", false),
		RNGSeed:         int64(cfg.GetInt("exchange.rng_seed", 0)),
		MaxFillsPerSec:  cfg.GetFloat("exchange.max_fills_per_sec", 1000),
	}
}

type pendingOrder struct {
	orderID, symbol string
	side            events.Side
	typ             events.OrderType
	price, qty      float64
}

// Simulated is the in-process fill engine. It owns no real connectivity;
// every "venue" behavior (latency, rejection, partial fills, slippage) is a
// local probabilistic model driven by Config.
type Simulated struct {
	mu      sync.Mutex
	cfg     Config
	running bool
	pending map[string]pendingOrder

	bus   *events.Bus
	log   *logger.Logger
	rng   *rand.Rand
	rngMu sync.Mutex

	prices  *cache.MarkCache
	limiter *rate.Limiter

	orderSubID uint64
	wg         sync.WaitGroup
}

// New builds a Simulated exchange reading its Config from cfg. It does not
// subscribe to the bus until Start is called.
func New(cfg *config.Store, bus *events.Bus, log *logger.Logger) *Simulated {
	if log == nil {
		log = logger.NewDiscard()
	}
	c := ConfigFromStore(cfg)
	seed := c.RNGSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{
		cfg:     c,
		pending: make(map[string]pendingOrder),
		bus:     bus,
		log:     log,
		rng:     rand.New(rand.NewSource(seed)),
		prices:  cache.NewMarkCache(),
		limiter: rate.NewLimiter(rate.Limit(c.MaxFillsPerSec), int(c.MaxFillsPerSec)+1),
	}
}

// Start subscribes the exchange to Order events. No-op if already running.
func (e *Simulated) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.orderSubID = e.bus.Subscribe(events.CategoryOrder, e.onOrderEvent)
}

// Stop unsubscribes the exchange and publishes a CANCELLED event for every
// order still pending, so a shut-down exchange never leaves a strategy
// waiting on a fill that will never arrive.
func (e *Simulated) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.bus.Unsubscribe(e.orderSubID)
	orphaned := make([]pendingOrder, 0, len(e.pending))
	for _, o := range e.pending {
		orphaned = append(orphaned, o)
	}
	e.pending = make(map[string]pendingOrder)
	e.mu.Unlock()

	for _, o := range orphaned {
		e.bus.Publish(events.New(events.CategoryOrder, events.Order{
			OrderID: o.orderID,
			Symbol:  o.symbol,
			Side:    o.side,
			Type:    o.typ,
			Status:  events.StatusCancelled,
			Price:   o.price,
			Qty:     o.qty,
		}))
	}

	e.wg.Wait()
}

// IsRunning reports whether the exchange is accepting orders.
func (e *Simulated) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetMarketPrice records symbol's current mark, consulted for market-order
// slippage and by callers computing exposure/unrealized P&L.
func (e *Simulated) SetMarketPrice(symbol string, price float64) {
	e.prices.Set(symbol, price)
}

// MarketPrice returns the last price recorded for symbol.
func (e *Simulated) MarketPrice(symbol string) (float64, bool) {
	return e.prices.Get(symbol)
}

// MarketPrices returns a snapshot of every recorded mark, suitable for
// Portfolio.PortfolioValue / GrossExposure calls.
func (e *Simulated) MarketPrices() map[string]float64 {
	return e.prices.GetAll()
}

func (e *Simulated) onOrderEvent(event events.Event) {
	o, ok := event.Payload.(events.Order)
	if !ok {
		return
	}
	switch o.Status {
	case events.StatusPendingNew:
		e.submitOrder(o.OrderID, o.Symbol, o.Side, o.Type, o.Price, o.Qty)
	case events.StatusPendingCancel:
		e.cancelOrder(o.OrderID)
	}
}

func (e *Simulated) submitOrder(orderID, symbol string, side events.Side, typ events.OrderType, price, qty float64) {
	if e.shouldReject() {
		e.bus.Publish(events.New(events.CategoryOrder, events.Order{
			OrderID:      orderID,
			Symbol:       symbol,
			Side:         side,
			Type:         typ,
			Status:       events.StatusRejected,
			Price:        price,
			Qty:          qty,
			RejectReason: "exchange rejected order",
		}))
		return
	}

	e.bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID: orderID,
		Symbol:  symbol,
		Side:    side,
		Type:    typ,
		Status:  events.StatusNew,
		Price:   price,
		Qty:     qty,
	}))

	e.mu.Lock()
	e.pending[orderID] = pendingOrder{orderID: orderID, symbol: symbol, side: side, typ: typ, price: price, qty: qty}
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}

	if e.cfg.InstantFills {
		e.processFill(orderID, symbol, side, typ, price, qty)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		time.Sleep(e.cfg.FillLatency)
		if e.IsRunning() {
			e.processFill(orderID, symbol, side, typ, price, qty)
		}
	}()
}

func (e *Simulated) cancelOrder(orderID string) {
	e.mu.Lock()
	o, ok := e.pending[orderID]
	if ok {
		delete(e.pending, orderID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	e.bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID: o.orderID,
		Symbol:  o.symbol,
		Side:    o.side,
		Type:    o.typ,
		Status:  events.StatusCancelled,
		Price:   o.price,
		Qty:     o.qty,
	}))
}

// activeAndPending reports whether the exchange is still running and
// orderID hasn't been cancelled or orphaned by Stop out from under this
// fill. Checked immediately before every externally visible publish in
// processFill, not just once at entry, since Stop can run concurrently
// with a delayed fill at any point in this sequence.
func (e *Simulated) activeAndPending(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return false
	}
	_, ok := e.pending[orderID]
	return ok
}

// claimPending atomically checks orderID is still pending and removes it,
// reporting whether this call won the race to finalize it. Stop racing
// the same order sees it already gone and skips publishing CANCELLED.
func (e *Simulated) claimPending(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return false
	}
	if _, ok := e.pending[orderID]; !ok {
		return false
	}
	delete(e.pending, orderID)
	return true
}

func (e *Simulated) processFill(orderID, symbol string, side events.Side, typ events.OrderType, price, qty float64) {
	if err := e.limiter.Wait(context.Background()); err != nil {
		return
	}

	if !e.activeAndPending(orderID) {
		return
	}

	fillPrice := price
	if typ == events.OrderTypeMarket {
		fillPrice = e.applySlippage(symbol, side, price)
	}

	fillQty := qty
	if e.shouldPartialFill() {
		u := 0.5 + e.random()*0.4
		fillQty = math.Floor(qty * u)
		if fillQty < 1 {
			fillQty = 1
		}
	}

	if !e.activeAndPending(orderID) {
		return
	}
	e.bus.Publish(events.New(events.CategoryFill, events.Fill{
		OrderID: orderID,
		Symbol:  symbol,
		Side:    side,
		Price:   fillPrice,
		Qty:     fillQty,
		ExecID:  uuid.NewString(),
	}))

	if fillQty < qty {
		if !e.activeAndPending(orderID) {
			return
		}
		e.bus.Publish(events.New(events.CategoryOrder, events.Order{
			OrderID:   orderID,
			Symbol:    symbol,
			Side:      side,
			Type:      typ,
			Status:    events.StatusPartiallyFilled,
			Price:     price,
			Qty:       qty,
			FilledQty: fillQty,
		}))

		remaining := qty - fillQty
		if !e.activeAndPending(orderID) {
			return
		}
		e.bus.Publish(events.New(events.CategoryFill, events.Fill{
			OrderID: orderID,
			Symbol:  symbol,
			Side:    side,
			Price:   fillPrice,
			Qty:     remaining,
			ExecID:  uuid.NewString(),
		}))
	}

	if !e.claimPending(orderID) {
		return
	}

	e.bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID:   orderID,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Status:    events.StatusFilled,
		Price:     price,
		Qty:       qty,
		FilledQty: qty,
	}))
}

func (e *Simulated) shouldReject() bool {
	if e.cfg.RejectionRate <= 0 {
		return false
	}
	return e.random() < e.cfg.RejectionRate
}

func (e *Simulated) shouldPartialFill() bool {
	if e.cfg.PartialFillRate <= 0 {
		return false
	}
	return e.random() < e.cfg.PartialFillRate
}

func (e *Simulated) applySlippage(symbol string, side events.Side, price float64) float64 {
	basePrice := price
	if mark, ok := e.prices.Get(symbol); ok {
		basePrice = mark
	}

	factor := e.cfg.SlippageBps / 10000.0
	if side == events.SideBuy {
		return basePrice * (1.0 + factor)
	}
	return basePrice * (1.0 - factor)
}

func (e *Simulated) random() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}
