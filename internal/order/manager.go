package order

import (
	"sync"

	"trading-core/internal/events"
	"trading-core/pkg/logger"
)

// Manager is the central system for order and position bookkeeping,
// grounded on original_source/src/order/OrderManager.cpp.
// The only events it publishes are Submit's PENDING_NEW (or duplicate-id
// REJECTED) and Cancel's PENDING_CANCEL; otherwise it only reacts to Order
// and Fill events already on the bus,
// so it stays consistent regardless of who produced them (a strategy, the
// simulated exchange, or a test harness).
type Manager struct {
	mu        sync.Mutex
	orders    map[string]*Order
	positions map[string]*Position

	bus        *events.Bus
	orderSubID uint64
	fillSubID  uint64
	log        *logger.Logger
}

// NewManager builds a Manager and subscribes it to the bus's Order and Fill
// categories. Call Close to unsubscribe.
func NewManager(bus *events.Bus, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDiscard()
	}
	m := &Manager{
		orders:    make(map[string]*Order),
		positions: make(map[string]*Position),
		bus:       bus,
		log:       log,
	}
	m.orderSubID = bus.Subscribe(events.CategoryOrder, m.onOrderEvent)
	m.fillSubID = bus.Subscribe(events.CategoryFill, m.onFillEvent)
	return m
}

// Close unsubscribes the manager from the bus.
func (m *Manager) Close() {
	m.bus.Unsubscribe(m.orderSubID)
	m.bus.Unsubscribe(m.fillSubID)
}

// Submit creates a new order and publishes its PENDING_NEW event. If
// orderID collides with an order already on file, the order is rejected
// synthetically instead of overwriting the earlier record, since two live
// orders can never legitimately share an id.
func (m *Manager) Submit(orderID, symbol string, side events.Side, typ events.OrderType, price, qty float64) {
	m.mu.Lock()
	if _, exists := m.orders[orderID]; exists {
		m.mu.Unlock()
		m.log.Warnf("order", "duplicate order id %s rejected", orderID)
		m.bus.Publish(events.New(events.CategoryOrder, events.Order{
			OrderID:      orderID,
			Symbol:       symbol,
			Side:         side,
			Type:         typ,
			Status:       events.StatusRejected,
			Price:        price,
			Qty:          qty,
			RejectReason: "duplicate order id",
		}))
		return
	}
	o := NewOrder(orderID, symbol, side, typ, price, qty)
	m.orders[orderID] = o
	m.mu.Unlock()

	m.bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID: o.OrderID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Type:    o.Type,
		Status:  o.Status,
		Price:   o.LimitPrice,
		Qty:     o.Quantity,
	}))
}

// Cancel requests cancellation of orderID, publishing a PENDING_CANCEL
// event if the order is on file and still active. Unknown or already
// terminal orders are silently ignored.
func (m *Manager) Cancel(orderID string) {
	m.mu.Lock()
	o, ok := m.orders[orderID]
	if !ok || !o.IsActive() {
		m.mu.Unlock()
		return
	}
	snapshot := events.Order{
		OrderID: o.OrderID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Type:    o.Type,
		Status:  events.StatusPendingCancel,
		Price:   o.LimitPrice,
		Qty:     o.Quantity,
	}
	m.mu.Unlock()

	m.bus.Publish(events.New(events.CategoryOrder, snapshot))
}

// GetOrder returns the order with orderID, or nil if unknown.
func (m *Manager) GetOrder(orderID string) *Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID]
}

// GetActiveOrders returns every order not yet in a terminal state.
func (m *Manager) GetActiveOrders() []*Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*Order
	for _, o := range m.orders {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	return active
}

// GetActiveOrdersForSymbol returns active orders restricted to symbol.
func (m *Manager) GetActiveOrdersForSymbol(symbol string) []*Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*Order
	for _, o := range m.orders {
		if o.IsActive() && o.Symbol == symbol {
			active = append(active, o)
		}
	}
	return active
}

// GetPosition returns the position for symbol, or nil if none has formed.
func (m *Manager) GetPosition(symbol string) *Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[symbol]
}

// GetAllPositions returns every non-flat position.
func (m *Manager) GetAllPositions() []*Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Position
	for _, p := range m.positions {
		if !p.IsFlat() {
			result = append(result, p)
		}
	}
	return result
}

// TotalRealizedPnL sums realized P&L across every position.
func (m *Manager) TotalRealizedPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, p := range m.positions {
		total += p.RealizedPnL
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L across every position, using
// marketPrices for marks. A symbol missing from marketPrices contributes
// zero rather than erroring.
func (m *Manager) TotalUnrealizedPnL(marketPrices map[string]float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for symbol, p := range m.positions {
		if mark, ok := marketPrices[symbol]; ok {
			total += p.UnrealizedPnL(mark)
		}
	}
	return total
}

// ActiveOrderCount returns the number of orders not yet terminal.
func (m *Manager) ActiveOrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, o := range m.orders {
		if o.IsActive() {
			count++
		}
	}
	return count
}

// Clear discards all tracked orders and positions. Intended for tests.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]*Order)
	m.positions = make(map[string]*Position)
}

func (m *Manager) onOrderEvent(event events.Event) {
	payload, ok := event.Payload.(events.Order)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, exists := m.orders[payload.OrderID]
	if !exists {
		o = NewOrder(payload.OrderID, payload.Symbol, payload.Side, payload.Type, payload.Price, payload.Qty)
		m.orders[payload.OrderID] = o
	}
	o.UpdateFromStatus(payload.Status, payload.FilledQty, payload.RejectReason)
}

func (m *Manager) onFillEvent(event events.Event) {
	payload, ok := event.Payload.(events.Fill)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if o, exists := m.orders[payload.OrderID]; exists {
		o.ApplyFill(payload.Qty, payload.Price)
	}

	p, exists := m.positions[payload.Symbol]
	if !exists {
		p = NewPosition(payload.Symbol)
		m.positions[payload.Symbol] = p
	}
	p.ApplyFill(payload.Side, payload.Qty, payload.Price)
}
