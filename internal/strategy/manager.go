package strategy

import (
	"sync"

	"trading-core/internal/events"
)

// Manager coordinates multiple running strategies, grounded on
// original_source/include/strategy/StrategyManager.h: it registers
// strategies, routes Quote/Trade/Order/Fill events to every one of them in
// registration order, and controls their start/stop lifecycle.
type Manager struct {
	mu         sync.Mutex
	strategies []Strategy

	bus        *events.Bus
	quoteSubID uint64
	tradeSubID uint64
	orderSubID uint64
	fillSubID  uint64
}

// NewManager builds a Manager subscribed to bus's market data, order, and
// fill categories.
func NewManager(bus *events.Bus) *Manager {
	m := &Manager{bus: bus}
	m.quoteSubID = bus.Subscribe(events.CategoryMarketQuote, m.onQuote)
	m.tradeSubID = bus.Subscribe(events.CategoryMarketTrade, m.onTrade)
	m.orderSubID = bus.Subscribe(events.CategoryOrder, m.onOrder)
	m.fillSubID = bus.Subscribe(events.CategoryFill, m.onFill)
	return m
}

// Close unsubscribes the manager from the bus.
func (m *Manager) Close() {
	m.bus.Unsubscribe(m.quoteSubID)
	m.bus.Unsubscribe(m.tradeSubID)
	m.bus.Unsubscribe(m.orderSubID)
	m.bus.Unsubscribe(m.fillSubID)
}

// Add registers s with the manager. Registration order is preserved as
// dispatch order.
func (m *Manager) Add(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies = append(m.strategies, s)
}

// Remove stops and unregisters the strategy named name, reporting whether
// one was found.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.strategies {
		if s.Name() == name {
			s.Stop()
			m.strategies = append(m.strategies[:i:i], m.strategies[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the strategy named name, or nil if not registered.
func (m *Manager) Get(name string) Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.strategies {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// All returns a snapshot of every registered strategy, in registration
// order.
func (m *Manager) All() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Strategy(nil), m.strategies...)
}

// Count returns the number of registered strategies.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strategies)
}

// StartAll starts every registered strategy.
func (m *Manager) StartAll() {
	for _, s := range m.All() {
		s.Start()
	}
}

// StopAll stops every registered strategy.
func (m *Manager) StopAll() {
	for _, s := range m.All() {
		s.Stop()
	}
}

// Start starts the strategy named name, reporting whether it was found.
func (m *Manager) Start(name string) bool {
	s := m.Get(name)
	if s == nil {
		return false
	}
	s.Start()
	return true
}

// Stop stops the strategy named name, reporting whether it was found.
func (m *Manager) Stop(name string) bool {
	s := m.Get(name)
	if s == nil {
		return false
	}
	s.Stop()
	return true
}

func (m *Manager) onQuote(event events.Event) {
	quote, ok := event.Payload.(events.Quote)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.IsRunning() {
			s.OnQuote(quote)
		}
	}
}

func (m *Manager) onTrade(event events.Event) {
	trade, ok := event.Payload.(events.Trade)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.IsRunning() {
			s.OnTrade(trade)
		}
	}
}

func (m *Manager) onOrder(event events.Event) {
	o, ok := event.Payload.(events.Order)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.IsRunning() {
			s.OnOrder(o)
		}
	}
}

func (m *Manager) onFill(event events.Event) {
	fill, ok := event.Payload.(events.Fill)
	if !ok {
		return
	}
	for _, s := range m.All() {
		if s.IsRunning() {
			s.OnFill(fill)
		}
	}
}
