package strategy

import (
	"testing"

	"trading-core/internal/events"
	"trading-core/internal/risk"
	"trading-core/pkg/config"
	"trading-core/pkg/logger"
)

func newTestPortfolio(t *testing.T) (*events.Bus, *risk.Portfolio) {
	t.Helper()
	bus := events.NewBus(logger.NewDiscard())
	cfg := config.New(nil)
	p := risk.New(cfg, bus, logger.NewDiscard())
	t.Cleanup(p.Close)
	return bus, p
}

func TestSMACrossStrategySubmitsOnGoldenCross(t *testing.T) {
	bus, portfolio := newTestPortfolio(t)
	s := NewSMACrossStrategy("sma1", "AAPL", 2, 4, 10, portfolio, logger.NewDiscard())
	s.Start()

	var orders []events.Order
	bus.Subscribe(events.CategoryOrder, func(e events.Event) {
		orders = append(orders, e.Payload.(events.Order))
	})

	prices := []float64{100, 100, 100, 100, 101, 105, 110}
	for _, p := range prices {
		s.OnTrade(events.Trade{Symbol: "AAPL", Price: p, Qty: 1})
	}

	if len(orders) == 0 {
		t.Fatalf("expected at least one order submitted on golden cross")
	}
	if orders[0].Side != events.SideBuy {
		t.Fatalf("expected BUY on golden cross, got %s", orders[0].Side)
	}
}

func TestSMACrossStrategyIgnoresOtherSymbols(t *testing.T) {
	_, portfolio := newTestPortfolio(t)
	s := NewSMACrossStrategy("sma1", "AAPL", 2, 4, 10, portfolio, logger.NewDiscard())
	s.Start()

	for i := 0; i < 10; i++ {
		s.OnTrade(events.Trade{Symbol: "MSFT", Price: float64(100 + i)})
	}
	if portfolio.Orders().ActiveOrderCount() != 0 {
		t.Fatalf("expected no orders for unrelated symbol")
	}
}

func TestSMACrossStrategyStopIsIdempotent(t *testing.T) {
	_, portfolio := newTestPortfolio(t)
	s := NewSMACrossStrategy("sma1", "AAPL", 2, 4, 10, portfolio, logger.NewDiscard())

	s.Stop()
	if s.IsRunning() {
		t.Fatalf("stopping a never-started strategy should leave it stopped")
	}

	s.Start()
	if !s.IsRunning() {
		t.Fatalf("expected running after Start")
	}
	s.Start()
	if !s.IsRunning() {
		t.Fatalf("double Start should remain running")
	}
}
