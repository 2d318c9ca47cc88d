package strategy

import (
	"testing"

	"trading-core/internal/events"
	"trading-core/pkg/logger"
)

type recordingStrategy struct {
	BaseStrategy
	quotes int
	trades int
}

func newRecordingStrategy(name string) *recordingStrategy {
	return &recordingStrategy{BaseStrategy: NewBaseStrategy(name, nil)}
}

func (r *recordingStrategy) Start()              { r.StartTransition() }
func (r *recordingStrategy) Stop()                { r.StopTransition() }
func (r *recordingStrategy) OnQuote(events.Quote) { r.quotes++ }
func (r *recordingStrategy) OnTrade(events.Trade) { r.trades++ }
func (r *recordingStrategy) OnOrder(events.Order) {}
func (r *recordingStrategy) OnFill(events.Fill)   {}

func TestManagerRoutesOnlyToRunningStrategies(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus)
	defer mgr.Close()

	running := newRecordingStrategy("running")
	stopped := newRecordingStrategy("stopped")
	mgr.Add(running)
	mgr.Add(stopped)
	running.Start()

	bus.Publish(events.New(events.CategoryMarketQuote, events.Quote{Symbol: "AAPL", Bid: 99, Ask: 101}))
	bus.Publish(events.New(events.CategoryMarketTrade, events.Trade{Symbol: "AAPL", Price: 100}))

	if running.quotes != 1 || running.trades != 1 {
		t.Fatalf("expected running strategy to receive events, got quotes=%d trades=%d", running.quotes, running.trades)
	}
	if stopped.quotes != 0 || stopped.trades != 0 {
		t.Fatalf("expected stopped strategy to receive nothing, got quotes=%d trades=%d", stopped.quotes, stopped.trades)
	}
}

func TestManagerRemove(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus)
	defer mgr.Close()

	mgr.Add(newRecordingStrategy("a"))
	if !mgr.Remove("a") {
		t.Fatalf("expected removal of registered strategy to succeed")
	}
	if mgr.Remove("a") {
		t.Fatalf("expected second removal to report not found")
	}
	if mgr.Count() != 0 {
		t.Fatalf("expected 0 strategies remaining, got %d", mgr.Count())
	}
}
