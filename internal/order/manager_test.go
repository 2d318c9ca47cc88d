package order

import (
	"testing"

	"trading-core/internal/events"
	"trading-core/pkg/logger"
)

func TestManagerSubmitPublishesPendingNew(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus, logger.NewDiscard())
	defer mgr.Close()

	var got events.Order
	bus.Subscribe(events.CategoryOrder, func(e events.Event) {
		got = e.Payload.(events.Order)
	})

	mgr.Submit("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)

	if got.Status != events.StatusPendingNew {
		t.Fatalf("expected PENDING_NEW event, got %s", got.Status)
	}
	if mgr.GetOrder("o1") == nil {
		t.Fatalf("expected order to be tracked")
	}
}

func TestManagerRejectsDuplicateOrderID(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus, logger.NewDiscard())
	defer mgr.Close()

	mgr.Submit("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)

	var last events.Order
	bus.Subscribe(events.CategoryOrder, func(e events.Event) {
		last = e.Payload.(events.Order)
	})
	mgr.Submit("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)

	if last.Status != events.StatusRejected {
		t.Fatalf("expected REJECTED for duplicate id, got %s", last.Status)
	}
	if last.RejectReason != "duplicate order id" {
		t.Fatalf("unexpected reject reason: %q", last.RejectReason)
	}
}

func TestManagerFillUpdatesOrderAndPosition(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus, logger.NewDiscard())
	defer mgr.Close()

	mgr.Submit("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)
	bus.Publish(events.New(events.CategoryFill, events.Fill{
		OrderID: "o1", Symbol: "AAPL", Side: events.SideBuy, Price: 100, Qty: 10, ExecID: "e1",
	}))

	o := mgr.GetOrder("o1")
	if o.Status != events.StatusFilled {
		t.Fatalf("expected FILLED, got %s", o.Status)
	}

	pos := mgr.GetPosition("AAPL")
	if pos == nil || pos.Quantity != 10 {
		t.Fatalf("expected position qty 10, got %+v", pos)
	}
	if mgr.ActiveOrderCount() != 0 {
		t.Fatalf("expected 0 active orders after full fill, got %d", mgr.ActiveOrderCount())
	}
}

func TestManagerCancelIgnoresUnknownOrTerminalOrder(t *testing.T) {
	bus := events.NewBus(logger.NewDiscard())
	mgr := NewManager(bus, logger.NewDiscard())
	defer mgr.Close()

	calls := 0
	bus.Subscribe(events.CategoryOrder, func(e events.Event) { calls++ })

	mgr.Cancel("nonexistent")
	if calls != 0 {
		t.Fatalf("expected no event published for unknown order id")
	}

	mgr.Submit("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)
	bus.Publish(events.New(events.CategoryFill, events.Fill{
		OrderID: "o1", Symbol: "AAPL", Side: events.SideBuy, Price: 100, Qty: 10, ExecID: "e1",
	}))
	calls = 0

	mgr.Cancel("o1")
	if calls != 0 {
		t.Fatalf("expected no event published for a filled order")
	}
}
