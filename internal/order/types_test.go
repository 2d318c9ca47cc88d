package order

import (
	"testing"

	"trading-core/internal/events"
)

func TestOrderApplyFillWeightsAveragePrice(t *testing.T) {
	o := NewOrder("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)

	o.ApplyFill(4, 100)
	if o.Status != events.StatusPartiallyFilled {
		t.Fatalf("expected PARTIALLY_FILLED, got %s", o.Status)
	}
	if o.AverageFillPrice != 100 {
		t.Fatalf("expected avg 100, got %v", o.AverageFillPrice)
	}

	o.ApplyFill(6, 110)
	if o.Status != events.StatusFilled {
		t.Fatalf("expected FILLED, got %s", o.Status)
	}
	want := (100.0*4 + 110.0*6) / 10.0
	if o.AverageFillPrice != want {
		t.Fatalf("expected avg %v, got %v", want, o.AverageFillPrice)
	}
}

func TestOrderIsActiveIsTerminal(t *testing.T) {
	o := NewOrder("o1", "AAPL", events.SideBuy, events.OrderTypeLimit, 100, 10)
	if !o.IsActive() || o.IsTerminal() {
		t.Fatalf("pending_new order should be active, not terminal")
	}

	o.UpdateFromStatus(events.StatusCancelled, 0, "")
	if o.IsActive() || !o.IsTerminal() {
		t.Fatalf("cancelled order should be terminal, not active")
	}
}

func TestPositionApplyFillOpeningAndClosing(t *testing.T) {
	p := NewPosition("AAPL")

	p.ApplyFill(events.SideBuy, 10, 100)
	if p.Quantity != 10 || p.AveragePrice != 100 {
		t.Fatalf("unexpected opening state: %+v", p)
	}

	p.ApplyFill(events.SideBuy, 10, 120)
	if p.Quantity != 20 {
		t.Fatalf("expected qty 20, got %v", p.Quantity)
	}
	wantAvg := (100.0*10 + 120.0*10) / 20.0
	if p.AveragePrice != wantAvg {
		t.Fatalf("expected avg %v, got %v", wantAvg, p.AveragePrice)
	}

	p.ApplyFill(events.SideSell, 5, 150)
	if p.Quantity != 15 {
		t.Fatalf("expected qty 15 after partial close, got %v", p.Quantity)
	}
	wantRealized := 5 * (150 - wantAvg)
	if p.RealizedPnL != wantRealized {
		t.Fatalf("expected realized %v, got %v", wantRealized, p.RealizedPnL)
	}
}

func TestPositionApplyFillFlipsSide(t *testing.T) {
	p := NewPosition("AAPL")
	p.ApplyFill(events.SideBuy, 10, 100)

	p.ApplyFill(events.SideSell, 15, 90)
	if p.Quantity != -5 {
		t.Fatalf("expected flipped short qty -5, got %v", p.Quantity)
	}
	if p.AveragePrice != 90 {
		t.Fatalf("expected flip to adopt fill price 90, got %v", p.AveragePrice)
	}
	wantRealized := 10.0 * (90 - 100)
	if p.RealizedPnL != wantRealized {
		t.Fatalf("expected realized %v, got %v", wantRealized, p.RealizedPnL)
	}
}

func TestPositionUnrealizedPnLFlatIsZero(t *testing.T) {
	p := NewPosition("AAPL")
	if p.UnrealizedPnL(150) != 0 {
		t.Fatalf("flat position should have zero unrealized P&L")
	}
}
