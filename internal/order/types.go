// Package order holds the Order and Position accounting entities and the
// OrderManager that materialises them from the event stream. These are
// pure data with behavior: they are mutated only in response to events,
// never reached into directly by a strategy.
package order

import (
	"time"

	"trading-core/internal/events"
)

// Order is the in-memory record of a single order's lifecycle.
type Order struct {
	OrderID          string
	Symbol           string
	Side             events.Side
	Type             events.OrderType
	Status           events.OrderStatus
	LimitPrice       float64
	Quantity         float64
	FilledQuantity   float64
	AverageFillPrice float64
	RejectReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder builds an Order in PENDING_NEW, mirroring the original engine's
// Order constructor (original_source/include/order/Order.h).
func NewOrder(orderID, symbol string, side events.Side, typ events.OrderType, price, qty float64) *Order {
	now := time.Now()
	return &Order{
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Type:       typ,
		Status:     events.StatusPendingNew,
		LimitPrice: price,
		Quantity:   qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive reports whether the order is still in an active lifecycle state.
func (o *Order) IsActive() bool { return o.Status.IsActive() }

// IsTerminal reports whether the order has reached a terminal state.
func (o *Order) IsTerminal() bool { return o.Status.IsTerminal() }

// RemainingQuantity returns the unfilled portion of the order.
func (o *Order) RemainingQuantity() float64 { return o.Quantity - o.FilledQuantity }

// ApplyFill records an execution of qty shares at price, recomputing the
// quantity-weighted average fill price and flipping status to
// PARTIALLY_FILLED or FILLED as appropriate.
func (o *Order) ApplyFill(qty, price float64) {
	previousFilled := o.FilledQuantity
	o.FilledQuantity += qty

	if previousFilled == 0 {
		o.AverageFillPrice = price
	} else {
		o.AverageFillPrice = (o.AverageFillPrice*previousFilled + price*qty) / o.FilledQuantity
	}

	if o.FilledQuantity >= o.Quantity {
		o.Status = events.StatusFilled
	} else if o.FilledQuantity > 0 {
		o.Status = events.StatusPartiallyFilled
	}
	o.UpdatedAt = time.Now()
}

// UpdateFromStatus applies a status transition that arrived independently
// of a Fill event (e.g. NEW, REJECTED, CANCELLED, or a PARTIALLY_FILLED
// snapshot carrying its own filled-quantity figure).
func (o *Order) UpdateFromStatus(status events.OrderStatus, filledQty float64, rejectReason string) {
	o.Status = status
	o.FilledQuantity = filledQty
	if rejectReason != "" {
		o.RejectReason = rejectReason
	}
	o.UpdatedAt = time.Now()
}

// Position tracks signed holdings and realized P&L for a single symbol.
type Position struct {
	Symbol       string
	Quantity     float64
	AveragePrice float64
	RealizedPnL  float64
}

// NewPosition builds a flat Position for symbol.
func NewPosition(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// IsFlat reports whether the position carries no quantity.
func (p *Position) IsFlat() bool { return p.Quantity == 0 }

// UnrealizedPnL returns quantity × (mark − avgPrice), zero when flat.
func (p *Position) UnrealizedPnL(mark float64) float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.Quantity * (mark - p.AveragePrice)
}

// TotalPnL returns realized plus unrealized P&L at mark.
func (p *Position) TotalPnL(mark float64) float64 {
	return p.RealizedPnL + p.UnrealizedPnL(mark)
}

// ApplyFill folds a fill into the position, recomputing average price and
// realized P&L: same-direction (or opening) fills widen the position and
// recompute a weighted average; opposite-direction fills
// close or flip it, crystallising realized P&L on the closed quantity and,
// on a flip, adopting the fill price as the new average.
func (p *Position) ApplyFill(side events.Side, qty, price float64) {
	signedQty := qty
	if side == events.SideSell {
		signedQty = -qty
	}

	sameDirection := p.Quantity == 0 || (p.Quantity > 0) == (signedQty > 0)

	if sameDirection {
		if p.Quantity == 0 {
			p.AveragePrice = price
		} else {
			totalQty := p.Quantity + signedQty
			p.AveragePrice = (p.AveragePrice*p.Quantity + price*signedQty) / totalQty
		}
		p.Quantity += signedQty
		return
	}

	closedQty := minAbs(signedQty, p.Quantity)
	if p.Quantity > 0 {
		p.RealizedPnL += closedQty * (price - p.AveragePrice)
	} else {
		p.RealizedPnL += closedQty * (p.AveragePrice - price)
	}

	p.Quantity += signedQty
	if (p.Quantity > 0) == (signedQty > 0) && p.Quantity != 0 {
		// Position flipped sign: residual adopts the fill price.
		p.AveragePrice = price
	}
}

// minAbs returns the smaller of |a| and |b|.
func minAbs(a, b float64) float64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a < b {
		return a
	}
	return b
}
