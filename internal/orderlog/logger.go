// Package orderlog implements the order-lifecycle logging collaborator,
// grounded on original_source/include/order/OrderLogger.h and its .cpp: a
// pure EventBus subscriber that logs every Order and Fill event for
// monitoring, with no effect on engine state.
package orderlog

import (
	"trading-core/internal/events"
	"trading-core/pkg/logger"
)

// Logger subscribes to Order and Fill events and logs them at info level.
type Logger struct {
	bus *events.Bus
	log *logger.Logger

	orderSubID uint64
	fillSubID  uint64
}

// New subscribes a Logger to bus's Order and Fill categories.
func New(bus *events.Bus, log *logger.Logger) *Logger {
	if log == nil {
		log = logger.NewDiscard()
	}
	l := &Logger{bus: bus, log: log}
	l.orderSubID = bus.Subscribe(events.CategoryOrder, l.onOrderEvent)
	l.fillSubID = bus.Subscribe(events.CategoryFill, l.onFillEvent)
	l.log.Infof("orderlog", "initialized")
	return l
}

// Close unsubscribes the Logger from the bus.
func (l *Logger) Close() {
	l.bus.Unsubscribe(l.orderSubID)
	l.bus.Unsubscribe(l.fillSubID)
}

func (l *Logger) onOrderEvent(event events.Event) {
	o, ok := event.Payload.(events.Order)
	if !ok {
		return
	}

	switch o.Status {
	case events.StatusPartiallyFilled:
		l.log.Infof("orderlog", "order %s | %s | %s | status: PARTIALLY_FILLED (%.4f/%.4f)",
			o.OrderID, o.Symbol, o.Side, o.FilledQty, o.Qty)
	case events.StatusRejected:
		l.log.Infof("orderlog", "order %s | %s | %s | status: REJECTED: %s",
			o.OrderID, o.Symbol, o.Side, o.RejectReason)
	default:
		l.log.Infof("orderlog", "order %s | %s | %s | status: %s", o.OrderID, o.Symbol, o.Side, o.Status)
	}
}

func (l *Logger) onFillEvent(event events.Event) {
	fill, ok := event.Payload.(events.Fill)
	if !ok {
		return
	}

	action := "bought"
	if fill.Side == events.SideSell {
		action = "sold"
	}
	l.log.Infof("orderlog", "fill for order %s | %s | %s %.4f @ $%.2f | value: $%.2f",
		fill.OrderID, fill.Symbol, action, fill.Qty, fill.Price, fill.Price*fill.Qty)
}
