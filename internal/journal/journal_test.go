package journal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trading-core/internal/events"
	"trading-core/pkg/logger"
)

func newTestJournal(t *testing.T) (*events.Bus, *Journal) {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	bus := events.NewBus(logger.NewDiscard())
	j.Start(bus, logger.NewDiscard())
	return bus, j
}

func TestJournalPersistsTerminalOrdersOnly(t *testing.T) {
	_, j := newTestJournal(t)
	bus := j.bus
	ctx := context.Background()

	bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID: "o1", Symbol: "AAPL", Side: events.SideBuy, Status: events.StatusNew, Price: 100, Qty: 10,
	}))
	bus.Publish(events.New(events.CategoryOrder, events.Order{
		OrderID: "o1", Symbol: "AAPL", Side: events.SideBuy, Status: events.StatusFilled, Price: 100, Qty: 10, FilledQty: 10,
	}))

	orders, err := j.RecentOrders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1, "expected only the terminal FILLED order to be persisted")
	require.Equal(t, "FILLED", orders[0].Status)
}

func TestJournalPersistsFills(t *testing.T) {
	_, j := newTestJournal(t)
	bus := j.bus
	ctx := context.Background()

	bus.Publish(events.New(events.CategoryFill, events.Fill{
		OrderID: "o1", Symbol: "AAPL", Side: events.SideBuy, Price: 100, Qty: 10, ExecID: "e1",
	}))

	fills, err := j.RecentFills(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	require.Equal(t, "e1", fills[0].ExecID)
}

func TestJournalCloseUnsubscribes(t *testing.T) {
	bus, j := newTestJournal(t)
	require.NoError(t, j.Close())

	// A still-subscribed journal would try to write to the closed database
	// and log the failure.
	var buf strings.Builder
	j.log = logger.New(&buf, logger.DEBUG, "")

	bus.Publish(events.New(events.CategoryFill, events.Fill{
		OrderID: "o2", Symbol: "AAPL", Side: events.SideBuy, Price: 100, Qty: 1, ExecID: "e2",
	}))
	require.Zero(t, buf.Len(), "expected no persist attempt after Close")
}
