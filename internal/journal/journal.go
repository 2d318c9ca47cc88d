// Package journal implements the optional append-only trade journal: a pure
// EventBus subscriber that persists Fill and terminal Order events to
// SQLite for after-the-fact inspection. It mirrors events as they fly by
// and never participates in the OrderManager/Portfolio accounting state
// machine — durable persistence of the core's state is not its job.
package journal

import (
	"context"
	"fmt"

	"trading-core/internal/events"
	"trading-core/pkg/db"
	"trading-core/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	price REAL NOT NULL,
	qty REAL NOT NULL,
	filled_qty REAL NOT NULL,
	reject_reason TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS journal_fills (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	exec_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	qty REAL NOT NULL,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Journal subscribes to Order and Fill events and persists Fills and
// terminal Orders (FILLED, CANCELLED, REJECTED) to SQLite.
type Journal struct {
	database *db.Database
	bus      *events.Bus
	log      *logger.Logger

	orderSubID uint64
	fillSubID  uint64
}

// Open opens (creating if needed) the SQLite database at path, applies the
// journal schema, and returns a Journal not yet subscribed to bus.
func Open(path string) (*Journal, error) {
	database, err := db.New(path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if _, err := database.DB.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{database: database}, nil
}

// Start subscribes the journal to bus's Order and Fill categories. log may
// be nil, in which case persistence failures are discarded silently.
func (j *Journal) Start(bus *events.Bus, log *logger.Logger) {
	if log == nil {
		log = logger.NewDiscard()
	}
	j.bus = bus
	j.log = log
	j.orderSubID = bus.Subscribe(events.CategoryOrder, j.onOrderEvent)
	j.fillSubID = bus.Subscribe(events.CategoryFill, j.onFillEvent)
}

// Close unsubscribes the journal from the bus (if started) and closes the
// underlying database handle.
func (j *Journal) Close() error {
	if j.bus != nil {
		j.bus.Unsubscribe(j.orderSubID)
		j.bus.Unsubscribe(j.fillSubID)
	}
	return j.database.Close()
}

func (j *Journal) onOrderEvent(event events.Event) {
	o, ok := event.Payload.(events.Order)
	if !ok || !o.Status.IsTerminal() {
		return
	}

	_, err := j.database.DB.ExecContext(context.Background(), `
		INSERT INTO journal_orders (order_id, symbol, side, type, status, price, qty, filled_qty, reject_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.Symbol, o.Side, o.Type, o.Status, o.Price, o.Qty, o.FilledQty, o.RejectReason)
	if err != nil {
		j.log.Errorf("journal", "persist order %s: %v", o.OrderID, err)
	}
}

func (j *Journal) onFillEvent(event events.Event) {
	fill, ok := event.Payload.(events.Fill)
	if !ok {
		return
	}

	_, err := j.database.DB.ExecContext(context.Background(), `
		INSERT INTO journal_fills (order_id, exec_id, symbol, side, price, qty)
		VALUES (?, ?, ?, ?, ?, ?)
	`, fill.OrderID, fill.ExecID, fill.Symbol, fill.Side, fill.Price, fill.Qty)
	if err != nil {
		j.log.Errorf("journal", "persist fill %s: %v", fill.ExecID, err)
	}
}

// RecordedOrder is one row read back from journal_orders.
type RecordedOrder struct {
	OrderID      string
	Symbol       string
	Side         string
	Type         string
	Status       string
	Price        float64
	Qty          float64
	FilledQty    float64
	RejectReason string
}

// RecordedFill is one row read back from journal_fills.
type RecordedFill struct {
	OrderID string
	ExecID  string
	Symbol  string
	Side    string
	Price   float64
	Qty     float64
}

// RecentOrders returns up to limit terminal orders, most recent first.
func (j *Journal) RecentOrders(ctx context.Context, limit int) ([]RecordedOrder, error) {
	rows, err := j.database.DB.QueryContext(ctx, `
		SELECT order_id, symbol, side, type, status, price, qty, filled_qty, reject_reason
		FROM journal_orders
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal orders: %w", err)
	}
	defer rows.Close()

	var out []RecordedOrder
	for rows.Next() {
		var o RecordedOrder
		if err := rows.Scan(&o.OrderID, &o.Symbol, &o.Side, &o.Type, &o.Status, &o.Price, &o.Qty, &o.FilledQty, &o.RejectReason); err != nil {
			return nil, fmt.Errorf("scan journal order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// RecentFills returns up to limit fills, most recent first.
func (j *Journal) RecentFills(ctx context.Context, limit int) ([]RecordedFill, error) {
	rows, err := j.database.DB.QueryContext(ctx, `
		SELECT order_id, exec_id, symbol, side, price, qty
		FROM journal_fills
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal fills: %w", err)
	}
	defer rows.Close()

	var out []RecordedFill
	for rows.Next() {
		var f RecordedFill
		if err := rows.Scan(&f.OrderID, &f.ExecID, &f.Symbol, &f.Side, &f.Price, &f.Qty); err != nil {
			return nil, fmt.Errorf("scan journal fill: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
