// Package ledger is the durable Trade Ledger (spec §4.10): every trade and
// its full transition history, queryable for the read-model CLI commands
// and the post-trade DayReport. Grounded on internal/store/sqlite.go's
// trades table and query style, extended with a trade_transitions journal
// table for the one-way state-graph audit trail §8 requires.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/models"
)

// Ledger persists Trade records and their transition audit trail.
type Ledger struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates/opens the ledger database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		approved_order_ref TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_order_id TEXT,
		stop_loss_order_id TEXT,
		take_profit_order_id TEXT,
		stop_loss_price REAL,
		take_profit_price REAL,
		status TEXT NOT NULL,
		entry_time DATETIME,
		entry_fill_price REAL,
		filled_qty INTEGER,
		remaining_qty INTEGER,
		exit_time DATETIME,
		exit_fill_price REAL,
		realized_pnl REAL,
		exit_reason TEXT,
		client_tag TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS trade_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		at DATETIME NOT NULL,
		note TEXT,
		FOREIGN KEY (trade_id) REFERENCES trades(id)
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_trade ON trade_transitions(trade_id, at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Insert records a newly created trade (expected in PENDING status).
func (l *Ledger) Insert(ctx context.Context, t *models.Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO trades (id, approved_order_ref, symbol, direction, quantity, stop_loss_price, take_profit_price, status, remaining_qty, client_tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ApprovedOrderRef, t.Symbol, t.Direction, t.Quantity, t.StopLossPrice, t.TakeProfitPrice, t.Status, t.RemainingQty, t.ClientTag)
	if err != nil {
		return domainerrors.Wrap(err, "inserting trade")
	}
	return nil
}

// RecordTransition applies a validated status transition to the in-memory
// Trade, persists the new field values, and appends a transition-journal
// row. Callers must have already called t.TransitionTo (or equivalent) so
// the one-way graph invariant holds before this is called.
func (l *Ledger) RecordTransition(ctx context.Context, t *models.Trade, from models.TradeStatus, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.Wrap(err, "beginning transition tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE trades SET
			entry_order_id = ?, stop_loss_order_id = ?, take_profit_order_id = ?,
			status = ?, entry_time = ?, entry_fill_price = ?, filled_qty = ?, remaining_qty = ?,
			exit_time = ?, exit_fill_price = ?, realized_pnl = ?, exit_reason = ?
		WHERE id = ?`,
		t.EntryOrderID, t.StopLossOrderID, t.TakeProfitOrderID,
		t.Status, nullTime(t.EntryTime), t.EntryFillPrice, t.FilledQty, t.RemainingQty,
		nullTime(t.ExitTime), t.ExitFillPrice, t.RealizedPnL, string(t.ExitReason),
		t.ID)
	if err != nil {
		return domainerrors.Wrap(err, "updating trade")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trade_transitions (trade_id, from_status, to_status, at, note)
		VALUES (?, ?, ?, ?, ?)`, t.ID, from, t.Status, time.Now(), note)
	if err != nil {
		return domainerrors.Wrap(err, "inserting transition")
	}

	return tx.Commit()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// Get loads one trade by id.
func (l *Ledger) Get(ctx context.Context, id string) (*models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	row := l.db.QueryRowContext(ctx, `
		SELECT id, approved_order_ref, symbol, direction, quantity, entry_order_id, stop_loss_order_id,
			take_profit_order_id, stop_loss_price, take_profit_price, status, entry_time, entry_fill_price, filled_qty, remaining_qty,
			exit_time, exit_fill_price, realized_pnl, exit_reason, client_tag
		FROM trades WHERE id = ?`, id)
	return scanTrade(row)
}

// ByClientTag loads a trade by its idempotency tag, used to detect a
// replayed place_order call (§4.1, §4.8).
func (l *Ledger) ByClientTag(ctx context.Context, clientTag string) (*models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	row := l.db.QueryRowContext(ctx, `
		SELECT id, approved_order_ref, symbol, direction, quantity, entry_order_id, stop_loss_order_id,
			take_profit_order_id, stop_loss_price, take_profit_price, status, entry_time, entry_fill_price, filled_qty, remaining_qty,
			exit_time, exit_fill_price, realized_pnl, exit_reason, client_tag
		FROM trades WHERE client_tag = ?`, clientTag)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func scanTrade(row *sql.Row) (*models.Trade, error) {
	var t models.Trade
	var entryTime, exitTime sql.NullTime
	if err := row.Scan(
		&t.ID, &t.ApprovedOrderRef, &t.Symbol, &t.Direction, &t.Quantity,
		&t.EntryOrderID, &t.StopLossOrderID, &t.TakeProfitOrderID, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status,
		&entryTime, &t.EntryFillPrice, &t.FilledQty, &t.RemainingQty,
		&exitTime, &t.ExitFillPrice, &t.RealizedPnL, &t.ExitReason, &t.ClientTag,
	); err != nil {
		return nil, err
	}
	if entryTime.Valid {
		t.EntryTime = &entryTime.Time
	}
	if exitTime.Valid {
		t.ExitTime = &exitTime.Time
	}
	return &t, nil
}

// OpenTrades returns every trade not yet in a terminal status, ordered
// deterministically by trade_id (§4.9's deterministic ordering
// requirement for the Position Monitor's decision loop).
func (l *Ledger) OpenTrades(ctx context.Context) ([]*models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, approved_order_ref, symbol, direction, quantity, entry_order_id, stop_loss_order_id,
			take_profit_order_id, stop_loss_price, take_profit_price, status, entry_time, entry_fill_price, filled_qty, remaining_qty,
			exit_time, exit_fill_price, realized_pnl, exit_reason, client_tag
		FROM trades
		WHERE status NOT IN ('CLOSED', 'REJECTED', 'STOPPED_OUT', 'EXPIRED')
		ORDER BY id ASC`)
	if err != nil {
		return nil, domainerrors.Wrap(err, "querying open trades")
	}
	defer rows.Close()

	var out []*models.Trade
	for rows.Next() {
		var t models.Trade
		var entryTime, exitTime sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.ApprovedOrderRef, &t.Symbol, &t.Direction, &t.Quantity,
			&t.EntryOrderID, &t.StopLossOrderID, &t.TakeProfitOrderID, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status,
			&entryTime, &t.EntryFillPrice, &t.FilledQty, &t.RemainingQty,
			&exitTime, &t.ExitFillPrice, &t.RealizedPnL, &t.ExitReason, &t.ClientTag,
		); err != nil {
			return nil, domainerrors.Wrap(err, "scanning open trade")
		}
		if entryTime.Valid {
			t.EntryTime = &entryTime.Time
		}
		if exitTime.Valid {
			t.ExitTime = &exitTime.Time
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// TradesForDay returns every trade with fills on the given venue-local date
// (YYYY-MM-DD), most recent first — the read-model query behind the
// operator CLI's trade journal and day-report commands.
func (l *Ledger) TradesForDay(ctx context.Context, date string) ([]*models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, approved_order_ref, symbol, direction, quantity, entry_order_id, stop_loss_order_id,
			take_profit_order_id, stop_loss_price, take_profit_price, status, entry_time, entry_fill_price, filled_qty, remaining_qty,
			exit_time, exit_fill_price, realized_pnl, exit_reason, client_tag
		FROM trades
		WHERE date(entry_time) = ? OR date(exit_time) = ?
		ORDER BY entry_time DESC`, date, date)
	if err != nil {
		return nil, domainerrors.Wrap(err, "querying trades for day")
	}
	defer rows.Close()

	var out []*models.Trade
	for rows.Next() {
		var t models.Trade
		var entryTime, exitTime sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.ApprovedOrderRef, &t.Symbol, &t.Direction, &t.Quantity,
			&t.EntryOrderID, &t.StopLossOrderID, &t.TakeProfitOrderID, &t.StopLossPrice, &t.TakeProfitPrice, &t.Status,
			&entryTime, &t.EntryFillPrice, &t.FilledQty, &t.RemainingQty,
			&exitTime, &t.ExitFillPrice, &t.RealizedPnL, &t.ExitReason, &t.ClientTag,
		); err != nil {
			return nil, domainerrors.Wrap(err, "scanning trade for day")
		}
		if entryTime.Valid {
			t.EntryTime = &entryTime.Time
		}
		if exitTime.Valid {
			t.ExitTime = &exitTime.Time
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// DayPnL sums realized P&L for trades closed on the given venue-local date
// (YYYY-MM-DD), feeding the daily-loss-floor guard and DayReport.
func (l *Ledger) DayPnL(ctx context.Context, date string) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total sql.NullFloat64
	err := l.db.QueryRowContext(ctx, `
		SELECT SUM(realized_pnl) FROM trades WHERE date(exit_time) = ? AND status = 'CLOSED'`, date).Scan(&total)
	if err != nil {
		return 0, domainerrors.Wrap(err, "summing day pnl")
	}
	return total.Float64, nil
}
