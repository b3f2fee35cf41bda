// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"zerodha-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Candles table for historical OHLCV data
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	-- Trades table for completed trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		side TEXT NOT NULL,
		product TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL,
		pnl REAL,
		pnl_percent REAL,
		strategy TEXT,
		order_ids TEXT,
		is_paper INTEGER DEFAULT 0,
		decision_id TEXT,
		hold_duration INTEGER,
		slippage REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trade analysis table
	CREATE TABLE IF NOT EXISTS trade_analysis (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL UNIQUE,
		what_went_right TEXT,
		what_went_wrong TEXT,
		lessons_learned TEXT,
		entry_quality INTEGER,
		exit_quality INTEGER,
		risk_management_score INTEGER,
		emotional_notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (trade_id) REFERENCES trades(id)
	);

	-- Trade context table
	CREATE TABLE IF NOT EXISTS trade_context (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL UNIQUE,
		nifty_level REAL,
		sector_index REAL,
		vix_level REAL,
		market_trend TEXT,
		news_events TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (trade_id) REFERENCES trades(id)
	);

	-- Agent decisions table
	CREATE TABLE IF NOT EXISTS agent_decisions (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		confidence REAL NOT NULL,
		agent_results TEXT,
		consensus TEXT,
		risk_check TEXT,
		executed INTEGER DEFAULT 0,
		order_id TEXT,
		outcome TEXT DEFAULT 'PENDING',
		pnl REAL,
		reasoning TEXT,
		market_condition TEXT,
		entry_price REAL,
		stop_loss REAL,
		targets TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trade plans table
	CREATE TABLE IF NOT EXISTS trade_plans (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		target1 REAL,
		target2 REAL,
		target3 REAL,
		quantity INTEGER NOT NULL,
		risk_reward REAL,
		status TEXT DEFAULT 'PENDING',
		notes TEXT,
		reasoning TEXT,
		source TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		executed_at DATETIME
	);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		list_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, list_name)
	);

	-- Alerts table
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		condition TEXT NOT NULL,
		price REAL NOT NULL,
		triggered INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		triggered_at DATETIME
	);

	-- Journal entries table
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		trade_id TEXT,
		date DATE NOT NULL,
		content TEXT NOT NULL,
		tags TEXT,
		mood TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Corporate events table
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		event_type TEXT NOT NULL,
		date DATE NOT NULL,
		description TEXT,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Screener queries table
	CREATE TABLE IF NOT EXISTS screener_queries (
		name TEXT PRIMARY KEY,
		filters TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Execution quality table
	CREATE TABLE IF NOT EXISTS execution_quality (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		expected_price REAL NOT NULL,
		actual_price REAL NOT NULL,
		slippage REAL NOT NULL,
		latency_ms INTEGER,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Health logs table
	CREATE TABLE IF NOT EXISTS health_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		component TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		metrics TEXT
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_timeframe ON candles(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_candles_timestamp ON candles(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON agent_decisions(symbol);
	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON agent_decisions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_plans_symbol ON trade_plans(symbol);
	CREATE INDEX IF NOT EXISTS idx_plans_status ON trade_plans(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_triggered ON alerts(triggered);
	CREATE INDEX IF NOT EXISTS idx_events_symbol ON events(symbol);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
	CREATE INDEX IF NOT EXISTS idx_journal_date ON journal(date);
	CREATE INDEX IF NOT EXISTS idx_watchlist_list ON watchlist(list_name);
	`

	_, err := s.db.Exec(schema)
	return err
}


// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves candles to the database.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles from the database.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// GetCandlesFreshness returns the timestamp of the most recent candle.
func (s *SQLiteStore) GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var timestamp sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&timestamp)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get candles freshness: %w", err)
	}
	if !timestamp.Valid {
		return time.Time{}, nil
	}
	return timestamp.Time, nil
}

// ============================================================================
// Trade Analysis Methods
// ============================================================================
// Trade execution state and history now live in internal/ledger.Ledger
// (§4.10) — this store keeps only the post-trade journal/analysis and
// read-model side tables that ledger.Ledger does not cover.

// SaveTradeAnalysis saves trade analysis to the database.
func (s *SQLiteStore) SaveTradeAnalysis(ctx context.Context, analysis *models.TradeAnalysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trade_analysis (trade_id, what_went_right, what_went_wrong, lessons_learned, entry_quality, exit_quality, risk_management_score, emotional_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, analysis.TradeID, analysis.WhatWentRight, analysis.WhatWentWrong, analysis.LessonsLearned, analysis.EntryQuality, analysis.ExitQuality, analysis.RiskManagementScore, analysis.EmotionalNotes)
	if err != nil {
		return fmt.Errorf("failed to save trade analysis: %w", err)
	}

	if analysis.MarketContext != nil {
		_, err = s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO trade_context (trade_id, nifty_level, sector_index, vix_level, market_trend, news_events)
			VALUES (?, ?, ?, ?, ?, ?)
		`, analysis.TradeID, analysis.MarketContext.NiftyLevel, analysis.MarketContext.SectorIndex, analysis.MarketContext.VIXLevel, analysis.MarketContext.MarketTrend, analysis.MarketContext.NewsEvents)
		if err != nil {
			return fmt.Errorf("failed to save trade context: %w", err)
		}
	}

	return nil
}

// SaveJournalEntry saves a journal entry to the database.
func (s *SQLiteStore) SaveJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	tags, _ := json.Marshal(entry.Tags)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO journal (id, trade_id, date, content, tags, mood, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TradeID, entry.Date, entry.Content, string(tags), entry.Mood, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	return nil
}

// GetJournal retrieves journal entries from the database.
func (s *SQLiteStore) GetJournal(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error) {
	query := "SELECT id, trade_id, date, content, tags, mood, created_at, updated_at FROM journal WHERE 1=1"
	args := []interface{}{}

	if filter.TradeID != "" {
		query += " AND trade_id = ?"
		args = append(args, filter.TradeID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.TradeID, &e.Date, &e.Content, &tagsJSON, &e.Mood, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ============================================================================
// Trade Plans Methods
// ============================================================================

// SavePlan saves a trade plan to the database.
func (s *SQLiteStore) SavePlan(ctx context.Context, plan *models.TradePlan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trade_plans (id, symbol, side, entry_price, stop_loss, target1, target2, target3, quantity, risk_reward, status, notes, reasoning, source, created_at, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, plan.ID, plan.Symbol, plan.Side, plan.EntryPrice, plan.StopLoss, plan.Target1, plan.Target2, plan.Target3, plan.Quantity, plan.RiskReward, plan.Status, plan.Notes, plan.Reasoning, plan.Source, plan.CreatedAt, plan.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to save trade plan: %w", err)
	}
	return nil
}

// GetPlans retrieves trade plans from the database.
func (s *SQLiteStore) GetPlans(ctx context.Context, filter PlanFilter) ([]models.TradePlan, error) {
	query := "SELECT id, symbol, side, entry_price, stop_loss, target1, target2, target3, quantity, risk_reward, status, notes, reasoning, source, created_at, executed_at FROM trade_plans WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade plans: %w", err)
	}
	defer rows.Close()

	var plans []models.TradePlan
	for rows.Next() {
		var p models.TradePlan
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Side, &p.EntryPrice, &p.StopLoss, &p.Target1, &p.Target2, &p.Target3, &p.Quantity, &p.RiskReward, &p.Status, &p.Notes, &p.Reasoning, &p.Source, &p.CreatedAt, &p.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade plan: %w", err)
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}

// UpdatePlanStatus updates the status of a trade plan.
func (s *SQLiteStore) UpdatePlanStatus(ctx context.Context, planID string, status models.PlanStatus) error {
	var executedAt interface{}
	if status == models.PlanExecuted {
		executedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE trade_plans SET status = ?, executed_at = ? WHERE id = ?
	`, status, executedAt, planID)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("trade plan not found: %s", planID)
	}

	return nil
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to a watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol, list_name) VALUES (?, ?)
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND list_name = ?
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// GetWatchlist retrieves symbols in a watchlist.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE list_name = ? ORDER BY created_at ASC
	`, listName)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetAllWatchlists retrieves all watchlists.
func (s *SQLiteStore) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, symbol FROM watchlist ORDER BY list_name, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	watchlists := make(map[string][]string)
	for rows.Next() {
		var listName, symbol string
		if err := rows.Scan(&listName, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		watchlists[listName] = append(watchlists[listName], symbol)
	}

	return watchlists, rows.Err()
}


// ============================================================================
// Alerts Methods
// ============================================================================

// SaveAlert saves an alert to the database.
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	triggered := 0
	if alert.Triggered {
		triggered = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (id, symbol, condition, price, triggered, created_at, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Symbol, alert.Condition, alert.Price, triggered, alert.CreatedAt, alert.TriggeredAt)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// GetActiveAlerts retrieves all active (non-triggered) alerts.
func (s *SQLiteStore) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, condition, price, triggered, created_at, triggered_at
		FROM alerts WHERE triggered = 0 ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var triggered int
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Condition, &a.Price, &triggered, &a.CreatedAt, &a.TriggeredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Triggered = triggered == 1
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// TriggerAlert marks an alert as triggered.
func (s *SQLiteStore) TriggerAlert(ctx context.Context, alertID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET triggered = 1, triggered_at = ? WHERE id = ?
	`, time.Now(), alertID)
	if err != nil {
		return fmt.Errorf("failed to trigger alert: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert not found: %s", alertID)
	}

	return nil
}

// ============================================================================
// Events Methods
// ============================================================================

// SaveEvent saves a corporate event to the database.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event *models.CorporateEvent) error {
	details, _ := json.Marshal(event.Details)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, symbol, event_type, date, description, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.Symbol, event.EventType, event.Date, event.Description, string(details), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// GetUpcomingEvents retrieves upcoming corporate events.
func (s *SQLiteStore) GetUpcomingEvents(ctx context.Context, symbols []string, days int) ([]models.CorporateEvent, error) {
	endDate := time.Now().AddDate(0, 0, days)

	query := `
		SELECT id, symbol, event_type, date, description, details, created_at
		FROM events WHERE date >= ? AND date <= ?
	`
	args := []interface{}{time.Now(), endDate}

	if len(symbols) > 0 {
		placeholders := make([]string, len(symbols))
		for i := range symbols {
			placeholders[i] = "?"
			args = append(args, symbols[i])
		}
		query += " AND symbol IN (" + strings.Join(placeholders, ",") + ")"
	}

	query += " ORDER BY date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.CorporateEvent
	for rows.Next() {
		var e models.CorporateEvent
		var detailsJSON string
		if err := rows.Scan(&e.ID, &e.Symbol, &e.EventType, &e.Date, &e.Description, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		json.Unmarshal([]byte(detailsJSON), &e.Details)
		events = append(events, e)
	}

	return events, rows.Err()
}

// ============================================================================
// Screener Queries Methods
// ============================================================================

// SaveScreenerQuery saves a screener query.
func (s *SQLiteStore) SaveScreenerQuery(ctx context.Context, name string, query ScreenerQuery) error {
	filters, _ := json.Marshal(query.Filters)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO screener_queries (name, filters, updated_at)
		VALUES (?, ?, ?)
	`, name, string(filters), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save screener query: %w", err)
	}
	return nil
}

// GetScreenerQuery retrieves a screener query by name.
func (s *SQLiteStore) GetScreenerQuery(ctx context.Context, name string) (*ScreenerQuery, error) {
	var filtersJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT filters FROM screener_queries WHERE name = ?
	`, name).Scan(&filtersJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screener query: %w", err)
	}

	query := &ScreenerQuery{Name: name}
	json.Unmarshal([]byte(filtersJSON), &query.Filters)
	return query, nil
}

// ListScreenerQueries lists all saved screener query names.
func (s *SQLiteStore) ListScreenerQueries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM screener_queries ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list screener queries: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan query name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}
