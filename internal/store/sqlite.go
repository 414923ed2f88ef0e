package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"stock-advisor/internal/errors"
	"stock-advisor/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if strings.Contains(dbPath, ":memory:") {
		// An in-memory database exists per connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Open positions, one row per held symbol
	CREATE TABLE IF NOT EXISTS positions (
		symbol TEXT PRIMARY KEY,
		quantity REAL NOT NULL,
		avg_cost REAL NOT NULL,
		entry_date DATETIME NOT NULL,
		last_updated DATETIME NOT NULL
	);

	-- Append-only transaction log
	CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		total_cost REAL NOT NULL,
		commission REAL NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		recommendation_id TEXT,
		notes TEXT
	);

	-- Generated recommendations and their execution outcomes
	CREATE TABLE IF NOT EXISTS recommendations (
		recommendation_id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL,
		reasoning TEXT,
		scores_json TEXT,
		target_price REAL,
		stop_loss REAL,
		timestamp DATETIME NOT NULL,
		executed INTEGER NOT NULL DEFAULT 0,
		execution_price REAL,
		execution_date DATETIME,
		outcome_score REAL
	);

	-- Immutable portfolio value history
	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		snapshot_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		total_value REAL NOT NULL,
		cash_balance REAL NOT NULL,
		positions_value REAL NOT NULL,
		total_pnl REAL NOT NULL,
		daily_return REAL,
		positions_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol);
	CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_recommendations_symbol ON recommendations(symbol);
	CREATE INDEX IF NOT EXISTS idx_recommendations_timestamp ON recommendations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON portfolio_snapshots(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Positions
// ============================================================================

// GetPosition returns the open position for a symbol, or ErrPositionNotFound.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	var p models.Position
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, quantity, avg_cost, entry_date, last_updated
		FROM positions WHERE symbol = ?
	`, symbol).Scan(&p.Symbol, &p.Quantity, &p.AvgCost, &p.EntryDate, &p.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrPositionNotFound, "symbol %s", symbol)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get position", err)
	}
	return &p, nil
}

// GetPositions returns all open positions ordered by symbol.
func (s *SQLiteStore) GetPositions(ctx context.Context) ([]models.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, quantity, avg_cost, entry_date, last_updated
		FROM positions ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, errors.NewPersistenceError("query positions", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AvgCost, &p.EntryDate, &p.LastUpdated); err != nil {
			return nil, errors.NewPersistenceError("scan position", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ============================================================================
// Transactions
// ============================================================================

// ApplyTransaction writes the transaction row, upserts or removes the
// position, and when the transaction references a recommendation, flips its
// executed flag. Everything runs in one database transaction; any failure
// rolls the whole write back.
func (s *SQLiteStore) ApplyTransaction(ctx context.Context, txn *models.Transaction, pos *models.Position, change PositionChange) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewPersistenceError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, symbol, action, quantity, price,
			total_cost, commission, timestamp, recommendation_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.Symbol, string(txn.Action), txn.Quantity, txn.Price,
		txn.TotalCost, txn.Commission, txn.Timestamp, nullString(txn.RecommendationID), txn.Notes)
	if err != nil {
		return errors.NewPersistenceError("insert transaction", err)
	}

	switch change {
	case PositionRemove:
		if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, txn.Symbol); err != nil {
			return errors.NewPersistenceError("delete position", err)
		}
	default:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO positions (symbol, quantity, avg_cost, entry_date, last_updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(symbol) DO UPDATE SET
				quantity = excluded.quantity,
				avg_cost = excluded.avg_cost,
				last_updated = excluded.last_updated
		`, pos.Symbol, pos.Quantity, pos.AvgCost, pos.EntryDate, pos.LastUpdated)
		if err != nil {
			return errors.NewPersistenceError("upsert position", err)
		}
	}

	if txn.RecommendationID != "" {
		// The executed guard keeps the execution link one-way: a
		// recommendation already linked to a transaction cannot be relinked.
		res, err := tx.ExecContext(ctx, `
			UPDATE recommendations
			SET executed = 1, execution_price = ?, execution_date = ?
			WHERE recommendation_id = ? AND executed = 0
		`, txn.Price, txn.Timestamp, txn.RecommendationID)
		if err != nil {
			return errors.NewPersistenceError("link recommendation", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.NewPersistenceError("link recommendation", err)
		}
		if n == 0 {
			return errors.Wrapf(errors.ErrRecommendationNotFound,
				"recommendation %s missing or already executed", txn.RecommendationID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistenceError("commit transaction", err)
	}
	return nil
}

// CashFlow sums the signed cash effect of the whole transaction log.
// A buy's total_cost already includes commission and a sell's already
// deducts it, so the sum is the exact cash delta since the ledger started.
func (s *SQLiteStore) CashFlow(ctx context.Context) (float64, error) {
	var flow float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN action = 'SELL' THEN total_cost ELSE -total_cost END), 0)
		FROM transactions
	`).Scan(&flow)
	if err != nil {
		return 0, errors.NewPersistenceError("cash flow", err)
	}
	return flow, nil
}

// GetTransactions returns matching transactions, newest first.
func (s *SQLiteStore) GetTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	query := `
		SELECT transaction_id, symbol, action, quantity, price, total_cost,
			commission, timestamp, COALESCE(recommendation_id, ''), COALESCE(notes, '')
		FROM transactions WHERE 1=1
	`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError("query transactions", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var action string
		if err := rows.Scan(&t.ID, &t.Symbol, &action, &t.Quantity, &t.Price,
			&t.TotalCost, &t.Commission, &t.Timestamp, &t.RecommendationID, &t.Notes); err != nil {
			return nil, errors.NewPersistenceError("scan transaction", err)
		}
		t.Action = models.Action(action)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ============================================================================
// Recommendations
// ============================================================================

// SaveRecommendation appends a recommendation, assigning an id when missing.
func (s *SQLiteStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	scoresJSON, err := json.Marshal(rec.Scores)
	if err != nil {
		return errors.NewPersistenceError("marshal scores", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recommendations (recommendation_id, symbol, action, score,
			confidence, reasoning, scores_json, target_price, stop_loss, timestamp, executed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, rec.ID, rec.Symbol, string(rec.Action), rec.Score, rec.Confidence,
		rec.Reasoning, string(scoresJSON), rec.TargetPrice, rec.StopLoss, rec.Timestamp)
	if err != nil {
		return errors.NewPersistenceError("insert recommendation", err)
	}
	return nil
}

// GetRecommendation returns one recommendation by id.
func (s *SQLiteStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT recommendation_id, symbol, action, score, confidence,
			COALESCE(reasoning, ''), COALESCE(scores_json, '{}'),
			COALESCE(target_price, 0), COALESCE(stop_loss, 0), timestamp,
			executed, COALESCE(execution_price, 0), COALESCE(execution_date, timestamp),
			COALESCE(outcome_score, 0)
		FROM recommendations WHERE recommendation_id = ?
	`, id)

	rec, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrRecommendationNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get recommendation", err)
	}
	return rec, nil
}

// GetRecommendations returns matching recommendations, newest first.
func (s *SQLiteStore) GetRecommendations(ctx context.Context, filter RecommendationFilter) ([]models.Recommendation, error) {
	query := `
		SELECT recommendation_id, symbol, action, score, confidence,
			COALESCE(reasoning, ''), COALESCE(scores_json, '{}'),
			COALESCE(target_price, 0), COALESCE(stop_loss, 0), timestamp,
			executed, COALESCE(execution_price, 0), COALESCE(execution_date, timestamp),
			COALESCE(outcome_score, 0)
		FROM recommendations WHERE 1=1
	`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if filter.Executed != nil {
		query += " AND executed = ?"
		args = append(args, boolToInt(*filter.Executed))
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError("query recommendations", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, errors.NewPersistenceError("scan recommendation", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// MarkRecommendationExecuted flips the executed flag outside a transaction
// write. The flag is one-way; marking an already executed recommendation
// fails.
func (s *SQLiteStore) MarkRecommendationExecuted(ctx context.Context, id string, price float64, date time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations
		SET executed = 1, execution_price = ?, execution_date = ?
		WHERE recommendation_id = ? AND executed = 0
	`, price, date, id)
	if err != nil {
		return errors.NewPersistenceError("mark executed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistenceError("mark executed", err)
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrRecommendationNotFound, "id %s missing or already executed", id)
	}
	return nil
}

// GetRecommendationStats aggregates counts and average confidence.
func (s *SQLiteStore) GetRecommendationStats(ctx context.Context) (*RecommendationStats, error) {
	var stats RecommendationStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(executed), 0),
			COALESCE(SUM(CASE WHEN action = 'BUY' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'SELL' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN action = 'HOLD' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(confidence), 0)
		FROM recommendations
	`).Scan(&stats.Total, &stats.Executed, &stats.BuyCount, &stats.SellCount,
		&stats.HoldCount, &stats.AvgConfidence)
	if err != nil {
		return nil, errors.NewPersistenceError("recommendation stats", err)
	}
	return &stats, nil
}

// ============================================================================
// Snapshots
// ============================================================================

// SaveSnapshot appends an immutable snapshot row.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *models.PortfolioSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (snapshot_id, timestamp, total_value,
			cash_balance, positions_value, total_pnl, daily_return, positions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Timestamp, snap.TotalValue, snap.CashBalance,
		snap.PositionsValue, snap.TotalPnL, snap.DailyReturn, snap.PositionsJSON)
	if err != nil {
		return errors.NewPersistenceError("insert snapshot", err)
	}
	return nil
}

// GetLatestSnapshotBefore returns the most recent snapshot at or before t.
func (s *SQLiteStore) GetLatestSnapshotBefore(ctx context.Context, t time.Time) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, timestamp, total_value, cash_balance, positions_value,
			total_pnl, COALESCE(daily_return, 0), COALESCE(positions_json, '')
		FROM portfolio_snapshots
		WHERE timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, t).Scan(&snap.ID, &snap.Timestamp, &snap.TotalValue, &snap.CashBalance,
		&snap.PositionsValue, &snap.TotalPnL, &snap.DailyReturn, &snap.PositionsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "no snapshot before cutoff")
	}
	if err != nil {
		return nil, errors.NewPersistenceError("latest snapshot", err)
	}
	return &snap, nil
}

// GetSnapshots returns snapshots in [from, to], oldest first.
func (s *SQLiteStore) GetSnapshots(ctx context.Context, from, to time.Time) ([]models.PortfolioSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, timestamp, total_value, cash_balance, positions_value,
			total_pnl, COALESCE(daily_return, 0), COALESCE(positions_json, '')
		FROM portfolio_snapshots
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, from, to)
	if err != nil {
		return nil, errors.NewPersistenceError("query snapshots", err)
	}
	defer rows.Close()

	var snaps []models.PortfolioSnapshot
	for rows.Next() {
		var snap models.PortfolioSnapshot
		if err := rows.Scan(&snap.ID, &snap.Timestamp, &snap.TotalValue, &snap.CashBalance,
			&snap.PositionsValue, &snap.TotalPnL, &snap.DailyReturn, &snap.PositionsJSON); err != nil {
			return nil, errors.NewPersistenceError("scan snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ============================================================================
// Helpers
// ============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var rec models.Recommendation
	var action, scoresJSON string
	var executed int
	err := row.Scan(&rec.ID, &rec.Symbol, &action, &rec.Score, &rec.Confidence,
		&rec.Reasoning, &scoresJSON, &rec.TargetPrice, &rec.StopLoss, &rec.Timestamp,
		&executed, &rec.ExecutionPrice, &rec.ExecutionDate, &rec.OutcomeScore)
	if err != nil {
		return nil, err
	}
	rec.Action = models.Action(action)
	rec.Executed = executed != 0
	if scoresJSON != "" {
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
