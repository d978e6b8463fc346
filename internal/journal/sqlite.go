package journal

import (
	"database/sql"
	"fmt"
	"time"

	"squeezebot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id  TEXT PRIMARY KEY,
	ts        INTEGER NOT NULL,
	symbol    TEXT NOT NULL,
	side      TEXT NOT NULL,
	quantity  REAL NOT NULL,
	price     REAL NOT NULL,
	strategy  TEXT NOT NULL,
	pnl       REAL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
`

// SQLiteJournal stores trades in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens the database at dbPath and creates the trades table if
// it does not exist yet.
func OpenSQLite(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(tradesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite create trades table: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Record inserts one trade row.
func (j *SQLiteJournal) Record(rec TradeRecord) error {
	var pnl sql.NullFloat64
	if rec.PnL != nil {
		pnl = sql.NullFloat64{Float64: *rec.PnL, Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO trades (trade_id, ts, symbol, side, quantity, price, strategy, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Timestamp.UTC().UnixNano(), rec.Symbol, string(rec.Side),
		rec.Quantity, rec.Price, rec.Strategy, pnl)
	if err != nil {
		return fmt.Errorf("sqlite insert trade %s: %w", rec.ID, err)
	}
	return nil
}

// History returns records at or after since, ordered by timestamp ascending.
func (j *SQLiteJournal) History(since time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, ts, symbol, side, quantity, price, strategy, pnl
		FROM trades
		WHERE ts >= ?
		ORDER BY ts ASC
	`, since.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec    TradeRecord
			tsNano int64
			side   string
			pnl    sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &tsNano, &rec.Symbol, &side, &rec.Quantity, &rec.Price, &rec.Strategy, &pnl); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		rec.Timestamp = time.Unix(0, tsNano).UTC()
		rec.Side = model.Side(side)
		if pnl.Valid {
			v := pnl.Float64
			rec.PnL = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
