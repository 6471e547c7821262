package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logrus.Entry) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profile_snapshots (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp           INTEGER NOT NULL,
			symbol              TEXT NOT NULL,
			type                TEXT,
			long_name           TEXT,
			previous_close      REAL,
			dividend_rate       REAL,
			dividend_yield      REAL,
			ebitda_margins      REAL,
			pl                  REAL,
			price_vp            REAL,
			ev_ebitda           REAL,
			gross_margins       REAL,
			operating_cash_flow REAL,
			last_dividend_value REAL,
			last_dividend_date  TEXT,
			volume              REAL,
			avg_volume_10d      REAL,
			rows                INTEGER,
			first_date          TEXT,
			last_date           TEXT,
			last_close          REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_symbol_ts ON profile_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS growth_readings (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			months    INTEGER NOT NULL,
			growth    REAL,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_growth_symbol_ts ON growth_readings(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordProfile(snap *ProfileSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := snap.FetchedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	p := snap.Profile
	_, err := r.db.Exec(`INSERT INTO profile_snapshots
		(timestamp, symbol, type, long_name, previous_close, dividend_rate,
		 dividend_yield, ebitda_margins, pl, price_vp, ev_ebitda, gross_margins,
		 operating_cash_flow, last_dividend_value, last_dividend_date,
		 volume, avg_volume_10d, rows, first_date, last_date, last_close)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), snap.Symbol, string(p.Type), p.LongName,
		p.PreviousClose, p.DividendRate, p.DividendYield, p.EbitdaMargins,
		p.PL, p.PriceVP, p.EVEbitda, p.GrossMargins, p.OperatingCashFlow,
		p.LastDividendValue, p.LastDividendDate, p.Volume, p.AvgVolume10Days,
		snap.Rows, snap.FirstDate, snap.LastDate, snap.LastClose,
	)
	return err
}

func (r *SQLiteRecorder) RecordGrowth(g *GrowthReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := g.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var errText *string
	if g.Err != "" {
		errText = &g.Err
	}
	_, err := r.db.Exec(`INSERT INTO growth_readings
		(timestamp, symbol, months, growth, error)
		VALUES (?,?,?,?,?)`,
		ts.Unix(), g.Symbol, g.Months, g.Growth, errText,
	)
	return err
}

func (r *SQLiteRecorder) GrowthHistory(symbol string, limit int) ([]GrowthReading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT timestamp, months, growth, error
		FROM growth_readings WHERE symbol = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query growth history: %w", err)
	}
	defer rows.Close()

	var out []GrowthReading
	for rows.Next() {
		var (
			ts     int64
			g      GrowthReading
			growth sql.NullFloat64
			errMsg sql.NullString
		)
		if err := rows.Scan(&ts, &g.Months, &growth, &errMsg); err != nil {
			return nil, fmt.Errorf("scan growth reading: %w", err)
		}
		g.Symbol = symbol
		g.Timestamp = time.Unix(ts, 0)
		if growth.Valid {
			v := growth.Float64
			g.Growth = &v
		}
		g.Err = errMsg.String
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
