package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog implements Log using SQLite, adapted from the teacher's
// session store: same WAL/busy-timeout pragma tuning and busy-retry
// helper, applied to a single narrow table instead of a full
// conversation schema.
type SQLiteLog struct {
	db  *sql.DB
	cfg Config
}

const schema = `
CREATE TABLE IF NOT EXISTS requests (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    prompt_chars INTEGER DEFAULT 0,
    cli_path_mode TEXT,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP,
    duration_ms INTEGER DEFAULT 0,
    num_turns INTEGER DEFAULT 0,
    tool_use_count INTEGER DEFAULT 0,
    total_cost_usd REAL DEFAULT 0,
    error_kind TEXT
);

CREATE INDEX IF NOT EXISTS idx_requests_started_at ON requests(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
`

func NewSQLiteLog(cfg Config) (*SQLiteLog, error) {
	dbPath, err := ResolveDBPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log := &SQLiteLog{db: db, cfg: cfg}
	if cfg.MaxAgeDays > 0 {
		if err := log.pruneOld(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: telemetry prune failed: %v\n", err)
		}
	}
	return log, nil
}

func (l *SQLiteLog) pruneOld() error {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.MaxAgeDays)
	_, err := l.db.Exec("DELETE FROM requests WHERE started_at < ?", cutoff)
	return err
}

func (l *SQLiteLog) RecordStart(ctx context.Context, rec RequestRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	return retryOnBusy(ctx, 5, func() error {
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO requests (id, kind, status, prompt_chars, cli_path_mode, started_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, string(rec.Kind), string(rec.Status), rec.PromptChars, nullString(rec.CLIPathMode), rec.StartedAt)
		return err
	})
}

func (l *SQLiteLog) RecordEnd(ctx context.Context, id string, status RequestStatus, errorKind string, numTurns, toolUseCount int, totalCostUSD float64) error {
	endedAt := time.Now()
	return retryOnBusy(ctx, 5, func() error {
		var startedAt time.Time
		if err := l.db.QueryRowContext(ctx, "SELECT started_at FROM requests WHERE id = ?", id).Scan(&startedAt); err != nil {
			return fmt.Errorf("lookup request %s: %w", id, err)
		}
		durationMs := endedAt.Sub(startedAt).Milliseconds()
		_, err := l.db.ExecContext(ctx, `
			UPDATE requests SET status = ?, ended_at = ?, duration_ms = ?, num_turns = ?, tool_use_count = ?, total_cost_usd = ?, error_kind = ?
			WHERE id = ?`,
			string(status), endedAt, durationMs, numTurns, toolUseCount, totalCostUSD, nullString(errorKind), id)
		return err
	})
}

func (l *SQLiteLog) List(ctx context.Context, opts ListOptions) ([]RequestRecord, error) {
	query := `
		SELECT id, kind, status, prompt_chars, cli_path_mode, started_at, ended_at, duration_ms, num_turns, tool_use_count, total_cost_usd, error_kind
		FROM requests WHERE 1=1`
	args := []any{}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if !opts.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, opts.Since)
	}
	query += " ORDER BY started_at DESC"
	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []RequestRecord
	for rows.Next() {
		var rec RequestRecord
		var cliPathMode, errorKind sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Status, &rec.PromptChars, &cliPathMode,
			&rec.StartedAt, &endedAt, &rec.DurationMs, &rec.NumTurns, &rec.ToolUseCount,
			&rec.TotalCostUSD, &errorKind); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		rec.CLIPathMode = cliPathMode.String
		rec.ErrorKind = errorKind.String
		if endedAt.Valid {
			rec.EndedAt = endedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *SQLiteLog) Summarize(ctx context.Context, opts ListOptions) (Summary, error) {
	recs, err := l.List(ctx, opts)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	var turnsSum int
	for _, r := range recs {
		s.Count++
		if r.ErrorKind != "" {
			s.Errored++
		}
		s.TotalCostUSD += r.TotalCostUSD
		s.TotalToolUses += r.ToolUseCount
		turnsSum += r.NumTurns
	}
	if s.Count > 0 {
		s.AverageTurns = float64(turnsSum) / float64(s.Count)
	}
	return s, nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "SQLITE_BUSY") || strings.Contains(s, "database is locked")
}

func retryOnBusy(ctx context.Context, maxRetries int, op func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = op()
		if err == nil || !isBusyError(err) {
			return err
		}
		d := time.Duration(10*(1<<i)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return err
}
