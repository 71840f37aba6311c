// Package history persists per-session usage and delivery records to a
// local sqlite database so `murmur usage` can report across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nvander/murmur/internal/config"
)

// SessionRecord is one completed dictation session.
type SessionRecord struct {
	ID           int64
	SessionID    string
	Mode         string
	AudioSeconds float64
	Chars        int
	Cost         float64
	CreatedAt    time.Time
}

// AttemptRecord is one persisted delivery attempt.
type AttemptRecord struct {
	ID          int64
	SessionID   string
	Method      string
	Success     bool
	LatencyMS   int64
	ProcessName string
	Category    string
	CreatedAt   time.Time
}

// Totals aggregates everything retained in the store.
type Totals struct {
	Sessions     int64
	AudioSeconds float64
	Chars        int64
	Cost         float64
}

// Store wraps the sqlite usage history. A store opened with an empty path
// is a no-op sink.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history database, creating the schema and pruning
// entries past the retention window.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Path == "" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on open failed", "error", err.Error())
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    audio_seconds REAL NOT NULL,
    chars INTEGER NOT NULL,
    cost REAL NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    method TEXT NOT NULL,
    success INTEGER NOT NULL,
    latency_ms INTEGER NOT NULL,
    process_name TEXT,
    category TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendSession records a completed session.
func (s *Store) AppendSession(ctx context.Context, rec SessionRecord) error {
	if s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, mode, audio_seconds, chars, cost, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Mode, rec.AudioSeconds, rec.Chars, rec.Cost, rec.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// AppendAttempt records one delivery attempt.
func (s *Store) AppendAttempt(ctx context.Context, rec AttemptRecord) error {
	if s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts(session_id, method, success, latency_ms, process_name, category, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Method, rec.Success, rec.LatencyMS, rec.ProcessName, rec.Category,
		rec.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// Totals aggregates the retained sessions.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	if s.db == nil {
		return Totals{}, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(audio_seconds), 0), COALESCE(SUM(chars), 0), COALESCE(SUM(cost), 0)
		 FROM sessions`)

	var t Totals
	if err := row.Scan(&t.Sessions, &t.AudioSeconds, &t.Chars, &t.Cost); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// RecentSessions lists up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, mode, audio_seconds, chars, cost, created_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Mode, &rec.AudioSeconds, &rec.Chars, &rec.Cost, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes rows older than the retention window.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil || s.cfg.RetentionDays <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, cutoff)
	return err
}
