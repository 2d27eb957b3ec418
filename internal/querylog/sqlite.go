package querylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog implements Log on an embedded SQLite database.
type SQLiteLog struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the default database path: ~/.local/share/thoughtd/querylog.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "thoughtd", "querylog.db"), nil
}

// Open opens (or creates) the SQLite database at the given path, configures
// pragmas, and runs migrations.
func Open(path string) (*SQLiteLog, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	l := &SQLiteLog{db: sqlDB, path: path}
	if err := l.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := l.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*SQLiteLog, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}

	l := &SQLiteLog{db: sqlDB, path: ":memory:"}
	if err := l.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := l.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := l.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func (l *SQLiteLog) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS query_log (
			id           TEXT PRIMARY KEY,
			agent_id     TEXT NOT NULL,
			query_text   TEXT NOT NULL DEFAULT '',
			context_text TEXT NOT NULL DEFAULT '',
			session_id   TEXT NOT NULL,
			returned_ids TEXT NOT NULL DEFAULT '[]',
			result_count INTEGER NOT NULL DEFAULT 0,
			timestamp    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_query_log_agent ON query_log(agent_id);
		CREATE INDEX IF NOT EXISTS idx_query_log_session ON query_log(session_id);
		CREATE INDEX IF NOT EXISTS idx_query_log_timestamp ON query_log(timestamp);
	`)
	return err
}

// Append inserts one entry.
func (l *SQLiteLog) Append(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.ID == "" || entry.AgentID == "" || entry.SessionID == "" {
		return ErrInvalidEntry
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	returnedIDs := entry.ReturnedIDs
	if returnedIDs == nil {
		returnedIDs = []string{}
	}
	idsJSON, err := json.Marshal(returnedIDs)
	if err != nil {
		return fmt.Errorf("marshal returned ids: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO query_log (id, agent_id, query_text, context_text, session_id, returned_ids, result_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AgentID, entry.QueryText, entry.ContextText,
		entry.SessionID, string(idsJSON), entry.ResultCount, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

// CountByAgent returns the number of logged queries for an agent.
func (l *SQLiteLog) CountByAgent(ctx context.Context, agentID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM query_log WHERE agent_id = ?`, agentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by agent: %w", err)
	}
	return count, nil
}

// RecentTextsByAgent returns up to n most recent non-empty query texts for
// an agent, newest first.
func (l *SQLiteLog) RecentTextsByAgent(ctx context.Context, agentID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT query_text FROM query_log
		WHERE agent_id = ? AND query_text != ''
		ORDER BY timestamp DESC
		LIMIT ?`, agentID, n)
	if err != nil {
		return nil, fmt.Errorf("recent texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// ReturnedIDsBySession returns the union of thought ids returned in a
// session, deduplicated, in first-seen order.
func (l *SQLiteLog) ReturnedIDsBySession(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT returned_ids FROM query_log
		WHERE session_id = ?
		ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var ids []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ids: %w", err)
		}
		var batch []string
		if err := json.Unmarshal([]byte(raw), &batch); err != nil {
			// Skip malformed rows rather than failing the whole lookup.
			continue
		}
		for _, id := range batch {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

var _ Log = (*SQLiteLog)(nil)
