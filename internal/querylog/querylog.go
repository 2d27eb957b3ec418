// Package querylog provides the append-only relational log of retrieval
// queries. The log backs session-based implicit feedback, per-agent history
// for echo detection, and first-time-agent onboarding.
package querylog

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEntry indicates a log entry missing required fields.
var ErrInvalidEntry = errors.New("invalid query log entry")

// Entry is one retrieval audit record. Entries are never updated after
// insertion.
type Entry struct {
	ID          string
	AgentID     string
	QueryText   string
	ContextText string
	SessionID   string
	ReturnedIDs []string
	ResultCount int
	Timestamp   time.Time
}

// Log is the query log contract consumed by the engine.
type Log interface {
	// Append inserts one entry.
	Append(ctx context.Context, entry *Entry) error

	// CountByAgent returns the number of logged queries for an agent.
	CountByAgent(ctx context.Context, agentID string) (int, error)

	// RecentTextsByAgent returns up to n most recent non-empty query texts
	// for an agent, newest first.
	RecentTextsByAgent(ctx context.Context, agentID string, n int) ([]string, error)

	// ReturnedIDsBySession returns the union of thought ids returned by all
	// queries in a session, deduplicated, in first-seen order.
	ReturnedIDsBySession(ctx context.Context, sessionID string) ([]string, error)

	// Close releases the underlying database handle.
	Close() error
}
