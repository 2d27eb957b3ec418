// Package vectorstore defines the vector storage contract consumed by the
// thought-space engine and provides the Qdrant gRPC implementation.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrNotFound is returned when a requested point or collection does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")
)

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint is a search result: a point plus its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Range is a numeric range condition on a payload field.
type Range struct {
	Gte *float64
	Lte *float64
	Gt  *float64
	Lt  *float64
}

// Condition matches a single payload field.
//
// Exactly one of Match, MatchAny, or Range should be set.
type Condition struct {
	// Field is the payload key to match against.
	Field string

	// Match matches the field against a single keyword value.
	Match interface{}

	// MatchAny matches the field against any of the given keywords.
	// For array fields (e.g. tags) it matches when any element matches.
	MatchAny []string

	// Range matches numeric payload values against a range.
	Range *Range
}

// Filter combines conditions the Qdrant way: all Must, at least one Should,
// none of MustNot.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Page is one page of a Scroll traversal. NextCursor is empty when the
// traversal is exhausted.
type Page struct {
	Points     []*Point
	NextCursor string
}

// IndexSchema names the payload fields to index when a collection is created,
// grouped by index type.
type IndexSchema struct {
	Keyword  []string
	Integer  []string
	Float    []string
	Datetime []string
}

// Store is the capability contract the engine consumes.
//
// All operations are independently committed round trips; the store gives no
// snapshot isolation and callers must tolerate concurrent mutation between
// calls (a Scroll may miss a just-added point or see a just-updated one).
type Store interface {
	// EnsureCollection creates the collection and its payload indexes if it
	// does not already exist. Idempotent.
	EnsureCollection(ctx context.Context, collection string, vectorSize uint64, schema *IndexSchema) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, collection string, points []*Point) error

	// Search performs similarity search, returning up to limit results
	// ordered by descending score.
	Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error)

	// Get retrieves points by id. Missing ids are silently omitted from the
	// result, so callers needing existence checks compare lengths.
	Get(ctx context.Context, collection string, ids []string) ([]*Point, error)

	// SetPayload patches the named payload fields of one point, leaving the
	// vector and all other payload fields untouched.
	SetPayload(ctx context.Context, collection, id string, fields map[string]interface{}) error

	// Scroll pages through points matching filter. Pass an empty cursor to
	// start; pass the returned NextCursor to continue.
	Scroll(ctx context.Context, collection string, filter *Filter, pageSize uint32, cursor string) (*Page, error)

	// Delete removes points by id. Administrative only; the engine core never
	// deletes thoughts.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Health checks connectivity to the backing store.
	Health(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
