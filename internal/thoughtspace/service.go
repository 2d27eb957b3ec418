package thoughtspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/embeddings"
	"github.com/fyrsmithlabs/thoughtd/internal/extraction"
	"github.com/fyrsmithlabs/thoughtd/internal/querylog"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// DefaultCollection is the Qdrant collection holding thoughts.
const DefaultCollection = "thoughts"

// scrollPageSize bounds memory during decay, highway, and lineage scans.
const scrollPageSize = 256

// Config holds service configuration.
type Config struct {
	// Collection is the vector store collection name. Defaults to
	// DefaultCollection.
	Collection string
}

// Service is the thought-space engine.
//
// It is request-driven with no global lock: operations on the same thought
// may race, and telemetry updates are best-effort read-modify-write against
// the store. Lost increments are accepted; see RunDecayPass and Retrieve.
type Service struct {
	store     vectorstore.Store
	embedder  embeddings.Embedder
	queries   querylog.Log
	extractor *extraction.TagExtractor
	logger    *zap.Logger

	collection string

	// now is swapped out in tests.
	now func() time.Time
}

// NewService creates the engine. The query log may be nil, which disables
// session feedback and echo detection but leaves retrieval fully functional.
func NewService(store vectorstore.Store, embedder embeddings.Embedder, queries querylog.Log, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	return &Service{
		store:      store,
		embedder:   embedder,
		queries:    queries,
		extractor:  extraction.NewTagExtractor(nil),
		logger:     logger,
		collection: cfg.Collection,
		now:        time.Now,
	}, nil
}

// Bootstrap creates the thoughts collection and its payload indexes if they
// do not already exist. Safe to call on every startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	schema := &vectorstore.IndexSchema{
		Keyword:  []string{fieldThoughtType, fieldTags, fieldContributorID, fieldSourceIDs, fieldAccessedBy, fieldCategory, fieldTopic},
		Integer:  []string{fieldAccessCount, fieldLastAccessedUnix},
		Float:    []string{fieldPheromoneWeight},
		Datetime: []string{fieldCreatedAt, fieldLastAccessed},
	}

	if err := s.store.EnsureCollection(ctx, s.collection, uint64(s.embedder.Dimension()), schema); err != nil {
		return WrapError(CodeStoreError, err, "bootstrapping collection %s", s.collection)
	}

	s.logger.Info("thought collection ready",
		zap.String("collection", s.collection),
		zap.Int("vector_size", s.embedder.Dimension()))
	return nil
}

// Collection returns the backing collection name.
func (s *Service) Collection() string {
	return s.collection
}

// Count returns the number of stored thoughts.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	n, err := s.store.Count(ctx, s.collection)
	if err != nil {
		return 0, WrapError(CodeStoreError, err, "counting thoughts")
	}
	return n, nil
}

// GetThought loads one thought by id.
func (s *Service) GetThought(ctx context.Context, id string) (*Thought, error) {
	if id == "" {
		return nil, NewError(CodeValidation, "thought id is required")
	}

	points, err := s.store.Get(ctx, s.collection, []string{id})
	if err != nil {
		return nil, WrapError(CodeStoreError, err, "loading thought %s", id)
	}
	if len(points) == 0 {
		return nil, NewError(CodeNotFound, "thought %s not found", id)
	}
	return decodePayload(points[0].ID, points[0].Payload), nil
}

// KnownTags scans the collection and returns the distinct tags in use, so
// new contributions can reuse the existing vocabulary.
func (s *Service) KnownTags(ctx context.Context, max int) ([]string, error) {
	seen := make(map[string]bool)
	var tags []string

	cursor := ""
	for {
		page, err := s.store.Scroll(ctx, s.collection, nil, scrollPageSize, cursor)
		if err != nil {
			return nil, WrapError(CodeStoreError, err, "scanning tags")
		}
		for _, p := range page.Points {
			for _, tag := range asStringSlice(p.Payload[fieldTags]) {
				if tag == "" || seen[tag] {
					continue
				}
				seen[tag] = true
				tags = append(tags, tag)
				if max > 0 && len(tags) >= max {
					return tags, nil
				}
			}
		}
		if page.NextCursor == "" {
			return tags, nil
		}
		cursor = page.NextCursor
	}
}
