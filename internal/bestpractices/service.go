// Package bestpractices is the legacy document-search feature: plain embed,
// store, search. It shares the vector store and embedder with the thought
// engine but carries none of the reinforcement or lineage machinery.
package bestpractices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/embeddings"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// DefaultCollection is the Qdrant collection holding best-practice documents.
const DefaultCollection = "best_practices"

// ArchiveCollection holds one point per search, so past queries stay
// searchable as a corpus of their own.
const ArchiveCollection = "queries"

// DefaultQueryLimit is the default search result count.
const DefaultQueryLimit = 5

// MaxDocumentLength bounds a single ingested document.
const MaxDocumentLength = 50000

// Document is one ingestable best-practice entry.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// Result is one search hit.
type Result struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// Service provides best-practice ingestion and search.
type Service struct {
	store    vectorstore.Store
	embedder embeddings.Embedder
	logger   *zap.Logger

	collection string
	archive    string
}

// NewService creates the best-practices service.
func NewService(store vectorstore.Store, embedder embeddings.Embedder, collection string, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if collection == "" {
		collection = DefaultCollection
	}

	return &Service{
		store:      store,
		embedder:   embedder,
		logger:     logger,
		collection: collection,
		archive:    ArchiveCollection,
	}, nil
}

// Bootstrap creates the document and query-archive collections if missing.
func (s *Service) Bootstrap(ctx context.Context) error {
	schema := &vectorstore.IndexSchema{
		Keyword:  []string{"source"},
		Datetime: []string{"ingested_at"},
	}
	if err := s.store.EnsureCollection(ctx, s.collection, uint64(s.embedder.Dimension()), schema); err != nil {
		return fmt.Errorf("bootstrapping collection %s: %w", s.collection, err)
	}

	archiveSchema := &vectorstore.IndexSchema{
		Datetime: []string{"asked_at"},
	}
	if err := s.store.EnsureCollection(ctx, s.archive, uint64(s.embedder.Dimension()), archiveSchema); err != nil {
		return fmt.Errorf("bootstrapping collection %s: %w", s.archive, err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.store.Count(ctx, s.collection)
}

// Ingest embeds and stores documents, returning the assigned ids in input
// order.
func (s *Service) Ingest(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to ingest")
	}

	texts := make([]string, 0, len(docs))
	for i, doc := range docs {
		if doc.Content == "" {
			return nil, fmt.Errorf("document %d has empty content", i)
		}
		if len(doc.Content) > MaxDocumentLength {
			return nil, fmt.Errorf("document %d exceeds %d characters", i, MaxDocumentLength)
		}
		text := doc.Content
		if doc.Title != "" {
			text = doc.Title + "\n\n" + doc.Content
		}
		texts = append(texts, text)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]string, 0, len(docs))
	points := make([]*vectorstore.Point, 0, len(docs))
	for i, doc := range docs {
		id := uuid.NewString()
		ids = append(ids, id)
		points = append(points, &vectorstore.Point{
			ID:     id,
			Vector: vectors[i],
			Payload: map[string]interface{}{
				"title":       doc.Title,
				"content":     doc.Content,
				"source":      doc.Source,
				"ingested_at": now,
			},
		})
	}

	if err := s.store.Upsert(ctx, s.collection, points); err != nil {
		return nil, fmt.Errorf("storing documents: %w", err)
	}

	s.logger.Info("documents ingested",
		zap.String("collection", s.collection),
		zap.Int("count", len(ids)))
	return ids, nil
}

// Query searches stored documents by semantic similarity. A non-empty source
// restricts results to documents ingested from that source.
func (s *Service) Query(ctx context.Context, text string, limit int, source string) ([]Result, error) {
	if text == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter *vectorstore.Filter
	if source != "" {
		filter = &vectorstore.Filter{
			Must: []vectorstore.Condition{{Field: "source", Match: source}},
		}
	}

	hits, err := s.store.Search(ctx, s.collection, vector, uint64(limit), filter)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			ID:      hit.ID,
			Title:   str(hit.Payload["title"]),
			Content: str(hit.Payload["content"]),
			Source:  str(hit.Payload["source"]),
			Score:   float64(hit.Score),
		})
	}

	s.archiveQuery(ctx, text, vector, len(results))
	return results, nil
}

// archiveQuery records the query in the archive collection. Failures are
// soft; an unrecorded query must not fail the search.
func (s *Service) archiveQuery(ctx context.Context, text string, vector []float32, resultCount int) {
	err := s.store.Upsert(ctx, s.archive, []*vectorstore.Point{{
		ID:     uuid.NewString(),
		Vector: vector,
		Payload: map[string]interface{}{
			"query":        text,
			"result_count": resultCount,
			"asked_at":     time.Now().UTC().Format(time.RFC3339Nano),
		},
	}})
	if err != nil {
		s.logger.Warn("query archive failed", zap.Error(err))
	}
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
