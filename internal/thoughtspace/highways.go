package thoughtspace

import (
	"context"
	"sort"

	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// highwayCandidateLimit bounds context-weighted candidate search.
const highwayCandidateLimit = 100

// HighwayParams are the inputs to GetHighways.
type HighwayParams struct {
	// Query optionally restricts candidates to thoughts similar to it. When
	// empty, ranking is global.
	Query string

	// Limit caps the result count. Defaults to DefaultRetrieveLimit.
	Limit int

	// MinAccess and MinUsers are the traffic floors. Defaults:
	// DefaultMinAccess, DefaultMinUsers.
	MinAccess int
	MinUsers  int
}

// Highway is one well-trodden thought: sustained traffic across multiple
// distinct agents.
type Highway struct {
	ID              string   `json:"id"`
	ContentPreview  string   `json:"content_preview"`
	AccessCount     int      `json:"access_count"`
	UniqueUsers     int      `json:"unique_users"`
	TrafficScore    int      `json:"traffic_score"`
	PheromoneWeight float64  `json:"pheromone_weight"`
	Tags            []string `json:"tags,omitempty"`
}

// GetHighways ranks thoughts by traffic_score = access_count * unique_users,
// descending, considering only thoughts meeting both traffic floors. With a
// query, candidates are first restricted to thoughts similar to it; without
// one, the scan is global. Equal scores break by id ascending so output is
// deterministic.
func (s *Service) GetHighways(ctx context.Context, params HighwayParams) ([]Highway, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultRetrieveLimit
	}
	if params.MinAccess <= 0 {
		params.MinAccess = DefaultMinAccess
	}
	if params.MinUsers <= 0 {
		params.MinUsers = DefaultMinUsers
	}

	minAccess := float64(params.MinAccess)
	filter := &vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: fieldAccessCount, Range: &vectorstore.Range{Gte: &minAccess}},
		},
	}

	var candidates []*Thought
	if params.Query != "" {
		vector, err := s.embedder.EmbedQuery(ctx, params.Query)
		if err != nil {
			return nil, WrapError(CodeEmbeddingFailed, err, "embedding highway query")
		}
		hits, err := s.store.Search(ctx, s.collection, vector, highwayCandidateLimit, filter)
		if err != nil {
			return nil, WrapError(CodeStoreError, err, "searching highway candidates")
		}
		for _, hit := range hits {
			candidates = append(candidates, decodePayload(hit.ID, hit.Payload))
		}
	} else {
		cursor := ""
		for {
			page, err := s.store.Scroll(ctx, s.collection, filter, scrollPageSize, cursor)
			if err != nil {
				return nil, WrapError(CodeStoreError, err, "scanning highway candidates")
			}
			for _, p := range page.Points {
				candidates = append(candidates, decodePayload(p.ID, p.Payload))
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
	}

	highways := make([]Highway, 0, len(candidates))
	for _, t := range candidates {
		users := len(t.AccessedBy)
		if t.AccessCount < params.MinAccess || users < params.MinUsers {
			continue
		}
		highways = append(highways, Highway{
			ID:              t.ID,
			ContentPreview:  preview(t.Content, ContentPreviewLength),
			AccessCount:     t.AccessCount,
			UniqueUsers:     users,
			TrafficScore:    t.AccessCount * users,
			PheromoneWeight: t.PheromoneWeight,
			Tags:            t.Tags,
		})
	}

	sort.Slice(highways, func(i, j int) bool {
		if highways[i].TrafficScore != highways[j].TrafficScore {
			return highways[i].TrafficScore > highways[j].TrafficScore
		}
		return highways[i].ID < highways[j].ID
	})

	if len(highways) > params.Limit {
		highways = highways[:params.Limit]
	}
	return highways, nil
}
