package thoughtspace

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/querylog"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// Disambiguation thresholds: a result set at least this large spanning at
// least this many distinct tags is flagged ambiguous.
const (
	ambiguousMinResults = 10
	ambiguousMinTags    = 3
)

// RetrieveParams are the inputs to Retrieve.
type RetrieveParams struct {
	Query     string
	AgentID   string
	SessionID string

	// Tags narrows the search to thoughts carrying any of these tags.
	Tags []string

	// Limit caps the result count. Defaults to DefaultRetrieveLimit.
	Limit int

	// Context is extra caller text recorded in the query log for echo
	// detection. It does not affect the search.
	Context string
}

// RetrievedThought is one ranked retrieval result.
type RetrievedThought struct {
	ID              string      `json:"id"`
	Content         string      `json:"content"`
	ContributorID   string      `json:"contributor_id"`
	ContributorName string      `json:"contributor_name"`
	Type            ThoughtType `json:"thought_type"`
	Score           float64     `json:"score"`
	PheromoneWeight float64     `json:"pheromone_weight"`
	Tags            []string    `json:"tags,omitempty"`
	Superseded      bool        `json:"superseded,omitempty"`
	RefinedBy       string      `json:"refined_by,omitempty"`
}

// TagCount is one entry of a result set's tag distribution.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RetrieveResult is the ranked output of one retrieval.
type RetrieveResult struct {
	Thoughts []RetrievedThought `json:"thoughts"`

	// TagDistribution counts tag occurrences across the full result set,
	// sorted descending. Drives disambiguation in the caller.
	TagDistribution []TagCount `json:"tag_distribution,omitempty"`

	// Ambiguous is set when the result set is large and topically diverse.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Retrieve runs similarity search, reinforces and records usage on every
// returned thought, applies lineage-aware score adjustment, and logs the
// query.
//
// Telemetry updates are best-effort: an update failure on one thought is
// logged and skipped, never failing the retrieval. Stale telemetry is
// preferable to a failed query.
func (s *Service) Retrieve(ctx context.Context, params RetrieveParams) (*RetrieveResult, error) {
	if params.Query == "" {
		return nil, NewError(CodeValidation, "query is required")
	}
	if params.AgentID == "" {
		return nil, NewError(CodeValidation, "agent_id is required")
	}
	if params.Limit <= 0 {
		params.Limit = DefaultRetrieveLimit
	}

	vector, err := s.embedder.EmbedQuery(ctx, params.Query)
	if err != nil {
		return nil, WrapError(CodeEmbeddingFailed, err, "embedding query")
	}

	var filter *vectorstore.Filter
	if len(params.Tags) > 0 {
		filter = &vectorstore.Filter{
			Must: []vectorstore.Condition{{Field: fieldTags, MatchAny: params.Tags}},
		}
	}

	hits, err := s.store.Search(ctx, s.collection, vector, uint64(params.Limit), filter)
	if err != nil {
		return nil, WrapError(CodeStoreError, err, "searching thoughts")
	}

	thoughts := make([]*Thought, 0, len(hits))
	scores := make([]float64, 0, len(hits))
	returnedIDs := make([]string, 0, len(hits))
	for _, hit := range hits {
		thoughts = append(thoughts, decodePayload(hit.ID, hit.Payload))
		scores = append(scores, float64(hit.Score))
		returnedIDs = append(returnedIDs, hit.ID)
	}

	now := s.now().UTC()
	for _, t := range thoughts {
		s.recordAccess(ctx, t, params.AgentID, params.SessionID, returnedIDs, now)
	}

	results := s.adjustForLineage(ctx, thoughts, scores)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	s.appendQueryLog(ctx, params, results)

	distribution := tagDistribution(results)
	return &RetrieveResult{
		Thoughts:        results,
		TagDistribution: distribution,
		Ambiguous:       len(results) >= ambiguousMinResults && len(distribution) >= ambiguousMinTags,
	}, nil
}

// recordAccess applies one retrieval's telemetry to a thought in place and
// writes the changed fields back. Failures are logged and skipped.
func (s *Service) recordAccess(ctx context.Context, t *Thought, agentID, sessionID string, resultIDs []string, now time.Time) {
	t.AccessCount++
	t.PheromoneWeight = clampWeight(t.PheromoneWeight + RetrievalReinforcement)
	t.LastAccessed = &now

	if !contains(t.AccessedBy, agentID) {
		t.AccessedBy = append(t.AccessedBy, agentID)
	}

	t.AccessLog = append(t.AccessLog, AccessRecord{
		AgentID:   agentID,
		SessionID: sessionID,
		Timestamp: now,
	})
	if len(t.AccessLog) > AccessLogCap {
		t.AccessLog = t.AccessLog[len(t.AccessLog)-AccessLogCap:]
	}

	for _, other := range resultIDs {
		if other != t.ID {
			t.CoRetrievedWith = bumpCoRetrieval(t.CoRetrievedWith, other)
		}
	}

	fields := map[string]interface{}{
		fieldAccessCount:      t.AccessCount,
		fieldAccessedBy:       t.AccessedBy,
		fieldAccessLog:        encodeAccessLog(t.AccessLog),
		fieldCoRetrievedWith:  encodeCoRetrieved(t.CoRetrievedWith),
		fieldPheromoneWeight:  t.PheromoneWeight,
		fieldLastAccessed:     now.Format(time.RFC3339Nano),
		fieldLastAccessedUnix: now.Unix(),
	}
	if err := s.store.SetPayload(ctx, s.collection, t.ID, fields); err != nil {
		s.logger.Warn("telemetry update failed",
			zap.String("id", t.ID),
			zap.Error(err))
	}
}

// bumpCoRetrieval increments the pair count for other, inserting it if new.
// At capacity, the lowest-count entry is evicted to make room.
func bumpCoRetrieval(pairs []CoRetrieval, other string) []CoRetrieval {
	for i := range pairs {
		if pairs[i].ThoughtID == other {
			pairs[i].Count++
			return pairs
		}
	}

	if len(pairs) >= CoRetrievedCap {
		minIdx := 0
		for i := range pairs {
			if pairs[i].Count < pairs[minIdx].Count {
				minIdx = i
			}
		}
		pairs = append(pairs[:minIdx], pairs[minIdx+1:]...)
	}

	return append(pairs, CoRetrieval{ThoughtID: other, Count: 1})
}

// adjustForLineage penalizes superseded results and boosts derived results
// whose sources were superseded within the same result set.
func (s *Service) adjustForLineage(ctx context.Context, thoughts []*Thought, scores []float64) []RetrievedThought {
	results := make([]RetrievedThought, 0, len(thoughts))
	superseded := make(map[string]bool)

	for i, t := range thoughts {
		r := RetrievedThought{
			ID:              t.ID,
			Content:         t.Content,
			ContributorID:   t.ContributorID,
			ContributorName: t.ContributorName,
			Type:            t.Type,
			Score:           scores[i],
			PheromoneWeight: t.PheromoneWeight,
			Tags:            t.Tags,
		}

		successor, err := s.newestDerivedChild(ctx, t.ID, t.CreatedAt)
		if err != nil {
			s.logger.Warn("supersession check failed",
				zap.String("id", t.ID),
				zap.Error(err))
		} else if successor != "" {
			r.Superseded = true
			r.RefinedBy = successor
			r.Score *= supersededPenalty
			superseded[t.ID] = true
		}

		results = append(results, r)
	}

	for i := range results {
		if !results[i].Type.IsDerived() {
			continue
		}
		for _, src := range thoughts[i].SourceIDs {
			if superseded[src] {
				boosted := results[i].Score * derivedBoost
				if boosted > 1.0 {
					boosted = 1.0
				}
				results[i].Score = boosted
				break
			}
		}
	}

	return results
}

// appendQueryLog records the retrieval for session feedback and per-agent
// history. Best-effort.
func (s *Service) appendQueryLog(ctx context.Context, params RetrieveParams, results []RetrievedThought) {
	if s.queries == nil {
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}

	entry := &querylog.Entry{
		ID:          uuid.NewString(),
		AgentID:     params.AgentID,
		QueryText:   params.Query,
		ContextText: params.Context,
		SessionID:   params.SessionID,
		ReturnedIDs: ids,
		ResultCount: len(ids),
		Timestamp:   s.now().UTC(),
	}
	if err := s.queries.Append(ctx, entry); err != nil {
		s.logger.Warn("query log append failed",
			zap.String("agent_id", params.AgentID),
			zap.Error(err))
	}
}

// AgentQueryCount returns how many queries an agent has made. Used by
// callers to detect first-time agents.
func (s *Service) AgentQueryCount(ctx context.Context, agentID string) (int, error) {
	if s.queries == nil {
		return 0, nil
	}
	n, err := s.queries.CountByAgent(ctx, agentID)
	if err != nil {
		return 0, WrapError(CodeStoreError, err, "counting agent queries")
	}
	return n, nil
}

func tagDistribution(results []RetrievedThought) []TagCount {
	counts := make(map[string]int)
	for _, r := range results {
		for _, tag := range r.Tags {
			counts[tag]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	distribution := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		distribution = append(distribution, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].Tag < distribution[j].Tag
	})
	return distribution
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func encodeAccessLog(log []AccessRecord) []interface{} {
	out := make([]interface{}, 0, len(log))
	for _, rec := range log {
		out = append(out, map[string]interface{}{
			"agent_id":   rec.AgentID,
			"session_id": rec.SessionID,
			"timestamp":  rec.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func encodeCoRetrieved(pairs []CoRetrieval) []interface{} {
	out := make([]interface{}, 0, len(pairs))
	for _, co := range pairs {
		out = append(out, map[string]interface{}{
			"thought_id": co.ThoughtID,
			"count":      co.Count,
		})
	}
	return out
}
