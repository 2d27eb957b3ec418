// Package thoughtspace implements the thought-space retrieval and
// reinforcement engine: contribution gating, semantic retrieval with
// pheromone reinforcement, lineage resolution, highway ranking, decay, and
// session feedback.
package thoughtspace

import (
	"time"
	"unicode/utf8"
)

// ThoughtType classifies how a thought relates to prior thoughts.
type ThoughtType string

const (
	// ThoughtOriginal is a standalone contribution.
	ThoughtOriginal ThoughtType = "original"

	// ThoughtRefinement improves on a single prior thought.
	ThoughtRefinement ThoughtType = "refinement"

	// ThoughtConsolidation merges two or more prior thoughts.
	ThoughtConsolidation ThoughtType = "consolidation"
)

// IsValid reports whether t is a known thought type.
func (t ThoughtType) IsValid() bool {
	switch t {
	case ThoughtOriginal, ThoughtRefinement, ThoughtConsolidation:
		return true
	}
	return false
}

// IsDerived reports whether t requires source thoughts.
func (t ThoughtType) IsDerived() bool {
	return t == ThoughtRefinement || t == ThoughtConsolidation
}

// Engine tuning constants.
const (
	// MinPheromoneWeight is the decay floor.
	MinPheromoneWeight = 0.1

	// MaxPheromoneWeight is the reinforcement ceiling.
	MaxPheromoneWeight = 10.0

	// InitialPheromoneWeight is the starting weight for original thoughts.
	InitialPheromoneWeight = 1.0

	// RetrievalReinforcement is added to a thought's weight each time it is
	// returned from a retrieval.
	RetrievalReinforcement = 0.05

	// FeedbackReinforcement is added when a session's earlier retrievals led
	// to a new contribution.
	FeedbackReinforcement = 0.02

	// DecayFactor is the hourly multiplicative decay applied to idle thoughts.
	DecayFactor = 0.995

	// DecayIdleThreshold is how long a thought must sit unaccessed before a
	// decay pass touches it.
	DecayIdleThreshold = time.Hour

	// AccessLogCap bounds the per-thought access log. Oldest entries are
	// evicted first.
	AccessLogCap = 100

	// CoRetrievedCap bounds the per-thought co-retrieval map. The
	// lowest-count pair is evicted when full.
	CoRetrievedCap = 50

	// MaxContentLength bounds thought content.
	MaxContentLength = 10000

	// MaxContextLength bounds the optional contribution context.
	MaxContextLength = 2000

	// MaxLineageDepth caps lineage traversal in each direction.
	MaxLineageDepth = 10

	// DefaultRetrieveLimit is the default result count for retrieval.
	DefaultRetrieveLimit = 10

	// DefaultMinAccess is the highway traffic floor on access count.
	DefaultMinAccess = 3

	// DefaultMinUsers is the highway traffic floor on distinct accessors.
	DefaultMinUsers = 2

	// ContentPreviewLength bounds highway content previews.
	ContentPreviewLength = 80
)

// AccessRecord is one entry in a thought's bounded access log.
type AccessRecord struct {
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CoRetrieval counts how often another thought appeared in the same result
// set as this one.
type CoRetrieval struct {
	ThoughtID string `json:"thought_id"`
	Count     int    `json:"count"`
}

// Thought is one stored unit of contributed knowledge.
//
// Content, contributor fields, type, sources, and CreatedAt are immutable
// after creation. Telemetry fields (AccessCount, AccessedBy, AccessLog,
// CoRetrievedWith, PheromoneWeight, LastAccessed) are mutated only by the
// retrieval, feedback, and decay paths. Classification fields are mutable
// via the metadata patch path only.
type Thought struct {
	ID              string
	Content         string
	ContributorID   string
	ContributorName string
	Type            ThoughtType
	SourceIDs       []string
	Tags            []string

	// Classification metadata, patchable after creation.
	Category      string
	Topic         string
	TemporalScope string
	QualityFlags  []string
	CorrectedFact string
	CorrectFact   string
	Supersedes    string

	PheromoneWeight float64
	AccessCount     int
	AccessedBy      []string
	AccessLog       []AccessRecord
	CoRetrievedWith []CoRetrieval

	CreatedAt    time.Time
	LastAccessed *time.Time
}

// payload field names. Keyword, integer, float, and datetime indexes are
// created for the filterable subset at collection bootstrap.
const (
	fieldContent          = "content"
	fieldContributorID    = "contributor_id"
	fieldContributorName  = "contributor_name"
	fieldThoughtType      = "thought_type"
	fieldSourceIDs        = "source_ids"
	fieldTags             = "tags"
	fieldCategory         = "category"
	fieldTopic            = "topic"
	fieldTemporalScope    = "temporal_scope"
	fieldQualityFlags     = "quality_flags"
	fieldCorrectedFact    = "corrected_fact"
	fieldCorrectFact      = "correct_fact"
	fieldSupersedes       = "supersedes"
	fieldPheromoneWeight  = "pheromone_weight"
	fieldAccessCount      = "access_count"
	fieldAccessedBy       = "accessed_by"
	fieldAccessLog        = "access_log"
	fieldCoRetrievedWith  = "co_retrieved_with"
	fieldCreatedAt        = "created_at"
	fieldLastAccessed     = "last_accessed"
	fieldLastAccessedUnix = "last_accessed_unix"
)

// encodePayload converts a thought to its stored payload form.
func encodePayload(t *Thought) map[string]interface{} {
	accessLog := make([]interface{}, 0, len(t.AccessLog))
	for _, rec := range t.AccessLog {
		accessLog = append(accessLog, map[string]interface{}{
			"agent_id":   rec.AgentID,
			"session_id": rec.SessionID,
			"timestamp":  rec.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	coRetrieved := make([]interface{}, 0, len(t.CoRetrievedWith))
	for _, co := range t.CoRetrievedWith {
		coRetrieved = append(coRetrieved, map[string]interface{}{
			"thought_id": co.ThoughtID,
			"count":      co.Count,
		})
	}

	payload := map[string]interface{}{
		fieldContent:         t.Content,
		fieldContributorID:   t.ContributorID,
		fieldContributorName: t.ContributorName,
		fieldThoughtType:     string(t.Type),
		fieldSourceIDs:       t.SourceIDs,
		fieldTags:            t.Tags,
		fieldCategory:        t.Category,
		fieldTopic:           t.Topic,
		fieldTemporalScope:   t.TemporalScope,
		fieldQualityFlags:    t.QualityFlags,
		fieldCorrectedFact:   t.CorrectedFact,
		fieldCorrectFact:     t.CorrectFact,
		fieldSupersedes:      t.Supersedes,
		fieldPheromoneWeight: t.PheromoneWeight,
		fieldAccessCount:     t.AccessCount,
		fieldAccessedBy:      t.AccessedBy,
		fieldAccessLog:       accessLog,
		fieldCoRetrievedWith: coRetrieved,
		fieldCreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if t.LastAccessed != nil {
		payload[fieldLastAccessed] = t.LastAccessed.UTC().Format(time.RFC3339Nano)
		payload[fieldLastAccessedUnix] = t.LastAccessed.Unix()
	} else {
		payload[fieldLastAccessed] = nil
	}

	return payload
}

// decodePayload reconstructs a thought from its stored payload form.
// Missing or malformed fields fall back to zero values rather than failing
// the whole decode, so older points with a narrower payload still load.
func decodePayload(id string, payload map[string]interface{}) *Thought {
	t := &Thought{
		ID:              id,
		Content:         asString(payload[fieldContent]),
		ContributorID:   asString(payload[fieldContributorID]),
		ContributorName: asString(payload[fieldContributorName]),
		Type:            ThoughtType(asString(payload[fieldThoughtType])),
		SourceIDs:       asStringSlice(payload[fieldSourceIDs]),
		Tags:            asStringSlice(payload[fieldTags]),
		Category:        asString(payload[fieldCategory]),
		Topic:           asString(payload[fieldTopic]),
		TemporalScope:   asString(payload[fieldTemporalScope]),
		QualityFlags:    asStringSlice(payload[fieldQualityFlags]),
		CorrectedFact:   asString(payload[fieldCorrectedFact]),
		CorrectFact:     asString(payload[fieldCorrectFact]),
		Supersedes:      asString(payload[fieldSupersedes]),
		PheromoneWeight: asFloat(payload[fieldPheromoneWeight]),
		AccessCount:     asInt(payload[fieldAccessCount]),
		AccessedBy:      asStringSlice(payload[fieldAccessedBy]),
	}

	if ts, ok := asTime(payload[fieldCreatedAt]); ok {
		t.CreatedAt = ts
	}
	if ts, ok := asTime(payload[fieldLastAccessed]); ok {
		t.LastAccessed = &ts
	}

	for _, raw := range asSlice(payload[fieldAccessLog]) {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		rec := AccessRecord{
			AgentID:   asString(entry["agent_id"]),
			SessionID: asString(entry["session_id"]),
		}
		if ts, ok := asTime(entry["timestamp"]); ok {
			rec.Timestamp = ts
		}
		t.AccessLog = append(t.AccessLog, rec)
	}

	for _, raw := range asSlice(payload[fieldCoRetrievedWith]) {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		t.CoRetrievedWith = append(t.CoRetrievedWith, CoRetrieval{
			ThoughtID: asString(entry["thought_id"]),
			Count:     asInt(entry["count"]),
		})
	}

	return t
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func asTime(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// clampWeight keeps a pheromone weight inside its domain.
func clampWeight(w float64) float64 {
	if w < MinPheromoneWeight {
		return MinPheromoneWeight
	}
	if w > MaxPheromoneWeight {
		return MaxPheromoneWeight
	}
	return w
}

// preview truncates content for display in highway listings. Truncation
// backs up to a rune boundary so multibyte content stays valid UTF-8.
func preview(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
