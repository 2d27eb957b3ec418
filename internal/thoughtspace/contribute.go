package thoughtspace

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// ContributeParams are the inputs to Contribute.
type ContributeParams struct {
	Content         string
	ContributorID   string
	ContributorName string
	Type            ThoughtType
	SourceIDs       []string

	// Context is optional supporting text embedded alongside the content but
	// not stored as part of it.
	Context string

	// Tags supplied by the caller; keyword-extracted tags are merged in.
	Tags []string

	// Optional classification metadata.
	Category      string
	Topic         string
	TemporalScope string
	CorrectedFact string
	CorrectFact   string
	Supersedes    string

	// QualityFlags computed by the caller (see ClassifyQuality). The
	// contribution path stores them verbatim.
	QualityFlags []string
}

// ContributeResult is returned on successful contribution.
type ContributeResult struct {
	ID              string  `json:"id"`
	PheromoneWeight float64 `json:"pheromone_weight"`
}

// Contribute validates, embeds, and persists a new thought.
//
// Derived thoughts inherit pheromone weight from their sources: a refinement
// starts at max(1.0, parent*0.5), a consolidation at max(1.0, mean*0.5).
// Inheritance keeps well-used lineages warm without compounding forever.
func (s *Service) Contribute(ctx context.Context, params ContributeParams) (*ContributeResult, error) {
	if err := validateContribution(params); err != nil {
		return nil, err
	}

	weight := InitialPheromoneWeight
	if params.Type.IsDerived() {
		sources, err := s.loadSources(ctx, params.SourceIDs)
		if err != nil {
			return nil, err
		}
		weight = inheritedWeight(params.Type, sources)
	}

	text := params.Content
	if params.Context != "" {
		text = params.Content + "\n\n" + params.Context
	}
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, WrapError(CodeEmbeddingFailed, err, "embedding contribution")
	}

	now := s.now().UTC()
	thought := &Thought{
		ID:              uuid.NewString(),
		Content:         params.Content,
		ContributorID:   params.ContributorID,
		ContributorName: params.ContributorName,
		Type:            params.Type,
		SourceIDs:       params.SourceIDs,
		Tags:            s.mergeTags(params.Tags, params.Content),
		Category:        params.Category,
		Topic:           params.Topic,
		TemporalScope:   params.TemporalScope,
		QualityFlags:    params.QualityFlags,
		CorrectedFact:   params.CorrectedFact,
		CorrectFact:     params.CorrectFact,
		Supersedes:      params.Supersedes,
		PheromoneWeight: weight,
		CreatedAt:       now,
	}

	point := &vectorstore.Point{
		ID:      thought.ID,
		Vector:  vector,
		Payload: encodePayload(thought),
	}
	if err := s.store.Upsert(ctx, s.collection, []*vectorstore.Point{point}); err != nil {
		return nil, WrapError(CodeStoreError, err, "storing thought")
	}

	s.logger.Info("thought contributed",
		zap.String("id", thought.ID),
		zap.String("contributor_id", thought.ContributorID),
		zap.String("thought_type", string(thought.Type)),
		zap.Int("sources", len(thought.SourceIDs)),
		zap.Float64("pheromone_weight", weight))

	return &ContributeResult{ID: thought.ID, PheromoneWeight: weight}, nil
}

func validateContribution(params ContributeParams) error {
	if params.Content == "" {
		return NewError(CodeValidation, "content is required")
	}
	if len(params.Content) > MaxContentLength {
		return NewError(CodeValidation, "content exceeds %d characters", MaxContentLength)
	}
	if params.ContributorID == "" || params.ContributorName == "" {
		return NewError(CodeValidation, "contributor_id and contributor_name are required")
	}
	if len(params.Context) > MaxContextLength {
		return NewError(CodeValidation, "context exceeds %d characters", MaxContextLength)
	}
	if !params.Type.IsValid() {
		return NewError(CodeInvalidThoughtType, "unknown thought type %q", params.Type)
	}

	switch params.Type {
	case ThoughtOriginal:
		if len(params.SourceIDs) > 0 {
			return NewError(CodeValidation, "original thoughts cannot reference sources")
		}
	case ThoughtRefinement:
		if len(params.SourceIDs) == 0 {
			return NewError(CodeMissingSourceIDs, "refinement requires at least one source id")
		}
	case ThoughtConsolidation:
		if len(params.SourceIDs) < 2 {
			return NewError(CodeMissingSourceIDs, "consolidation requires at least two source ids")
		}
	}

	return nil
}

// loadSources fetches all referenced thoughts, failing if any is missing.
func (s *Service) loadSources(ctx context.Context, ids []string) ([]*Thought, error) {
	points, err := s.store.Get(ctx, s.collection, ids)
	if err != nil {
		return nil, WrapError(CodeStoreError, err, "loading source thoughts")
	}

	found := make(map[string]*Thought, len(points))
	for _, p := range points {
		found[p.ID] = decodePayload(p.ID, p.Payload)
	}

	sources := make([]*Thought, 0, len(ids))
	for _, id := range ids {
		t, ok := found[id]
		if !ok {
			return nil, NewError(CodeSourceNotFound, "source thought %s not found", id)
		}
		sources = append(sources, t)
	}
	return sources, nil
}

// inheritedWeight computes the starting weight for a derived thought.
func inheritedWeight(typ ThoughtType, sources []*Thought) float64 {
	if len(sources) == 0 {
		return InitialPheromoneWeight
	}

	var base float64
	switch typ {
	case ThoughtRefinement:
		base = sources[0].PheromoneWeight
	case ThoughtConsolidation:
		var sum float64
		for _, src := range sources {
			sum += src.PheromoneWeight
		}
		base = sum / float64(len(sources))
	default:
		return InitialPheromoneWeight
	}

	inherited := base * 0.5
	if inherited < InitialPheromoneWeight {
		inherited = InitialPheromoneWeight
	}
	return clampWeight(inherited)
}

// mergeTags combines caller-supplied tags with keyword-extracted ones,
// dropping duplicates while preserving caller order.
func (s *Service) mergeTags(supplied []string, content string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range supplied {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	for _, tag := range s.extractor.ExtractTags(content) {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
