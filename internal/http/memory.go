package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/extraction"
	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

// nearbyHighwayLimit is how many topically relevant highways ride along
// with a memory response.
const nearbyHighwayLimit = 3

// narrowedResultLimit caps an ambiguous result set after narrowing to the
// dominant tag cluster.
const narrowedResultLimit = 5

// MemoryRequest is the request body for POST /api/v1/memory, the combined
// contribute-and-retrieve entry point agents use on every turn.
type MemoryRequest struct {
	Prompt    string   `json:"prompt"`
	AgentID   string   `json:"agent_id"`
	AgentName string   `json:"agent_name"`
	SessionID string   `json:"session_id,omitempty"`
	Context   string   `json:"context,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	// Refines and Consolidates request explicit derivation. Mutually
	// exclusive.
	Refines      string   `json:"refines,omitempty"`
	Consolidates []string `json:"consolidates,omitempty"`
}

// MemoryResponse is the response body for POST /api/v1/memory.
type MemoryResponse struct {
	// Contribution outcome.
	Stored          bool     `json:"stored"`
	ThoughtID       string   `json:"thought_id,omitempty"`
	PheromoneWeight float64  `json:"pheromone_weight,omitempty"`
	GateReason      string   `json:"gate_reason,omitempty"`
	QualityFlags    []string `json:"quality_flags,omitempty"`

	// Retrieval outcome.
	Results         []thoughtspace.RetrievedThought `json:"results"`
	TagDistribution []thoughtspace.TagCount         `json:"tag_distribution,omitempty"`
	Ambiguous       bool                            `json:"ambiguous,omitempty"`
	NarrowedTag     string                          `json:"narrowed_tag,omitempty"`

	// HighwaysNearby are well-trodden thoughts topically close to the
	// prompt.
	HighwaysNearby []thoughtspace.Highway `json:"highways_nearby,omitempty"`

	// Onboarding is set on an agent's first-ever query.
	Onboarding string `json:"onboarding,omitempty"`
}

// handleMemory orchestrates one agent turn: gate and classify the prompt,
// store it when it qualifies, retrieve related thoughts, narrow ambiguous
// result sets, apply session feedback, and surface nearby highways.
func (s *Server) handleMemory(c echo.Context) error {
	var req MemoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "invalid request body",
		})
	}
	if req.Prompt == "" || req.AgentID == "" || req.AgentName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "prompt, agent_id, and agent_name are required",
		})
	}
	if req.Refines != "" && len(req.Consolidates) > 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "refines and consolidates are mutually exclusive",
		})
	}
	if len(req.Consolidates) == 1 {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeMissingSourceIDs, Message: "consolidates requires at least two source ids",
		})
	}

	ctx := c.Request().Context()
	start := time.Now()
	resp := &MemoryResponse{Results: []thoughtspace.RetrievedThought{}}

	// First-time agents get pointed at the highways before anything else.
	priorQueries, err := s.engine.AgentQueryCount(ctx, req.AgentID)
	if err != nil {
		s.logger.Warn("onboarding check failed", zap.Error(err))
	} else if priorQueries == 0 {
		resp.Onboarding = "Welcome. This space holds your team's accumulated insights. " +
			"Well-trodden thoughts (highways) carry the most proven knowledge; start there."
	}

	s.contributeFromPrompt(c, &req, resp)
	s.retrieveForPrompt(c, &req, resp)

	if highways, err := s.engine.GetHighways(ctx, thoughtspace.HighwayParams{
		Query: req.Prompt,
		Limit: nearbyHighwayLimit,
	}); err != nil {
		s.logger.Warn("nearby highway lookup failed", zap.Error(err))
	} else {
		resp.HighwaysNearby = highways
	}

	s.metrics.RecordMemoryTurn(ctx, time.Since(start), resp.Stored)
	return c.JSON(http.StatusOK, resp)
}

// contributeFromPrompt decides whether the prompt is stored and performs the
// contribution. Storage failures on this path degrade to stored=false with
// the reason; retrieval still proceeds.
func (s *Server) contributeFromPrompt(c echo.Context, req *MemoryRequest, resp *MemoryResponse) {
	ctx := c.Request().Context()

	thoughtType := thoughtspace.ThoughtOriginal
	var sourceIDs []string
	switch {
	case req.Refines != "":
		thoughtType = thoughtspace.ThoughtRefinement
		sourceIDs = []string{req.Refines}
	case len(req.Consolidates) >= 2:
		thoughtType = thoughtspace.ThoughtConsolidation
		sourceIDs = req.Consolidates
	}
	explicit := thoughtType.IsDerived()

	resp.QualityFlags = s.engine.ClassifyPrompt(ctx, req.AgentID, req.Prompt)

	// Derivation bypasses the gate and the echo guard: restating context to
	// justify an iteration is expected, not noise.
	if !explicit {
		if gate := thoughtspace.MeetsContributionGate(req.Prompt); !gate.Store {
			resp.GateReason = gate.Reason
			return
		}
		for _, flag := range resp.QualityFlags {
			if flag == thoughtspace.FlagKeywordEcho {
				resp.GateReason = "restates a recent query"
				return
			}
		}
	}

	// Reuse the collection's existing tag vocabulary where the prompt
	// mentions it.
	tags := req.Tags
	if known, err := s.engine.KnownTags(ctx, 200); err == nil {
		tags = append(tags, matchKnown(req.Prompt, known, tags)...)
	}

	result, err := s.engine.Contribute(ctx, thoughtspace.ContributeParams{
		Content:         req.Prompt,
		ContributorID:   req.AgentID,
		ContributorName: req.AgentName,
		Type:            thoughtType,
		SourceIDs:       sourceIDs,
		Context:         req.Context,
		Tags:            tags,
		QualityFlags:    resp.QualityFlags,
	})
	if err != nil {
		if thoughtspace.IsValidation(err) || thoughtspace.IsNotFound(err) {
			resp.GateReason = err.Error()
			return
		}
		s.logger.Error("contribution failed", zap.Error(err))
		resp.GateReason = "storage unavailable"
		return
	}

	resp.Stored = true
	resp.ThoughtID = result.ID
	resp.PheromoneWeight = result.PheromoneWeight

	// The session's earlier retrievals evidently led to a kept insight.
	if req.SessionID != "" {
		if _, err := s.engine.ApplySessionFeedback(ctx, req.SessionID); err != nil {
			s.logger.Warn("session feedback failed", zap.Error(err))
		}
	}
}

// retrieveForPrompt runs retrieval and narrows ambiguous result sets to the
// largest tag cluster.
func (s *Server) retrieveForPrompt(c echo.Context, req *MemoryRequest, resp *MemoryResponse) {
	// Context rides in front of the prompt so the embedding reflects the
	// situation the agent is in, not just the words it typed.
	query := req.Prompt
	if req.Context != "" {
		query = req.Context + " " + req.Prompt
	}

	result, err := s.engine.Retrieve(c.Request().Context(), thoughtspace.RetrieveParams{
		Query:     query,
		AgentID:   req.AgentID,
		SessionID: req.SessionID,
		Tags:      req.Tags,
		Context:   req.Context,
	})
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		return
	}

	resp.Results = result.Thoughts
	resp.TagDistribution = result.TagDistribution
	resp.Ambiguous = result.Ambiguous

	if result.Ambiguous && len(result.TagDistribution) > 0 {
		top := result.TagDistribution[0].Tag
		var narrowed []thoughtspace.RetrievedThought
		for _, t := range result.Thoughts {
			for _, tag := range t.Tags {
				if tag == top {
					narrowed = append(narrowed, t)
					break
				}
			}
		}
		if len(narrowed) > narrowedResultLimit {
			narrowed = narrowed[:narrowedResultLimit]
		}
		resp.Results = narrowed
		resp.NarrowedTag = top
	}
}

// matchKnown returns known tags mentioned in the prompt that the caller has
// not already supplied.
func matchKnown(prompt string, known, supplied []string) []string {
	have := make(map[string]bool, len(supplied))
	for _, tag := range supplied {
		have[tag] = true
	}
	var out []string
	for _, tag := range extraction.MatchExistingTags(prompt, known) {
		if !have[tag] {
			out = append(out, tag)
		}
	}
	return out
}
