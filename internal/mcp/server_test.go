package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

type stubEngine struct {
	contributeParams *thoughtspace.ContributeParams
	contributeResult *thoughtspace.ContributeResult
	contributeErr    error

	retrieveParams *thoughtspace.RetrieveParams
	retrieveResult *thoughtspace.RetrieveResult
	retrieveErr    error

	lineageID     string
	lineageResult *thoughtspace.Lineage
	lineageErr    error

	highwayParams *thoughtspace.HighwayParams
	highways      []thoughtspace.Highway
	highwaysErr   error

	feedbackSession string
	feedbackCount   int
	feedbackErr     error

	classifyPrompt string
	classifyFlags  []string
}

func (e *stubEngine) Contribute(_ context.Context, params thoughtspace.ContributeParams) (*thoughtspace.ContributeResult, error) {
	e.contributeParams = &params
	if e.contributeErr != nil {
		return nil, e.contributeErr
	}
	if e.contributeResult != nil {
		return e.contributeResult, nil
	}
	return &thoughtspace.ContributeResult{ID: "t1", PheromoneWeight: 1.0}, nil
}

func (e *stubEngine) Retrieve(_ context.Context, params thoughtspace.RetrieveParams) (*thoughtspace.RetrieveResult, error) {
	e.retrieveParams = &params
	if e.retrieveErr != nil {
		return nil, e.retrieveErr
	}
	if e.retrieveResult != nil {
		return e.retrieveResult, nil
	}
	return &thoughtspace.RetrieveResult{}, nil
}

func (e *stubEngine) GetLineage(_ context.Context, thoughtID string) (*thoughtspace.Lineage, error) {
	e.lineageID = thoughtID
	if e.lineageErr != nil {
		return nil, e.lineageErr
	}
	if e.lineageResult != nil {
		return e.lineageResult, nil
	}
	return &thoughtspace.Lineage{}, nil
}

func (e *stubEngine) GetHighways(_ context.Context, params thoughtspace.HighwayParams) ([]thoughtspace.Highway, error) {
	e.highwayParams = &params
	return e.highways, e.highwaysErr
}

func (e *stubEngine) ApplySessionFeedback(_ context.Context, sessionID string) (int, error) {
	e.feedbackSession = sessionID
	return e.feedbackCount, e.feedbackErr
}

func (e *stubEngine) ClassifyPrompt(_ context.Context, _, prompt string) []string {
	e.classifyPrompt = prompt
	return e.classifyFlags
}

func newTestMCPServer(t *testing.T, engine *stubEngine) *Server {
	t.Helper()
	srv, err := NewServer(&Config{Logger: zap.NewNop()}, engine)
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine is required")
}

func TestNewServer_DefaultConfig(t *testing.T) {
	srv, err := NewServer(nil, &stubEngine{})
	require.NoError(t, err)
	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.metrics)
}

func TestQueryTool_MapsResults(t *testing.T) {
	engine := &stubEngine{
		retrieveResult: &thoughtspace.RetrieveResult{
			Thoughts: []thoughtspace.RetrievedThought{
				{
					ID:              "t1",
					Content:         "Prefer context timeouts on outbound calls.",
					ContributorName: "builder",
					Type:            thoughtspace.ThoughtOriginal,
					Score:           0.9,
					PheromoneWeight: 1.05,
					Tags:            []string{"golang"},
					Superseded:      true,
					RefinedBy:       "t2",
				},
			},
			TagDistribution: []thoughtspace.TagCount{{Tag: "golang", Count: 1}},
			Ambiguous:       false,
		},
	}
	srv := newTestMCPServer(t, engine)

	out, err := srv.queryTool(context.Background(), brainQueryInput{
		Query:   "timeouts",
		AgentID: "agent-1",
	})
	require.NoError(t, err)

	require.Equal(t, 1, out.Count)
	got := out.Thoughts[0]
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "original", got.ThoughtType)
	assert.Equal(t, "builder", got.ContributorName)
	assert.InDelta(t, 0.9, got.Score, 1e-9)
	assert.True(t, got.Superseded)
	assert.Equal(t, "t2", got.RefinedBy)
	assert.Equal(t, []thoughtspace.TagCount{{Tag: "golang", Count: 1}}, out.TagDistribution)

	require.NotNil(t, engine.retrieveParams)
	assert.Equal(t, defaultQueryLimit, engine.retrieveParams.Limit)
}

func TestQueryTool_DoesNotApplyFeedback(t *testing.T) {
	// Reading alone is not evidence of usefulness; only a contribution made
	// within the session reinforces its earlier retrievals.
	engine := &stubEngine{
		retrieveResult: &thoughtspace.RetrieveResult{
			Thoughts: []thoughtspace.RetrievedThought{{ID: "t1"}},
		},
	}
	srv := newTestMCPServer(t, engine)

	_, err := srv.queryTool(context.Background(), brainQueryInput{
		Query:     "timeouts",
		AgentID:   "agent-1",
		SessionID: "sess-9",
	})
	require.NoError(t, err)
	assert.Empty(t, engine.feedbackSession)
}

func TestQueryTool_PropagatesEngineError(t *testing.T) {
	engine := &stubEngine{
		retrieveErr: thoughtspace.NewError(thoughtspace.CodeValidation, "query is required"),
	}
	srv := newTestMCPServer(t, engine)

	_, err := srv.queryTool(context.Background(), brainQueryInput{AgentID: "agent-1"})
	require.Error(t, err)
	assert.True(t, thoughtspace.IsValidation(err))
}

func TestContributeTool_DefaultsToOriginal(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestMCPServer(t, engine)

	out, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:   "Retries without jitter synchronize into thundering herds.",
		AgentID:   "agent-1",
		AgentName: "builder",
	})
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.Equal(t, "t1", out.ID)
	assert.InDelta(t, 1.0, out.PheromoneWeight, 1e-9)

	require.NotNil(t, engine.contributeParams)
	assert.Equal(t, thoughtspace.ThoughtOriginal, engine.contributeParams.Type)
}

func TestContributeTool_GatesQuestions(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestMCPServer(t, engine)

	out, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:   "What is Kubernetes?",
		AgentID:   "agent-1",
		AgentName: "builder",
	})
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.NotEmpty(t, out.GateReason)
	assert.Nil(t, engine.contributeParams, "gated submission must not reach storage")
}

func TestContributeTool_SuppressesQueryEcho(t *testing.T) {
	engine := &stubEngine{classifyFlags: []string{thoughtspace.FlagKeywordEcho}}
	srv := newTestMCPServer(t, engine)

	out, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:   "Connection pool exhaustion stems from leaked transactions in the worker path.",
		AgentID:   "agent-1",
		AgentName: "builder",
	})
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.Equal(t, "restates a recent query", out.GateReason)
	assert.Nil(t, engine.contributeParams)
}

func TestContributeTool_DerivationBypassesGate(t *testing.T) {
	engine := &stubEngine{classifyFlags: []string{thoughtspace.FlagKeywordEcho}}
	srv := newTestMCPServer(t, engine)

	out, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:     "Only on Windows?",
		AgentID:     "agent-1",
		AgentName:   "builder",
		ThoughtType: "refinement",
		SourceIDs:   []string{"t1"},
	})
	require.NoError(t, err)
	assert.True(t, out.Stored)

	require.NotNil(t, engine.contributeParams)
	assert.Equal(t, []string{thoughtspace.FlagKeywordEcho}, engine.contributeParams.QualityFlags)
}

func TestContributeTool_SessionFeedback(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestMCPServer(t, engine)

	_, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:   "Retries without jitter synchronize into thundering herds.",
		AgentID:   "agent-1",
		AgentName: "builder",
		SessionID: "sess-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-9", engine.feedbackSession)
}

func TestContributeTool_PassesDerivation(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestMCPServer(t, engine)

	_, err := srv.contributeTool(context.Background(), brainContributeInput{
		Content:     "Jittered retries also need a cap on total attempts.",
		AgentID:     "agent-1",
		AgentName:   "builder",
		ThoughtType: "refinement",
		SourceIDs:   []string{"t1"},
		Tags:        []string{"reliability"},
	})
	require.NoError(t, err)

	require.NotNil(t, engine.contributeParams)
	assert.Equal(t, thoughtspace.ThoughtRefinement, engine.contributeParams.Type)
	assert.Equal(t, []string{"t1"}, engine.contributeParams.SourceIDs)
	assert.Equal(t, []string{"reliability"}, engine.contributeParams.Tags)
}

func TestHighwaysTool_MapsEntries(t *testing.T) {
	engine := &stubEngine{
		highways: []thoughtspace.Highway{
			{ID: "t1", ContentPreview: "Prefer context timeouts", AccessCount: 6, UniqueUsers: 3, TrafficScore: 18, PheromoneWeight: 1.4},
		},
	}
	srv := newTestMCPServer(t, engine)

	out, err := srv.highwaysTool(context.Background(), brainHighwaysInput{Query: "timeouts", Limit: 5})
	require.NoError(t, err)

	require.Equal(t, 1, out.Count)
	assert.Equal(t, 18, out.Highways[0].TrafficScore)
	assert.Equal(t, 3, out.Highways[0].UniqueUsers)

	require.NotNil(t, engine.highwayParams)
	assert.Equal(t, "timeouts", engine.highwayParams.Query)
	assert.Equal(t, 5, engine.highwayParams.Limit)
}

func TestLineageTool_MapsChain(t *testing.T) {
	engine := &stubEngine{
		lineageResult: &thoughtspace.Lineage{
			Chain: []thoughtspace.LineageNode{
				{ID: "a", Type: thoughtspace.ThoughtOriginal, Depth: -1, Superseded: true, SupersededBy: "b"},
				{ID: "b", Type: thoughtspace.ThoughtRefinement, Depth: 0},
			},
			Truncated: true,
		},
	}
	srv := newTestMCPServer(t, engine)

	out, err := srv.lineageTool(context.Background(), brainLineageInput{ThoughtID: "b"})
	require.NoError(t, err)

	assert.Equal(t, "b", engine.lineageID)
	require.Len(t, out.Chain, 2)
	assert.Equal(t, -1, out.Chain[0].Depth)
	assert.Equal(t, "b", out.Chain[0].SupersededBy)
	assert.True(t, out.Truncated)
}

func TestLineageTool_NotFound(t *testing.T) {
	engine := &stubEngine{
		lineageErr: thoughtspace.NewError(thoughtspace.CodeNotFound, "thought missing not found"),
	}
	srv := newTestMCPServer(t, engine)

	_, err := srv.lineageTool(context.Background(), brainLineageInput{ThoughtID: "missing"})
	require.Error(t, err)
	assert.True(t, thoughtspace.IsNotFound(err))
}
