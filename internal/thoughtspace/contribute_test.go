package thoughtspace

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() ContributeParams {
	return ContributeParams{
		Content:         "Retry transient Qdrant errors with exponential backoff instead of failing the request",
		ContributorID:   "agent-1",
		ContributorName: "Agent One",
		Type:            ThoughtOriginal,
	}
}

func TestContributeValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*ContributeParams)
		wantCode string
	}{
		{
			name:     "empty content",
			mutate:   func(p *ContributeParams) { p.Content = "" },
			wantCode: CodeValidation,
		},
		{
			name:     "content too long",
			mutate:   func(p *ContributeParams) { p.Content = strings.Repeat("x", MaxContentLength+1) },
			wantCode: CodeValidation,
		},
		{
			name:     "missing contributor",
			mutate:   func(p *ContributeParams) { p.ContributorID = "" },
			wantCode: CodeValidation,
		},
		{
			name:     "context too long",
			mutate:   func(p *ContributeParams) { p.Context = strings.Repeat("x", MaxContextLength+1) },
			wantCode: CodeValidation,
		},
		{
			name:     "unknown type",
			mutate:   func(p *ContributeParams) { p.Type = "speculation" },
			wantCode: CodeInvalidThoughtType,
		},
		{
			name:     "original with sources",
			mutate:   func(p *ContributeParams) { p.SourceIDs = []string{"t1"} },
			wantCode: CodeValidation,
		},
		{
			name: "refinement without sources",
			mutate: func(p *ContributeParams) {
				p.Type = ThoughtRefinement
			},
			wantCode: CodeMissingSourceIDs,
		},
		{
			name: "consolidation with one source",
			mutate: func(p *ContributeParams) {
				p.Type = ThoughtConsolidation
				p.SourceIDs = []string{"t1"}
			},
			wantCode: CodeMissingSourceIDs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)
			_, err := svc.Contribute(ctx, params)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestContributeOriginal(t *testing.T) {
	svc, _, _ := newTestService(t)

	params := validParams()
	params.Tags = []string{"infra"}

	result, err := svc.Contribute(context.Background(), params)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, InitialPheromoneWeight, result.PheromoneWeight)

	stored, err := svc.GetThought(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, params.Content, stored.Content)
	assert.Equal(t, 0, stored.AccessCount)
	assert.Empty(t, stored.AccessedBy)
	assert.Empty(t, stored.AccessLog)
	assert.Empty(t, stored.CoRetrievedWith)
	assert.Nil(t, stored.LastAccessed)
	assert.False(t, stored.CreatedAt.IsZero())

	// Caller tags first, then keyword-extracted ones.
	assert.Equal(t, "infra", stored.Tags[0])
	assert.Contains(t, stored.Tags, "database")
}

func TestContributeUniqueIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.Contribute(context.Background(), validParams())
	require.NoError(t, err)
	second, err := svc.Contribute(context.Background(), validParams())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRefinementInheritsWeight(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedThought(t, store, &Thought{
		ID: "parent", Content: "original insight", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 4.0, CreatedAt: time.Now(),
	})

	params := validParams()
	params.Type = ThoughtRefinement
	params.SourceIDs = []string{"parent"}

	result, err := svc.Contribute(ctx, params)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.PheromoneWeight, 1e-9)
}

func TestRefinementInheritsFloor(t *testing.T) {
	svc, store, _ := newTestService(t)

	seedThought(t, store, &Thought{
		ID: "parent", Content: "barely used", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 1.2, CreatedAt: time.Now(),
	})

	params := validParams()
	params.Type = ThoughtRefinement
	params.SourceIDs = []string{"parent"}

	result, err := svc.Contribute(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, InitialPheromoneWeight, result.PheromoneWeight)
}

func TestConsolidationInheritsMean(t *testing.T) {
	svc, store, _ := newTestService(t)

	seedThought(t, store, &Thought{
		ID: "p1", Content: "one", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 4.0, CreatedAt: time.Now(),
	})
	seedThought(t, store, &Thought{
		ID: "p2", Content: "two", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 2.0, CreatedAt: time.Now(),
	})

	params := validParams()
	params.Type = ThoughtConsolidation
	params.SourceIDs = []string{"p1", "p2"}

	result, err := svc.Contribute(context.Background(), params)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, result.PheromoneWeight, 1e-9)
}

func TestContributeMissingSource(t *testing.T) {
	svc, store, _ := newTestService(t)

	seedThought(t, store, &Thought{
		ID: "p1", Content: "one", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 1.0, CreatedAt: time.Now(),
	})

	params := validParams()
	params.Type = ThoughtConsolidation
	params.SourceIDs = []string{"p1", "ghost"}

	_, err := svc.Contribute(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, CodeSourceNotFound, ErrorCode(err))
}

func TestContributeEmbeddingFailure(t *testing.T) {
	store := newFakeStore()
	svc, err := NewService(store, &fakeEmbedder{fail: true}, nil, Config{}, nil)
	require.NoError(t, err)

	_, err = svc.Contribute(context.Background(), validParams())
	require.Error(t, err)
	assert.Equal(t, CodeEmbeddingFailed, ErrorCode(err))
}
