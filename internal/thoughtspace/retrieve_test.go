package thoughtspace

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOriginal(t *testing.T, store *fakeStore, id, content string, tags ...string) {
	t.Helper()
	seedThought(t, store, &Thought{
		ID:              id,
		Content:         content,
		ContributorID:   "seed-agent",
		ContributorName: "Seed Agent",
		Type:            ThoughtOriginal,
		Tags:            tags,
		PheromoneWeight: InitialPheromoneWeight,
		CreatedAt:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestRetrieveValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Retrieve(ctx, RetrieveParams{AgentID: "a"})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = svc.Retrieve(ctx, RetrieveParams{Query: "q"})
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestRetrieveReinforcesTelemetry(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "first insight")
	seedOriginal(t, store, "t2", "second insight")

	result, err := svc.Retrieve(ctx, RetrieveParams{
		Query:     "insight",
		AgentID:   "agent-1",
		SessionID: "s1",
	})
	require.NoError(t, err)
	require.Len(t, result.Thoughts, 2)

	for _, id := range []string{"t1", "t2"} {
		stored, err := svc.GetThought(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.AccessCount)
		assert.InDelta(t, 1.05, stored.PheromoneWeight, 1e-9)
		assert.Equal(t, []string{"agent-1"}, stored.AccessedBy)
		require.Len(t, stored.AccessLog, 1)
		assert.Equal(t, "s1", stored.AccessLog[0].SessionID)
		require.NotNil(t, stored.LastAccessed)

		// One co-retrieval pair pointing at the other thought.
		require.Len(t, stored.CoRetrievedWith, 1)
		assert.Equal(t, 1, stored.CoRetrievedWith[0].Count)
	}
}

func TestRetrieveRepeatedByDistinctAgents(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "popular insight")

	for i := 0; i < 5; i++ {
		_, err := svc.Retrieve(ctx, RetrieveParams{
			Query:     "popular",
			AgentID:   fmt.Sprintf("agent-%d", i),
			SessionID: fmt.Sprintf("s-%d", i),
		})
		require.NoError(t, err)
	}

	stored, err := svc.GetThought(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.AccessCount)
	assert.Len(t, stored.AccessedBy, 5)
	assert.InDelta(t, 1.25, stored.PheromoneWeight, 1e-9)
}

func TestRetrieveSameAgentNotDuplicated(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "insight")

	for i := 0; i < 3; i++ {
		_, err := svc.Retrieve(ctx, RetrieveParams{Query: "insight", AgentID: "agent-1"})
		require.NoError(t, err)
	}

	stored, err := svc.GetThought(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.AccessCount)
	assert.Equal(t, []string{"agent-1"}, stored.AccessedBy)
}

func TestAccessLogEvictsOldest(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	log := make([]AccessRecord, AccessLogCap)
	for i := range log {
		log[i] = AccessRecord{
			AgentID:   fmt.Sprintf("old-%d", i),
			SessionID: "s-old",
			Timestamp: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
	}
	seedThought(t, store, &Thought{
		ID: "t1", Content: "full log", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 1.0, AccessLog: log,
		CreatedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	_, err := svc.Retrieve(ctx, RetrieveParams{Query: "full", AgentID: "agent-new"})
	require.NoError(t, err)

	stored, err := svc.GetThought(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, stored.AccessLog, AccessLogCap)
	assert.Equal(t, "old-1", stored.AccessLog[0].AgentID)
	assert.Equal(t, "agent-new", stored.AccessLog[AccessLogCap-1].AgentID)
}

func TestCoRetrievalEvictsLowestCount(t *testing.T) {
	pairs := make([]CoRetrieval, 0, CoRetrievedCap)
	for i := 0; i < CoRetrievedCap; i++ {
		pairs = append(pairs, CoRetrieval{ThoughtID: fmt.Sprintf("p-%d", i), Count: i + 2})
	}

	updated := bumpCoRetrieval(pairs, "newcomer")
	require.Len(t, updated, CoRetrievedCap)

	ids := make(map[string]int)
	for _, co := range updated {
		ids[co.ThoughtID] = co.Count
	}
	assert.NotContains(t, ids, "p-0")
	assert.Equal(t, 1, ids["newcomer"])
}

func TestBumpCoRetrievalIncrements(t *testing.T) {
	pairs := []CoRetrieval{{ThoughtID: "a", Count: 1}}
	pairs = bumpCoRetrieval(pairs, "a")
	require.Len(t, pairs, 1)
	assert.Equal(t, 2, pairs[0].Count)
}

func TestRetrieveSupersededAdjustment(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedThought(t, store, &Thought{
		ID: "old", Content: "stale fact", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 1.0,
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	seedThought(t, store, &Thought{
		ID: "new", Content: "refined fact", ContributorID: "a", ContributorName: "A",
		Type: ThoughtRefinement, SourceIDs: []string{"old"}, PheromoneWeight: 1.0,
		CreatedAt: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	store.scores["old"] = 0.9
	store.scores["new"] = 0.8

	result, err := svc.Retrieve(ctx, RetrieveParams{Query: "fact", AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, result.Thoughts, 2)

	// The refinement outranks the thought it superseded.
	assert.Equal(t, "new", result.Thoughts[0].ID)
	assert.InDelta(t, 0.96, result.Thoughts[0].Score, 1e-9)
	assert.False(t, result.Thoughts[0].Superseded)

	assert.Equal(t, "old", result.Thoughts[1].ID)
	assert.True(t, result.Thoughts[1].Superseded)
	assert.Equal(t, "new", result.Thoughts[1].RefinedBy)
	assert.InDelta(t, 0.63, result.Thoughts[1].Score, 1e-9)
}

func TestRetrieveBoostCappedAtOne(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedThought(t, store, &Thought{
		ID: "old", Content: "stale", ContributorID: "a", ContributorName: "A",
		Type: ThoughtOriginal, PheromoneWeight: 1.0,
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	seedThought(t, store, &Thought{
		ID: "new", Content: "fresh", ContributorID: "a", ContributorName: "A",
		Type: ThoughtRefinement, SourceIDs: []string{"old"}, PheromoneWeight: 1.0,
		CreatedAt: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	})
	store.scores["old"] = 0.5
	store.scores["new"] = 0.95

	result, err := svc.Retrieve(ctx, RetrieveParams{Query: "x", AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, result.Thoughts, 2)
	assert.Equal(t, "new", result.Thoughts[0].ID)
	assert.Equal(t, 1.0, result.Thoughts[0].Score)
}

func TestRetrieveTagFilter(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "go insight", "golang")
	seedOriginal(t, store, "t2", "py insight", "python")

	result, err := svc.Retrieve(ctx, RetrieveParams{
		Query:   "insight",
		AgentID: "agent-1",
		Tags:    []string{"golang"},
	})
	require.NoError(t, err)
	require.Len(t, result.Thoughts, 1)
	assert.Equal(t, "t1", result.Thoughts[0].ID)
}

func TestRetrieveLogsQuery(t *testing.T) {
	svc, store, log := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "insight")

	_, err := svc.Retrieve(ctx, RetrieveParams{
		Query:     "insight",
		AgentID:   "agent-1",
		SessionID: "s1",
	})
	require.NoError(t, err)

	require.Len(t, log.entries, 1)
	entry := log.entries[0]
	assert.Equal(t, "agent-1", entry.AgentID)
	assert.Equal(t, "s1", entry.SessionID)
	assert.Equal(t, []string{"t1"}, entry.ReturnedIDs)
	assert.Equal(t, 1, entry.ResultCount)
}

func TestRetrieveTelemetryFailureIsSoft(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedOriginal(t, store, "t1", "insight one")
	seedOriginal(t, store, "t2", "insight two")
	store.failSetPayload["t1"] = true

	result, err := svc.Retrieve(ctx, RetrieveParams{Query: "insight", AgentID: "agent-1"})
	require.NoError(t, err)
	assert.Len(t, result.Thoughts, 2)

	// The healthy thought still got its update.
	stored, err := svc.GetThought(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AccessCount)
}

func TestRetrieveAmbiguity(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	tags := []string{"golang", "python", "kubernetes"}
	for i := 0; i < 12; i++ {
		seedOriginal(t, store, fmt.Sprintf("t-%d", i), fmt.Sprintf("insight %d", i), tags[i%3])
	}

	result, err := svc.Retrieve(ctx, RetrieveParams{Query: "insight", AgentID: "a", Limit: 12})
	require.NoError(t, err)
	assert.True(t, result.Ambiguous)
	require.Len(t, result.TagDistribution, 3)
	assert.Equal(t, 4, result.TagDistribution[0].Count)

	// A small result set is never ambiguous.
	small, err := svc.Retrieve(ctx, RetrieveParams{Query: "insight", AgentID: "a", Limit: 3})
	require.NoError(t, err)
	assert.False(t, small.Ambiguous)
}

func TestRetrieveStoreFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failAll = true

	_, err := svc.Retrieve(context.Background(), RetrieveParams{Query: "q", AgentID: "a"})
	require.Error(t, err)
	assert.Equal(t, CodeStoreError, ErrorCode(err))
}
