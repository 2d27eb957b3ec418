package thoughtspace

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/thoughtd/internal/querylog"
	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store with enough filter support to
// exercise the engine.
type fakeStore struct {
	mu     sync.Mutex
	points map[string]*vectorstore.Point
	order  []string

	// scores overrides similarity scores per id. Unset ids score 0.5.
	scores map[string]float32

	// failSetPayload makes SetPayload fail for the listed ids.
	failSetPayload map[string]bool

	// failAll makes every operation fail.
	failAll bool

	ensuredSchema *vectorstore.IndexSchema
	ensuredSize   uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		points:         make(map[string]*vectorstore.Point),
		scores:         make(map[string]float32),
		failSetPayload: make(map[string]bool),
	}
}

func (f *fakeStore) EnsureCollection(ctx context.Context, collection string, vectorSize uint64, schema *vectorstore.IndexSchema) error {
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.ensuredSize = vectorSize
	f.ensuredSchema = schema
	return nil
}

func (f *fakeStore) Upsert(ctx context.Context, collection string, points []*vectorstore.Point) error {
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range points {
		if _, ok := f.points[p.ID]; !ok {
			f.order = append(f.order, p.ID)
		}
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *vectorstore.Filter) ([]*vectorstore.ScoredPoint, error) {
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var hits []*vectorstore.ScoredPoint
	for _, id := range f.order {
		p := f.points[id]
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		score, ok := f.scores[id]
		if !ok {
			score = 0.5
		}
		hits = append(hits, &vectorstore.ScoredPoint{Point: clonePoint(p), Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if uint64(len(hits)) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) Get(ctx context.Context, collection string, ids []string) ([]*vectorstore.Point, error) {
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*vectorstore.Point
	for _, id := range ids {
		if p, ok := f.points[id]; ok {
			cloned := clonePoint(p)
			out = append(out, &cloned)
		}
	}
	return out, nil
}

func (f *fakeStore) SetPayload(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if f.failAll {
		return fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSetPayload[id] {
		return fmt.Errorf("write rejected for %s", id)
	}
	p, ok := f.points[id]
	if !ok {
		return vectorstore.ErrNotFound
	}
	for k, v := range fields {
		p.Payload[k] = v
	}
	return nil
}

func (f *fakeStore) Scroll(ctx context.Context, collection string, filter *vectorstore.Filter, pageSize uint32, cursor string) (*vectorstore.Page, error) {
	if f.failAll {
		return nil, fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}

	var matched []*vectorstore.Point
	for _, id := range f.order {
		p := f.points[id]
		if matchesFilter(p.Payload, filter) {
			cloned := clonePoint(p)
			matched = append(matched, &cloned)
		}
	}

	if start >= len(matched) {
		return &vectorstore.Page{}, nil
	}
	end := start + int(pageSize)
	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	} else {
		end = len(matched)
	}
	return &vectorstore.Page{Points: matched[start:end], NextCursor: next}, nil
}

func (f *fakeStore) Delete(ctx context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeStore) Count(ctx context.Context, collection string) (uint64, error) {
	if f.failAll {
		return 0, fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.points)), nil
}

func (f *fakeStore) Health(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                     { return nil }

func clonePoint(p *vectorstore.Point) vectorstore.Point {
	payload := make(map[string]interface{}, len(p.Payload))
	for k, v := range p.Payload {
		payload[k] = v
	}
	return vectorstore.Point{ID: p.ID, Vector: p.Vector, Payload: payload}
}

func matchesFilter(payload map[string]interface{}, filter *vectorstore.Filter) bool {
	if filter == nil {
		return true
	}
	for _, cond := range filter.Must {
		if !matchesCondition(payload, cond) {
			return false
		}
	}
	for _, cond := range filter.MustNot {
		if matchesCondition(payload, cond) {
			return false
		}
	}
	if len(filter.Should) > 0 {
		any := false
		for _, cond := range filter.Should {
			if matchesCondition(payload, cond) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func matchesCondition(payload map[string]interface{}, cond vectorstore.Condition) bool {
	value, ok := payload[cond.Field]
	if !ok || value == nil {
		return false
	}

	switch {
	case cond.Match != nil:
		if want, isStr := cond.Match.(string); isStr {
			if s, isS := value.(string); isS {
				return s == want
			}
			return contains(asStringSlice(value), want)
		}
		return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", cond.Match)

	case len(cond.MatchAny) > 0:
		if s, isS := value.(string); isS {
			return contains(cond.MatchAny, s)
		}
		for _, item := range asStringSlice(value) {
			if contains(cond.MatchAny, item) {
				return true
			}
		}
		return false

	case cond.Range != nil:
		n := asFloat(value)
		r := cond.Range
		if r.Gte != nil && n < *r.Gte {
			return false
		}
		if r.Lte != nil && n > *r.Lte {
			return false
		}
		if r.Gt != nil && n <= *r.Gt {
			return false
		}
		if r.Lt != nil && n >= *r.Lt {
			return false
		}
		return true
	}

	return false
}

// fakeEmbedder returns a fixed vector for every input.
type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("model not loaded")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("model not loaded")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Close() error   { return nil }

// fakeQueryLog is an in-memory querylog.Log.
type fakeQueryLog struct {
	mu      sync.Mutex
	entries []querylog.Entry
	fail    bool
}

func (f *fakeQueryLog) Append(ctx context.Context, entry *querylog.Entry) error {
	if f.fail {
		return fmt.Errorf("log down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeQueryLog) CountByAgent(ctx context.Context, agentID string) (int, error) {
	if f.fail {
		return 0, fmt.Errorf("log down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.AgentID == agentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeQueryLog) RecentTextsByAgent(ctx context.Context, agentID string, n int) ([]string, error) {
	if f.fail {
		return nil, fmt.Errorf("log down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for i := len(f.entries) - 1; i >= 0 && len(texts) < n; i-- {
		e := f.entries[i]
		if e.AgentID == agentID && e.QueryText != "" {
			texts = append(texts, e.QueryText)
		}
	}
	return texts, nil
}

func (f *fakeQueryLog) ReturnedIDsBySession(ctx context.Context, sessionID string) ([]string, error) {
	if f.fail {
		return nil, fmt.Errorf("log down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, e := range f.entries {
		if e.SessionID != sessionID {
			continue
		}
		for _, id := range e.ReturnedIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (f *fakeQueryLog) Close() error { return nil }
