package thoughtspace

import (
	"context"
	"sort"
	"time"

	"github.com/fyrsmithlabs/thoughtd/internal/vectorstore"
)

const (
	// supersededPenalty discounts results with a newer derived descendant.
	supersededPenalty = 0.7

	// derivedBoost promotes a derived result above sources it superseded in
	// the same result set. The boosted score is capped at 1.0.
	derivedBoost = 1.2
)

// LineageNode is one thought in a derivation chain. Depth is negative for
// ancestors, zero for the root, positive for descendants.
type LineageNode struct {
	ID              string      `json:"id"`
	Content         string      `json:"content"`
	Type            ThoughtType `json:"thought_type"`
	Depth           int         `json:"depth"`
	PheromoneWeight float64     `json:"pheromone_weight"`
	CreatedAt       string      `json:"created_at"`
	Superseded      bool        `json:"superseded,omitempty"`
	SupersededBy    string      `json:"superseded_by,omitempty"`
}

// Lineage is a full derivation chain sorted by depth.
type Lineage struct {
	Chain []LineageNode `json:"chain"`

	// Truncated is set when traversal hit the depth cap in either direction.
	Truncated bool `json:"truncated,omitempty"`
}

// GetLineage computes the derivation chain around one thought: ancestors via
// source_ids, descendants via reverse lookup. Traversal keeps a visited set
// so cyclic or malformed source references terminate, and stops at
// MaxLineageDepth in each direction.
func (s *Service) GetLineage(ctx context.Context, id string) (*Lineage, error) {
	root, err := s.GetThought(ctx, id)
	if err != nil {
		return nil, err
	}

	lineage := &Lineage{}
	visited := map[string]bool{root.ID: true}
	byID := map[string]*Thought{root.ID: root}
	depths := map[string]int{root.ID: 0}

	if err := s.traverseUp(ctx, root, -1, visited, byID, depths, lineage); err != nil {
		return nil, err
	}
	if err := s.traverseDown(ctx, root, 1, visited, byID, depths, lineage); err != nil {
		return nil, err
	}

	for tID, depth := range depths {
		t := byID[tID]
		node := LineageNode{
			ID:              t.ID,
			Content:         t.Content,
			Type:            t.Type,
			Depth:           depth,
			PheromoneWeight: t.PheromoneWeight,
			CreatedAt:       t.CreatedAt.Format(time.RFC3339Nano),
		}

		// A node is superseded when a direct derived child in the chain is
		// newer than it.
		for childID, child := range byID {
			if childID == t.ID || !child.Type.IsDerived() {
				continue
			}
			if !contains(child.SourceIDs, t.ID) {
				continue
			}
			if child.CreatedAt.After(t.CreatedAt) {
				node.Superseded = true
				node.SupersededBy = childID
				break
			}
		}

		lineage.Chain = append(lineage.Chain, node)
	}

	sort.Slice(lineage.Chain, func(i, j int) bool {
		if lineage.Chain[i].Depth != lineage.Chain[j].Depth {
			return lineage.Chain[i].Depth < lineage.Chain[j].Depth
		}
		return lineage.Chain[i].ID < lineage.Chain[j].ID
	})

	return lineage, nil
}

// traverseUp walks ancestors recursively via source_ids.
func (s *Service) traverseUp(ctx context.Context, t *Thought, depth int, visited map[string]bool, byID map[string]*Thought, depths map[string]int, lineage *Lineage) error {
	if len(t.SourceIDs) == 0 {
		return nil
	}
	if -depth > MaxLineageDepth {
		lineage.Truncated = true
		return nil
	}

	var fetch []string
	for _, id := range t.SourceIDs {
		if !visited[id] {
			fetch = append(fetch, id)
		}
	}
	if len(fetch) == 0 {
		return nil
	}

	points, err := s.store.Get(ctx, s.collection, fetch)
	if err != nil {
		return WrapError(CodeStoreError, err, "loading ancestors of %s", t.ID)
	}

	for _, p := range points {
		if visited[p.ID] {
			continue
		}
		visited[p.ID] = true
		parent := decodePayload(p.ID, p.Payload)
		byID[p.ID] = parent
		depths[p.ID] = depth
		if err := s.traverseUp(ctx, parent, depth-1, visited, byID, depths, lineage); err != nil {
			return err
		}
	}

	return nil
}

// traverseDown walks descendants recursively via reverse source_ids lookup.
func (s *Service) traverseDown(ctx context.Context, t *Thought, depth int, visited map[string]bool, byID map[string]*Thought, depths map[string]int, lineage *Lineage) error {
	if depth > MaxLineageDepth {
		lineage.Truncated = true
		return nil
	}

	children, err := s.derivedChildren(ctx, t.ID)
	if err != nil {
		return err
	}

	for _, child := range children {
		if visited[child.ID] {
			continue
		}
		visited[child.ID] = true
		byID[child.ID] = child
		depths[child.ID] = depth
		if err := s.traverseDown(ctx, child, depth+1, visited, byID, depths, lineage); err != nil {
			return err
		}
	}

	return nil
}

// derivedChildren returns every derived thought that lists id as a source.
func (s *Service) derivedChildren(ctx context.Context, id string) ([]*Thought, error) {
	filter := &vectorstore.Filter{
		Must: []vectorstore.Condition{
			{Field: fieldSourceIDs, Match: id},
			{Field: fieldThoughtType, MatchAny: []string{string(ThoughtRefinement), string(ThoughtConsolidation)}},
		},
	}

	var children []*Thought
	cursor := ""
	for {
		page, err := s.store.Scroll(ctx, s.collection, filter, scrollPageSize, cursor)
		if err != nil {
			return nil, WrapError(CodeStoreError, err, "finding descendants of %s", id)
		}
		for _, p := range page.Points {
			children = append(children, decodePayload(p.ID, p.Payload))
		}
		if page.NextCursor == "" {
			return children, nil
		}
		cursor = page.NextCursor
	}
}

// newestDerivedChild returns the id of the most recent derived child created
// after the given time, or empty when the thought is not superseded.
func (s *Service) newestDerivedChild(ctx context.Context, id string, createdAt time.Time) (string, error) {
	children, err := s.derivedChildren(ctx, id)
	if err != nil {
		return "", err
	}

	var newest *Thought
	for _, child := range children {
		if !child.CreatedAt.After(createdAt) {
			continue
		}
		if newest == nil || child.CreatedAt.After(newest.CreatedAt) {
			newest = child
		}
	}
	if newest == nil {
		return "", nil
	}
	return newest.ID, nil
}
