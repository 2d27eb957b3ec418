package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

const defaultQueryLimit = 10

type brainQueryInput struct {
	Query     string   `json:"query" jsonschema:"required,Natural-language query to search the thought space with"`
	AgentID   string   `json:"agent_id" jsonschema:"required,Stable identifier of the querying agent"`
	SessionID string   `json:"session_id,omitempty" jsonschema:"Session identifier used for feedback attribution"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Restrict results to thoughts carrying any of these tags"`
	Limit     int      `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 10)"`
}

type brainQueryThought struct {
	ID              string   `json:"id" jsonschema:"Thought identifier"`
	Content         string   `json:"content" jsonschema:"Thought content"`
	ThoughtType     string   `json:"thought_type" jsonschema:"original refinement or consolidation"`
	ContributorName string   `json:"contributor_name" jsonschema:"Name of the contributing agent"`
	Tags            []string `json:"tags,omitempty" jsonschema:"Tags attached to the thought"`
	Score           float64  `json:"score" jsonschema:"Pheromone-weighted relevance score"`
	PheromoneWeight float64  `json:"pheromone_weight" jsonschema:"Current reinforcement weight"`
	Superseded      bool     `json:"superseded,omitempty" jsonschema:"True when a newer derived thought replaces this one"`
	RefinedBy       string   `json:"refined_by,omitempty" jsonschema:"ID of the derived thought that supersedes this one"`
}

type brainQueryOutput struct {
	Thoughts        []brainQueryThought     `json:"thoughts" jsonschema:"Matching thoughts ranked by reinforced relevance"`
	Count           int                     `json:"count" jsonschema:"Number of thoughts returned"`
	TagDistribution []thoughtspace.TagCount `json:"tag_distribution,omitempty" jsonschema:"Tag frequency across the result set"`
	Ambiguous       bool                    `json:"ambiguous" jsonschema:"True when the result set spans too many topics to be conclusive"`
}

type brainContributeInput struct {
	Content       string   `json:"content" jsonschema:"required,Thought content to store"`
	AgentID       string   `json:"agent_id" jsonschema:"required,Stable identifier of the contributing agent"`
	AgentName     string   `json:"agent_name" jsonschema:"required,Display name of the contributing agent"`
	ThoughtType   string   `json:"thought_type,omitempty" jsonschema:"original refinement or consolidation (default: original)"`
	SourceIDs     []string `json:"source_ids,omitempty" jsonschema:"Parent thought IDs for refinement or consolidation"`
	Tags          []string `json:"tags,omitempty" jsonschema:"Tags to attach in addition to extracted ones"`
	Context       string   `json:"context,omitempty" jsonschema:"Situational context embedded alongside the content"`
	Category      string   `json:"category,omitempty" jsonschema:"Free-form category label"`
	Topic         string   `json:"topic,omitempty" jsonschema:"Free-form topic label"`
	TemporalScope string   `json:"temporal_scope,omitempty" jsonschema:"Validity window of the thought such as permanent or session"`
	SessionID     string   `json:"session_id,omitempty" jsonschema:"Session identifier; a stored contribution reinforces the session's earlier retrievals"`
}

type brainContributeOutput struct {
	Stored          bool     `json:"stored" jsonschema:"True when the thought was stored"`
	ID              string   `json:"id,omitempty" jsonschema:"Identifier of the stored thought"`
	PheromoneWeight float64  `json:"pheromone_weight,omitempty" jsonschema:"Initial reinforcement weight"`
	GateReason      string   `json:"gate_reason,omitempty" jsonschema:"Why the thought was not stored"`
	QualityFlags    []string `json:"quality_flags,omitempty" jsonschema:"Quality classifier flags attached to the submission"`
}

type brainHighwaysInput struct {
	Query     string `json:"query,omitempty" jsonschema:"Optional query to restrict highways to a semantic neighborhood"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum highways to return (default: 10)"`
	MinAccess int    `json:"min_access,omitempty" jsonschema:"Minimum retrieval count (default: 3)"`
	MinUsers  int    `json:"min_users,omitempty" jsonschema:"Minimum distinct retrieving agents (default: 2)"`
}

type brainHighwayEntry struct {
	ID              string  `json:"id" jsonschema:"Thought identifier"`
	ContentPreview  string  `json:"content_preview" jsonschema:"Leading excerpt of the thought content"`
	AccessCount     int     `json:"access_count" jsonschema:"Number of retrievals"`
	UniqueUsers     int     `json:"unique_users" jsonschema:"Number of distinct agents that retrieved it"`
	TrafficScore    int     `json:"traffic_score" jsonschema:"access_count times unique_users"`
	PheromoneWeight float64 `json:"pheromone_weight" jsonschema:"Current reinforcement weight"`
}

type brainHighwaysOutput struct {
	Highways []brainHighwayEntry `json:"highways" jsonschema:"Heavily travelled thoughts ordered by traffic"`
	Count    int                 `json:"count" jsonschema:"Number of highways returned"`
}

type brainLineageInput struct {
	ThoughtID string `json:"thought_id" jsonschema:"required,Thought whose derivation chain to trace"`
}

type brainLineageEntry struct {
	ID              string  `json:"id" jsonschema:"Thought identifier"`
	Content         string  `json:"content" jsonschema:"Thought content"`
	ThoughtType     string  `json:"thought_type" jsonschema:"original refinement or consolidation"`
	Depth           int     `json:"depth" jsonschema:"Position relative to the requested thought (negative is ancestor)"`
	PheromoneWeight float64 `json:"pheromone_weight" jsonschema:"Current reinforcement weight"`
	CreatedAt       string  `json:"created_at" jsonschema:"Creation timestamp"`
	Superseded      bool    `json:"superseded,omitempty" jsonschema:"True when a newer derived thought replaces this one"`
	SupersededBy    string  `json:"superseded_by,omitempty" jsonschema:"ID of the superseding thought"`
}

type brainLineageOutput struct {
	Chain     []brainLineageEntry `json:"chain" jsonschema:"Derivation chain ordered from deepest ancestor to newest descendant"`
	Truncated bool                `json:"truncated" jsonschema:"True when the chain exceeded the traversal depth limit"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "brain_query",
		Description: "Search the shared thought space; retrieval reinforces the thoughts it returns",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args brainQueryInput) (*mcp.CallToolResult, brainQueryOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "brain_query")
		out, err := s.queryTool(ctx, args)
		s.metrics.DecrementActive(ctx, "brain_query")
		s.metrics.RecordInvocation(ctx, "brain_query", time.Since(start), err)
		if err != nil {
			return nil, brainQueryOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d thoughts for query: %s", out.Count, args.Query)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "brain_contribute",
		Description: "Store a thought in the shared thought space, optionally refining or consolidating earlier thoughts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args brainContributeInput) (*mcp.CallToolResult, brainContributeOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "brain_contribute")
		out, err := s.contributeTool(ctx, args)
		s.metrics.DecrementActive(ctx, "brain_contribute")
		s.metrics.RecordInvocation(ctx, "brain_contribute", time.Since(start), err)
		if err != nil {
			return nil, brainContributeOutput{}, err
		}
		text := fmt.Sprintf("Thought stored: %s", out.ID)
		if !out.Stored {
			text = fmt.Sprintf("Thought not stored: %s", out.GateReason)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "brain_highways",
		Description: "List the most heavily travelled thoughts, ranked by access count times distinct agents",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args brainHighwaysInput) (*mcp.CallToolResult, brainHighwaysOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "brain_highways")
		out, err := s.highwaysTool(ctx, args)
		s.metrics.DecrementActive(ctx, "brain_highways")
		s.metrics.RecordInvocation(ctx, "brain_highways", time.Since(start), err)
		if err != nil {
			return nil, brainHighwaysOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d highways", out.Count)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "brain_lineage",
		Description: "Trace a thought's derivation chain through its sources and derived descendants",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args brainLineageInput) (*mcp.CallToolResult, brainLineageOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "brain_lineage")
		out, err := s.lineageTool(ctx, args)
		s.metrics.DecrementActive(ctx, "brain_lineage")
		s.metrics.RecordInvocation(ctx, "brain_lineage", time.Since(start), err)
		if err != nil {
			return nil, brainLineageOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Lineage for %s: %d thoughts", args.ThoughtID, len(out.Chain))},
			},
		}, out, nil
	})
}

func (s *Server) queryTool(ctx context.Context, args brainQueryInput) (brainQueryOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	result, err := s.engine.Retrieve(ctx, thoughtspace.RetrieveParams{
		Query:     args.Query,
		AgentID:   args.AgentID,
		SessionID: args.SessionID,
		Tags:      args.Tags,
		Limit:     limit,
	})
	if err != nil {
		return brainQueryOutput{}, err
	}

	out := brainQueryOutput{
		Thoughts:        make([]brainQueryThought, 0, len(result.Thoughts)),
		TagDistribution: result.TagDistribution,
		Ambiguous:       result.Ambiguous,
	}
	for _, th := range result.Thoughts {
		out.Thoughts = append(out.Thoughts, brainQueryThought{
			ID:              th.ID,
			Content:         th.Content,
			ThoughtType:     string(th.Type),
			ContributorName: th.ContributorName,
			Tags:            th.Tags,
			Score:           th.Score,
			PheromoneWeight: th.PheromoneWeight,
			Superseded:      th.Superseded,
			RefinedBy:       th.RefinedBy,
		})
	}
	out.Count = len(out.Thoughts)
	return out, nil
}

func (s *Server) contributeTool(ctx context.Context, args brainContributeInput) (brainContributeOutput, error) {
	thoughtType := thoughtspace.ThoughtType(args.ThoughtType)
	if args.ThoughtType == "" {
		thoughtType = thoughtspace.ThoughtOriginal
	}

	out := brainContributeOutput{
		QualityFlags: s.engine.ClassifyPrompt(ctx, args.AgentID, args.Content),
	}

	// Derivation bypasses the gate and the echo guard: restating context to
	// justify an iteration is expected, not noise.
	if !thoughtType.IsDerived() {
		if gate := thoughtspace.MeetsContributionGate(args.Content); !gate.Store {
			out.GateReason = gate.Reason
			return out, nil
		}
		for _, flag := range out.QualityFlags {
			if flag == thoughtspace.FlagKeywordEcho {
				out.GateReason = "restates a recent query"
				return out, nil
			}
		}
	}

	result, err := s.engine.Contribute(ctx, thoughtspace.ContributeParams{
		Content:         args.Content,
		ContributorID:   args.AgentID,
		ContributorName: args.AgentName,
		Type:            thoughtType,
		SourceIDs:       args.SourceIDs,
		Tags:            args.Tags,
		Context:         args.Context,
		Category:        args.Category,
		Topic:           args.Topic,
		TemporalScope:   args.TemporalScope,
		QualityFlags:    out.QualityFlags,
	})
	if err != nil {
		return brainContributeOutput{}, err
	}

	out.Stored = true
	out.ID = result.ID
	out.PheromoneWeight = result.PheromoneWeight

	// The session's earlier retrievals evidently led to a kept insight.
	if args.SessionID != "" {
		if _, err := s.engine.ApplySessionFeedback(ctx, args.SessionID); err != nil {
			s.logger.Warn("session feedback failed", zap.String("session_id", args.SessionID), zap.Error(err))
		}
	}

	return out, nil
}

func (s *Server) highwaysTool(ctx context.Context, args brainHighwaysInput) (brainHighwaysOutput, error) {
	highways, err := s.engine.GetHighways(ctx, thoughtspace.HighwayParams{
		Query:     args.Query,
		Limit:     args.Limit,
		MinAccess: args.MinAccess,
		MinUsers:  args.MinUsers,
	})
	if err != nil {
		return brainHighwaysOutput{}, err
	}

	out := brainHighwaysOutput{Highways: make([]brainHighwayEntry, 0, len(highways))}
	for _, h := range highways {
		out.Highways = append(out.Highways, brainHighwayEntry{
			ID:              h.ID,
			ContentPreview:  h.ContentPreview,
			AccessCount:     h.AccessCount,
			UniqueUsers:     h.UniqueUsers,
			TrafficScore:    h.TrafficScore,
			PheromoneWeight: h.PheromoneWeight,
		})
	}
	out.Count = len(out.Highways)
	return out, nil
}

func (s *Server) lineageTool(ctx context.Context, args brainLineageInput) (brainLineageOutput, error) {
	lineage, err := s.engine.GetLineage(ctx, args.ThoughtID)
	if err != nil {
		return brainLineageOutput{}, err
	}

	out := brainLineageOutput{
		Chain:     make([]brainLineageEntry, 0, len(lineage.Chain)),
		Truncated: lineage.Truncated,
	}
	for _, node := range lineage.Chain {
		out.Chain = append(out.Chain, brainLineageEntry{
			ID:              node.ID,
			Content:         node.Content,
			ThoughtType:     string(node.Type),
			Depth:           node.Depth,
			PheromoneWeight: node.PheromoneWeight,
			CreatedAt:       node.CreatedAt,
			Superseded:      node.Superseded,
			SupersededBy:    node.SupersededBy,
		})
	}
	return out, nil
}
