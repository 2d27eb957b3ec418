package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryAgentID   string
	queryAgentName string
	querySessionID string
	queryTags      []string
)

// queryCmd runs one memory turn against the server
var queryCmd = &cobra.Command{
	Use:   "query <prompt>",
	Short: "Query the thought space with a prompt",
	Long: `Query the thought space with a prompt. The prompt goes through the full
memory turn: retrieval with reinforcement, highway lookup, and (if the prompt
qualifies) contribution.

Examples:
  # Query as a named agent
  thoughtctl query "how do we handle qdrant timeouts" --agent-id cli --agent-name "CLI User"

  # Narrow the search with tags
  thoughtctl query "retry strategy" --agent-id cli --agent-name "CLI User" --tags golang,reliability`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryAgentID, "agent-id", "thoughtctl", "agent identifier")
	queryCmd.Flags().StringVar(&queryAgentName, "agent-name", "thoughtctl", "agent display name")
	queryCmd.Flags().StringVar(&querySessionID, "session", "", "session identifier for feedback attribution")
	queryCmd.Flags().StringSliceVar(&queryTags, "tags", nil, "restrict results to these tags")
}

// MemoryRequest matches internal/http/memory.go
type MemoryRequest struct {
	Prompt    string   `json:"prompt"`
	AgentID   string   `json:"agent_id"`
	AgentName string   `json:"agent_name"`
	SessionID string   `json:"session_id,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// MemoryResponse matches internal/http/memory.go
type MemoryResponse struct {
	Stored          bool     `json:"stored"`
	ThoughtID       string   `json:"thought_id,omitempty"`
	PheromoneWeight float64  `json:"pheromone_weight,omitempty"`
	GateReason      string   `json:"gate_reason,omitempty"`
	QualityFlags    []string `json:"quality_flags,omitempty"`
	Results         []struct {
		ID              string   `json:"id"`
		Content         string   `json:"content"`
		ContributorName string   `json:"contributor_name"`
		ThoughtType     string   `json:"thought_type"`
		Score           float64  `json:"score"`
		PheromoneWeight float64  `json:"pheromone_weight"`
		Tags            []string `json:"tags,omitempty"`
		Superseded      bool     `json:"superseded,omitempty"`
		RefinedBy       string   `json:"refined_by,omitempty"`
	} `json:"results"`
	Ambiguous   bool   `json:"ambiguous,omitempty"`
	NarrowedTag string `json:"narrowed_tag,omitempty"`
	Onboarding  string `json:"onboarding,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	req := MemoryRequest{
		Prompt:    args[0],
		AgentID:   queryAgentID,
		AgentName: queryAgentName,
		SessionID: querySessionID,
		Tags:      queryTags,
	}

	var resp MemoryResponse
	if err := postJSON("/api/v1/memory", req, &resp); err != nil {
		return err
	}

	if resp.Onboarding != "" {
		fmt.Printf("%s\n\n", resp.Onboarding)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No matching thoughts.")
	}
	for i, r := range resp.Results {
		marker := ""
		if r.Superseded {
			marker = fmt.Sprintf(" [superseded by %s]", r.RefinedBy)
		}
		fmt.Printf("%2d. (%.3f) %s%s\n", i+1, r.Score, r.Content, marker)
		fmt.Printf("    %s by %s", r.ThoughtType, r.ContributorName)
		if len(r.Tags) > 0 {
			fmt.Printf("  tags: %s", strings.Join(r.Tags, ", "))
		}
		fmt.Printf("  id: %s\n", r.ID)
	}

	if resp.Ambiguous {
		fmt.Printf("\nResults were ambiguous; narrowed to tag %q.\n", resp.NarrowedTag)
	}
	if resp.Stored {
		fmt.Printf("\nPrompt stored as thought %s (weight %.2f)\n", resp.ThoughtID, resp.PheromoneWeight)
	} else if resp.GateReason != "" {
		fmt.Printf("\nPrompt not stored: %s\n", resp.GateReason)
	}
	return nil
}
