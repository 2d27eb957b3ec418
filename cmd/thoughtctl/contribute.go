package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	contributeAgentID   string
	contributeAgentName string
	contributeType      string
	contributeSources   []string
	contributeTags      []string
	contributeContext   string
)

// contributeCmd stores a thought directly, bypassing the quality gate
var contributeCmd = &cobra.Command{
	Use:   "contribute [content]",
	Short: "Store a thought in the thought space",
	Long: `Store a thought in the thought space. Content is taken from the argument,
or from stdin when the argument is "-" or omitted.

Examples:
  # Store an original thought
  thoughtctl contribute "Qdrant scroll needs a page limit or it walks the whole collection."

  # Refine an existing thought
  thoughtctl contribute "The page limit should stay under 1024." --type refinement --sources t1

  # Consolidate several thoughts from a file
  cat summary.txt | thoughtctl contribute - --type consolidation --sources t1,t2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runContribute,
}

func init() {
	contributeCmd.Flags().StringVar(&contributeAgentID, "agent-id", "thoughtctl", "agent identifier")
	contributeCmd.Flags().StringVar(&contributeAgentName, "agent-name", "thoughtctl", "agent display name")
	contributeCmd.Flags().StringVar(&contributeType, "type", "original", "thought type: original, refinement, or consolidation")
	contributeCmd.Flags().StringSliceVar(&contributeSources, "sources", nil, "source thought IDs for refinement or consolidation")
	contributeCmd.Flags().StringSliceVar(&contributeTags, "tags", nil, "tags to attach")
	contributeCmd.Flags().StringVar(&contributeContext, "context", "", "supporting context embedded alongside the content")
}

// ContributeRequest matches internal/http/handlers.go
type ContributeRequest struct {
	Content         string   `json:"content"`
	ContributorID   string   `json:"contributor_id"`
	ContributorName string   `json:"contributor_name"`
	ThoughtType     string   `json:"thought_type"`
	SourceIDs       []string `json:"source_ids,omitempty"`
	Context         string   `json:"context,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// ContributeResponse matches thoughtspace.ContributeResult
type ContributeResponse struct {
	ID              string  `json:"id"`
	PheromoneWeight float64 `json:"pheromone_weight"`
}

func runContribute(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		content = string(data)
	} else {
		content = args[0]
	}
	if content == "" {
		return fmt.Errorf("no content to contribute")
	}

	req := ContributeRequest{
		Content:         content,
		ContributorID:   contributeAgentID,
		ContributorName: contributeAgentName,
		ThoughtType:     contributeType,
		SourceIDs:       contributeSources,
		Context:         contributeContext,
		Tags:            contributeTags,
	}

	var resp ContributeResponse
	if err := postJSON("/api/v1/thoughts", req, &resp); err != nil {
		return err
	}

	fmt.Printf("Thought stored: %s (weight %.2f)\n", resp.ID, resp.PheromoneWeight)
	return nil
}
