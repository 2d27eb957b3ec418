package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// lineageCmd traces a thought's derivation chain
var lineageCmd = &cobra.Command{
	Use:   "lineage <thought-id>",
	Short: "Trace a thought's derivation chain",
	Long: `Trace a thought's derivation chain through its sources and derived
descendants. Negative depths are ancestors, positive depths descendants.

Examples:
  thoughtctl lineage 2f0c9a8e-1d7b-4f7e-9c3e-88f1f2b6d901`,
	Args: cobra.ExactArgs(1),
	RunE: runLineage,
}

// LineageEntry matches thoughtspace.LineageNode
type LineageEntry struct {
	ID              string  `json:"id"`
	Content         string  `json:"content"`
	ThoughtType     string  `json:"thought_type"`
	Depth           int     `json:"depth"`
	PheromoneWeight float64 `json:"pheromone_weight"`
	CreatedAt       string  `json:"created_at"`
	Superseded      bool    `json:"superseded,omitempty"`
	SupersededBy    string  `json:"superseded_by,omitempty"`
}

// LineageResponse matches thoughtspace.Lineage
type LineageResponse struct {
	Chain     []LineageEntry `json:"chain"`
	Truncated bool           `json:"truncated,omitempty"`
}

func runLineage(cmd *cobra.Command, args []string) error {
	var resp LineageResponse
	if err := getJSON("/api/v1/thoughts/"+args[0]+"/lineage", &resp); err != nil {
		return err
	}

	for _, node := range resp.Chain {
		marker := " "
		if node.ID == args[0] {
			marker = "*"
		}
		fmt.Printf("%s %+d %-13s %s\n", marker, node.Depth, node.ThoughtType, node.Content)
		if node.Superseded {
			fmt.Printf("      superseded by %s\n", node.SupersededBy)
		}
	}
	if resp.Truncated {
		fmt.Println("(chain truncated at depth limit)")
	}
	return nil
}
