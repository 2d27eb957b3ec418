package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	highwaysQuery     string
	highwaysLimit     int
	highwaysMinAccess int
	highwaysMinUsers  int
)

// highwaysCmd lists the most travelled thoughts
var highwaysCmd = &cobra.Command{
	Use:   "highways",
	Short: "List the most heavily travelled thoughts",
	Long: `List highways: thoughts retrieved often and by several distinct agents,
ranked by access count times unique users.

Examples:
  # Global top highways
  thoughtctl highways

  # Highways near a topic
  thoughtctl highways --query "qdrant timeouts" --limit 5`,
	RunE: runHighways,
}

func init() {
	highwaysCmd.Flags().StringVar(&highwaysQuery, "query", "", "restrict highways to a semantic neighborhood")
	highwaysCmd.Flags().IntVar(&highwaysLimit, "limit", 10, "maximum highways to return")
	highwaysCmd.Flags().IntVar(&highwaysMinAccess, "min-access", 0, "minimum retrieval count (server default when 0)")
	highwaysCmd.Flags().IntVar(&highwaysMinUsers, "min-users", 0, "minimum distinct agents (server default when 0)")
}

// HighwayEntry matches thoughtspace.Highway
type HighwayEntry struct {
	ID              string   `json:"id"`
	ContentPreview  string   `json:"content_preview"`
	AccessCount     int      `json:"access_count"`
	UniqueUsers     int      `json:"unique_users"`
	TrafficScore    int      `json:"traffic_score"`
	PheromoneWeight float64  `json:"pheromone_weight"`
	Tags            []string `json:"tags,omitempty"`
}

func runHighways(cmd *cobra.Command, args []string) error {
	params := url.Values{}
	if highwaysQuery != "" {
		params.Set("query", highwaysQuery)
	}
	if highwaysLimit > 0 {
		params.Set("limit", strconv.Itoa(highwaysLimit))
	}
	if highwaysMinAccess > 0 {
		params.Set("min_access", strconv.Itoa(highwaysMinAccess))
	}
	if highwaysMinUsers > 0 {
		params.Set("min_users", strconv.Itoa(highwaysMinUsers))
	}

	path := "/api/v1/highways"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp struct {
		Highways []HighwayEntry `json:"highways"`
	}
	if err := getJSON(path, &resp); err != nil {
		return err
	}

	highways := resp.Highways
	if len(highways) == 0 {
		fmt.Println("No highways yet.")
		return nil
	}
	for i, h := range highways {
		fmt.Printf("%2d. [traffic %d = %d accesses x %d agents] %s\n",
			i+1, h.TrafficScore, h.AccessCount, h.UniqueUsers, h.ContentPreview)
		fmt.Printf("    weight %.2f  id: %s\n", h.PheromoneWeight, h.ID)
	}
	return nil
}
