package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	feedbackSessionID  string
	feedbackThoughtIDs []string
)

// decayCmd triggers a decay pass
var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run a pheromone decay pass now",
	Long: `Run a pheromone decay pass immediately instead of waiting for the
scheduler. Thoughts idle for over an hour have their weight reduced.

Examples:
  thoughtctl decay`,
	RunE: runDecay,
}

// feedbackCmd reinforces thoughts that proved useful
var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Reinforce thoughts that proved useful",
	Long: `Reinforce thoughts that proved useful, either everything returned in a
session or an explicit list of thought IDs.

Examples:
  # Reinforce everything a session retrieved
  thoughtctl feedback --session sess-42

  # Reinforce specific thoughts
  thoughtctl feedback --thoughts t1,t2`,
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackSessionID, "session", "", "session whose retrieved thoughts to reinforce")
	feedbackCmd.Flags().StringSliceVar(&feedbackThoughtIDs, "thoughts", nil, "explicit thought IDs to reinforce")
}

// DecayRunResponse matches internal/http/handlers.go
type DecayRunResponse struct {
	Updated int `json:"updated"`
}

func runDecay(cmd *cobra.Command, args []string) error {
	var resp DecayRunResponse
	if err := postJSON("/api/v1/decay/run", struct{}{}, &resp); err != nil {
		return err
	}
	fmt.Printf("Decay pass complete: %d thoughts updated\n", resp.Updated)
	return nil
}

// FeedbackRequest matches internal/http/handlers.go
type FeedbackRequest struct {
	SessionID  string   `json:"session_id,omitempty"`
	ThoughtIDs []string `json:"thought_ids,omitempty"`
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if feedbackSessionID == "" && len(feedbackThoughtIDs) == 0 {
		return fmt.Errorf("either --session or --thoughts is required")
	}

	req := FeedbackRequest{
		SessionID:  feedbackSessionID,
		ThoughtIDs: feedbackThoughtIDs,
	}

	var resp struct {
		Reinforced int `json:"reinforced"`
	}
	if err := postJSON("/api/v1/feedback", req, &resp); err != nil {
		return err
	}
	fmt.Printf("Reinforced %d thoughts\n", resp.Reinforced)
	return nil
}
