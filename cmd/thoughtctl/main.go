// Package main implements the thoughtctl CLI for manual operations against
// the thoughtd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the thoughtd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "thoughtctl",
	Short: "CLI for thoughtd HTTP server operations",
	Long: `thoughtctl is a command-line interface for interacting with the thoughtd
HTTP server. It provides commands for querying and contributing thoughts,
inspecting highways and lineage, and running maintenance operations.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8700", "thoughtd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(contributeCmd)
	rootCmd.AddCommand(highwaysCmd)
	rootCmd.AddCommand(lineageCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(feedbackCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check thoughtd server health",
	Long: `Check the health status of the thoughtd HTTP server.

Examples:
  # Check health
  thoughtctl health

  # Check health on a different server
  thoughtctl health --server http://localhost:8080`,
	RunE: runHealth,
}

// HealthResponse matches internal/http/handlers.go
type HealthResponse struct {
	Status    string `json:"status"`
	Thoughts  int    `json:"thoughts"`
	Documents int    `json:"documents,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	var health HealthResponse
	if err := getJSON("/health", &health); err != nil {
		return err
	}
	fmt.Printf("Server Status: %s (%d thoughts, %d documents)\n", health.Status, health.Thoughts, health.Documents)
	return nil
}

// postJSON sends a POST request with a JSON body and decodes the response
// into out.
func postJSON(path string, body, out interface{}) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return serverError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getJSON sends a GET request and decodes the response into out.
func getJSON(path string, out interface{}) error {
	url := serverURL + path
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return serverError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func serverError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
