package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	old := serverURL
	serverURL = srv.URL
	t.Cleanup(func() { serverURL = old })
}

func TestGetJSON_DecodesResponse(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Thoughts: 7})
	})

	var health HealthResponse
	require.NoError(t, getJSON("/health", &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 7, health.Thoughts)
}

func TestPostJSON_SendsBody(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req FeedbackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)

		_ = json.NewEncoder(w).Encode(map[string]int{"reinforced": 2})
	})

	var resp struct {
		Reinforced int `json:"reinforced"`
	}
	require.NoError(t, postJSON("/api/v1/feedback", FeedbackRequest{SessionID: "sess-1"}, &resp))
	assert.Equal(t, 2, resp.Reinforced)
}

func TestPostJSON_SurfacesServerError(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"VALIDATION_ERROR","message":"content is required"}`))
	})

	err := postJSON("/api/v1/thoughts", ContributeRequest{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestRunFeedback_RequiresTarget(t *testing.T) {
	feedbackSessionID = ""
	feedbackThoughtIDs = nil

	err := runFeedback(feedbackCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--session or --thoughts")
}
