package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/bestpractices"
	"github.com/fyrsmithlabs/thoughtd/internal/thoughtspace"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Thoughts  uint64 `json:"thoughts"`
	Documents uint64 `json:"documents,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()

	count, err := s.engine.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
	}

	resp := HealthResponse{Status: "ok", Thoughts: count}
	if s.practices != nil {
		// Document count is informational; its failure does not degrade
		// health.
		if docs, err := s.practices.Count(ctx); err == nil {
			resp.Documents = docs
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ContributeRequest is the request body for POST /api/v1/thoughts.
type ContributeRequest struct {
	Content         string   `json:"content"`
	ContributorID   string   `json:"contributor_id"`
	ContributorName string   `json:"contributor_name"`
	ThoughtType     string   `json:"thought_type"`
	SourceIDs       []string `json:"source_ids,omitempty"`
	Context         string   `json:"context,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Category        string   `json:"category,omitempty"`
	Topic           string   `json:"topic,omitempty"`
	TemporalScope   string   `json:"temporal_scope,omitempty"`
	CorrectedFact   string   `json:"corrected_fact,omitempty"`
	CorrectFact     string   `json:"correct_fact,omitempty"`
	Supersedes      string   `json:"supersedes,omitempty"`
}

func (s *Server) handleContribute(c echo.Context) error {
	var req ContributeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "invalid request body",
		})
	}

	thoughtType := thoughtspace.ThoughtType(req.ThoughtType)
	if req.ThoughtType == "" {
		thoughtType = thoughtspace.ThoughtOriginal
	}

	start := time.Now()
	result, err := s.engine.Contribute(c.Request().Context(), thoughtspace.ContributeParams{
		Content:         req.Content,
		ContributorID:   req.ContributorID,
		ContributorName: req.ContributorName,
		Type:            thoughtType,
		SourceIDs:       req.SourceIDs,
		Context:         req.Context,
		Tags:            req.Tags,
		Category:        req.Category,
		Topic:           req.Topic,
		TemporalScope:   req.TemporalScope,
		CorrectedFact:   req.CorrectedFact,
		CorrectFact:     req.CorrectFact,
		Supersedes:      req.Supersedes,
	})
	s.metrics.RecordContribute(c.Request().Context(), time.Since(start), err)
	if err != nil {
		return s.engineError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (s *Server) handleLineage(c echo.Context) error {
	lineage, err := s.engine.GetLineage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(http.StatusOK, lineage)
}

func (s *Server) handleHighways(c echo.Context) error {
	params := thoughtspace.HighwayParams{
		Query: c.QueryParam("query"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Code: thoughtspace.CodeValidation, Message: "limit must be a positive integer",
			})
		}
		params.Limit = n
	}
	if v := c.QueryParam("min_access"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MinAccess = n
		}
	}
	if v := c.QueryParam("min_users"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.MinUsers = n
		}
	}

	highways, err := s.engine.GetHighways(c.Request().Context(), params)
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"highways": highways})
}

func (s *Server) handlePatchMetadata(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "invalid request body",
		})
	}

	if err := s.engine.PatchMetadata(c.Request().Context(), c.Param("id"), fields); err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// DecayRunResponse is the response body for POST /api/v1/decay/run.
type DecayRunResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) handleDecayRun(c echo.Context) error {
	updated, err := s.engine.RunDecayPass(c.Request().Context())
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(http.StatusOK, DecayRunResponse{Updated: updated})
}

// FeedbackRequest is the request body for POST /api/v1/feedback. Either a
// session id or an explicit id list.
type FeedbackRequest struct {
	SessionID  string   `json:"session_id,omitempty"`
	ThoughtIDs []string `json:"thought_ids,omitempty"`
}

func (s *Server) handleFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "invalid request body",
		})
	}
	if req.SessionID == "" && len(req.ThoughtIDs) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "session_id or thought_ids required",
		})
	}

	ctx := c.Request().Context()
	reinforced := 0
	if req.SessionID != "" {
		n, err := s.engine.ApplySessionFeedback(ctx, req.SessionID)
		if err != nil {
			return s.engineError(c, err)
		}
		reinforced += n
	}
	if len(req.ThoughtIDs) > 0 {
		n, err := s.engine.ApplyImplicitFeedback(ctx, req.ThoughtIDs)
		if err != nil {
			return s.engineError(c, err)
		}
		reinforced += n
	}

	return c.JSON(http.StatusOK, map[string]int{"reinforced": reinforced})
}

// IngestRequest is the request body for POST /api/v1/ingest.
type IngestRequest struct {
	Documents []bestpractices.Document `json:"documents"`
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "invalid request body",
		})
	}

	ids, err := s.practices.Ingest(c.Request().Context(), req.Documents)
	if err != nil {
		s.logger.Warn("ingest failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"ids": ids})
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Source string `json:"source,omitempty"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil || req.Query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Code: thoughtspace.CodeValidation, Message: "query is required",
		})
	}

	results, err := s.practices.Query(c.Request().Context(), req.Query, req.Limit, req.Source)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Code: thoughtspace.CodeStoreError, Message: "search failed",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

func contextWithTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}
