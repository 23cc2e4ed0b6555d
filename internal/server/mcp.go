package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/knowledge"
	"github.com/ZanzyTHEbar/campus-mcp/internal/tools"
	"github.com/gin-gonic/gin"
)

// ToolRequest names a tool and its JSON parameters
type ToolRequest struct {
	ToolName   string          `json:"tool_name" example:"analyze_concentration"`
	Parameters json.RawMessage `json:"parameters" swaggertype:"object"`
}

// ToolListResponse enumerates the callable tools
type ToolListResponse struct {
	Tools []tools.Tool `json:"tools"`
}

// RAGRequest is a knowledge base query. A max_results of zero or less
// selects the default of 3.
type RAGRequest struct {
	Query      string `json:"query" example:"concentration"`
	MaxResults int    `json:"max_results" example:"3"`
}

// RAGResponse carries the matching documents
type RAGResponse struct {
	Results   []knowledge.Document `json:"results"`
	Query     string               `json:"query"`
	Timestamp string               `json:"timestamp"`
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

// handleListTools godoc
// @Summary      List tools
// @Tags         mcp
// @Produce      json
// @Success      200  {object}  ToolListResponse
// @Router       /mcp/tools/list [get]
func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, ToolListResponse{Tools: s.dispatcher.Tools()})
}

// handleExecuteTool godoc
// @Summary      Execute a tool
// @Tags         mcp
// @Accept       json
// @Produce      json
// @Param        request  body      ToolRequest  true  "tool call"
// @Success      200      {object}  tools.Result
// @Failure      400      {object}  apperrors.ErrorResponse
// @Router       /mcp/tools [post]
func (s *Server) handleExecuteTool(c *gin.Context) {
	var req ToolRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Abort(c, err)
		return
	}

	start := time.Now()
	result, err := s.dispatcher.Execute(req.ToolName, req.Parameters)
	s.metrics.RecordTool(req.ToolName, err == nil)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		if appErr.Category == apperrors.CategoryUnknownTool {
			appErr = apperrors.NewUnknownToolError(appErr.Msg, s.dispatcher.Names(), err)
		}
		apperrors.Abort(c, appErr)
		return
	}

	score, bucket := summarize(result.Result)
	s.logger.ToolLogger(req.ToolName, score, bucket, time.Since(start))

	c.JSON(http.StatusOK, result)
}

// summarize extracts the headline score and bucket of a tool result
func summarize(out any) (float64, string) {
	switch r := out.(type) {
	case analysis.ConcentrationResult:
		return r.Score, string(r.Interpretation)
	case analysis.SuccessResult:
		return r.Score, string(r.Probability)
	}
	return 0, ""
}

// handleRAGSearch godoc
// @Summary      Search the knowledge base
// @Tags         mcp
// @Accept       json
// @Produce      json
// @Param        request  body      RAGRequest  true  "query"
// @Success      200      {object}  RAGResponse
// @Failure      400      {object}  apperrors.ErrorResponse
// @Router       /mcp/rag [post]
func (s *Server) handleRAGSearch(c *gin.Context) {
	var req RAGRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Abort(c, err)
		return
	}
	if err := s.security.ValidateQuery(req.Query); err != nil {
		apperrors.Abort(c, err)
		return
	}

	results := s.knowledge.Search(req.Query, req.MaxResults)
	if results == nil {
		results = []knowledge.Document{}
	}

	s.metrics.IncrementSearch()
	s.logger.SearchLogger(req.Query, len(results))

	c.JSON(http.StatusOK, RAGResponse{
		Results:   results,
		Query:     req.Query,
		Timestamp: s.timestamp(),
	})
}
