package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/review"
	"github.com/joescharf/codereview/internal/store"
)

const defaultListLimit = 20

// Server exposes the review service and history as MCP tools.
type Server struct {
	svc     *review.Service
	store   store.Store
	version string
}

// NewServer creates the MCP server wrapper. The store may be nil when history
// is disabled.
func NewServer(svc *review.Service, s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{svc: svc, store: s, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("codereview", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.reviewCodeTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// review_code
func (s *Server) reviewCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_code",
		mcp.WithDescription("Review a student's code submission against its test results. Returns review items (errors and warnings with line ranges, fix hints and concepts) and a final report."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Student source code")),
		mcp.WithArray("test_results",
			mcp.Description("Executed test cases; status is pass or fail"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"input":  map[string]any{"type": "string"},
					"expect": map[string]any{"type": "string"},
					"actual": map[string]any{"type": "string"},
					"status": map[string]any{"type": "string"},
				},
			}),
		),
		mcp.WithString("requirements", mcp.Description("Assignment text")),
		mcp.WithArray("expected_concepts", mcp.Description("Concepts the assignment practices"), mcp.WithStringItems()),
	)
	return tool, s.handleReviewCode
}

func (s *Server) handleReviewCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.svc == nil || !s.svc.Available() {
		return mcp.NewToolResultError("review model not configured (set anthropic.api_key or ANTHROPIC_API_KEY)"), nil
	}
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}

	req := review.Request{
		StudentSubmission: review.Submission{Code: code},
		Assignment: review.Assignment{
			Content:          request.GetString("requirements", ""),
			ExpectedConcepts: request.GetStringSlice("expected_concepts", nil),
		},
	}
	if raw, ok := request.GetArguments()["test_results"]; ok && raw != nil {
		if req.TestResults, err = decodeTestResults(raw); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid test_results: %v", err)), nil
		}
	}

	resp, err := s.svc.Review(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}
	return jsonResult(resp)
}

// list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_reviews",
		mcp.WithDescription("List recent reviews, newest first. Returns id, verdict, overview and counts."),
		mcp.WithString("verdict",
			mcp.Description("Filter by verdict"),
			mcp.Enum(string(models.VerdictErrors), string(models.VerdictImprovement), string(models.VerdictCorrect)),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum reviews to return (default 20)")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("review history disabled"), nil
	}
	filter := store.ReviewListFilter{
		Verdict: models.Verdict(request.GetString("verdict", "")),
		Limit:   request.GetInt("limit", defaultListLimit),
	}
	records, err := s.store.ListReviews(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID           string         `json:"id"`
		Verdict      models.Verdict `json:"verdict"`
		Overview     string         `json:"overview"`
		ErrorCount   int            `json:"error_count"`
		WarningCount int            `json:"warning_count"`
		CreatedAt    string         `json:"created_at"`
	}
	out := make([]reviewOut, len(records))
	for i, r := range records {
		out[i] = reviewOut{
			ID:           r.ID,
			Verdict:      r.Verdict,
			Overview:     r.Overview,
			ErrorCount:   r.ErrorCount,
			WarningCount: r.WarningCount,
			CreatedAt:    r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return jsonResult(out)
}

// get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_review",
		mcp.WithDescription("Get a stored review by id or unique id prefix, including its items and final report."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review id or prefix")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("review history disabled"), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	rec, err := s.store.FindReview(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
	case errors.Is(err, store.ErrAmbiguous):
		return mcp.NewToolResultError(fmt.Sprintf("review id %q is ambiguous; use more characters", id)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("failed to get review: %v", err)), nil
	}
	return jsonResult(rec)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// decodeTestResults re-encodes a loosely typed tool argument into test results.
func decodeTestResults(raw any) ([]review.TestResult, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var results []review.TestResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
