package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/session"
)

// handleSearchSession answers a query against one session's page index.
func (s *Server) handleSearchSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	topK := request.GetInt("top_k", search.DefaultTopK)

	result, err := s.engine.Search(ctx, sid, query, topK)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			return mcp.NewToolResultError("query must not be empty"), nil
		case errors.Is(err, search.ErrUnknownSession):
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sid)), nil
		case errors.Is(err, search.ErrNotIndexed):
			return mcp.NewToolResultText("The session has no indexed pages yet. Check session_ready and retry once indexing has caught up."), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(formatResult(result)), nil
}

// handleSessionReady reports the session's indexing readiness.
func (s *Server) handleSessionReady(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	ready, err := s.sessions.Ready(ctx, sid)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sid)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("readiness check failed: %v", err)), nil
	}

	if ready {
		return mcp.NewToolResultText("ready: all uploaded pages are indexed and searchable."), nil
	}
	return mcp.NewToolResultText("not ready: pages are still being indexed. Poll again shortly."), nil
}

// formatResult converts a search result into a rich text format optimized
// for AI agent consumption.
func formatResult(r *search.Result) string {
	var sb strings.Builder
	sb.WriteString(r.Answer)
	sb.WriteString("\n")

	if len(r.Sources) == 0 {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("\nSources (%d of %d indexed pages):\n", len(r.Sources), r.TotalResults))
	for i, src := range r.Sources {
		sb.WriteString(fmt.Sprintf("%d. %s page %d (similarity %.1f%%)\n",
			i+1, src.DocumentID, src.PageNumber, src.Score*100))
	}

	return sb.String()
}
