package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchSessionTool defines the search_session MCP tool.
var searchSessionTool = mcp.NewTool("search_session",
	mcp.WithDescription("Search the indexed slide pages of a session with a natural language query. Returns a grounded answer plus the matching pages and their similarity scores."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the session to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of pages to retrieve (default 5)"),
	),
)

// sessionReadyTool defines the session_ready MCP tool.
var sessionReadyTool = mcp.NewTool("session_ready",
	mcp.WithDescription("Check whether a session has finished indexing all of its uploaded pages. Poll this before searching a freshly uploaded deck."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the session to check"),
	),
)
