package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/embeddings"
	"github.com/slidesage/slidesage/internal/index"
	"github.com/slidesage/slidesage/internal/ingest"
	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/session"
)

// mockEmbedder implements embeddings.Embedder for testing. Content that
// mentions a known phrase lands on that phrase's axis.
type mockEmbedder struct {
	axes map[string]int
}

var _ embeddings.Embedder = (*mockEmbedder)(nil)

func (m *mockEmbedder) vector(content string) []float32 {
	v := make([]float32, m.Dimensions())
	for phrase, axis := range m.axes {
		if strings.Contains(content, phrase) {
			v[axis] = 1
			return v
		}
	}
	v[m.Dimensions()-1] = 1
	return v
}

func (m *mockEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedImage(_ context.Context, png []byte) ([]float32, error) {
	return m.vector(string(png)), nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Name() string    { return "mock" }

type mockGenerator struct{}

func (mockGenerator) GenerateAnswer(_ context.Context, query string, _ [][]byte) (string, error) {
	return "grounded answer for: " + query, nil
}

func (mockGenerator) Name() string { return "mock" }

// newTestStack builds the full in-memory pipeline and returns the MCP server
// plus a ready-made session with one indexed page mentioning "alpha".
func newTestStack(t *testing.T) (*Server, string) {
	t.Helper()

	blobs := blob.NewMemory()
	indexes := index.NewStore(blobs)
	embedder := &mockEmbedder{axes: map[string]int{"alpha": 0, "beta": 1}}

	builder := ingest.NewBuilder(blobs, indexes, embedder, time.Second)
	sessions := session.NewManager(blobs, indexes, time.Hour)
	engine := search.NewEngine(blobs, indexes, embedder, mockGenerator{}, time.Second)

	ctx := context.Background()
	sid, err := sessions.Create(ctx)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	key := session.ImageKey(sid, "deck", 1)
	if err := blobs.Put(ctx, key, []byte("png with alpha content")); err != nil {
		t.Fatalf("storing page: %v", err)
	}
	if err := builder.HandlePageCreated(ctx, ingest.PageCreated{
		SessionID:  sid,
		DocumentID: "deck",
		PageNumber: 1,
		ImageKey:   key,
	}); err != nil {
		t.Fatalf("indexing page: %v", err)
	}

	return NewServer(sessions, engine), sid
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_session", searchSessionTool, "search_session"},
		{"session_ready", sessionReadyTool, "session_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestStack(t)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleSearchSession(t *testing.T) {
	srv, sid := newTestStack(t)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"session_id": sid,
			"query":      "tell me about alpha",
		}

		result, err := srv.handleSearchSession(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "deck page 1") {
			t.Errorf("result missing source line: %q", text)
		}
		if !strings.Contains(text, "alpha") {
			t.Errorf("result missing answer: %q", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"session_id": sid}

		result, err := srv.handleSearchSession(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"session_id": "nope",
			"query":      "anything",
		}

		result, err := srv.handleSearchSession(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown session")
		}
	})

	t.Run("unindexed session is not an error", func(t *testing.T) {
		srv2, _ := newTestStack(t)
		sid2, err := srv2.sessions.Create(ctx)
		if err != nil {
			t.Fatal(err)
		}

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"session_id": sid2,
			"query":      "anything",
		}

		result, err := srv2.handleSearchSession(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Errorf("unindexed session should advise polling, not fail: %v", result.Content)
		}
	})
}

func TestHandleSessionReady(t *testing.T) {
	srv, sid := newTestStack(t)
	ctx := context.Background()

	t.Run("indexed session is ready", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"session_id": sid}

		result, err := srv.handleSessionReady(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if !strings.HasPrefix(resultText(t, result), "ready") {
			t.Errorf("expected ready, got %q", resultText(t, result))
		}
	})

	t.Run("missing session_id", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSessionReady(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing session_id")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"session_id": "nope"}

		result, err := srv.handleSessionReady(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown session")
		}
	})
}

// resultText extracts the first text content block from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}
