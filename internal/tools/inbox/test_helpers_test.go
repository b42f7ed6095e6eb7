package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/repository/memory"
)

// testEnv is one view with its tools registered, plus a second view of the same origin.
type testEnv struct {
	origin *memory.Origin
	svc    *app.InboxService
	other  *app.FlagView
	server *server.MCPServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	origin := memory.NewOrigin()
	view := origin.View()
	flag := app.NewFlag(view, nil)
	fv := app.WatchFlag(flag, view)
	l := app.NewMessageLog()
	svc := app.NewInboxService(l, flag, fv, true, nil)

	otherView := origin.View()
	other := app.WatchFlag(app.NewFlag(otherView, nil), otherView)
	t.Cleanup(func() {
		fv.Close()
		other.Close()
		l.Close()
	})

	return &testEnv{
		origin: origin,
		svc:    svc,
		other:  other,
		server: testServer(svc, server.WithToolHandlerMiddleware(ProviderMiddleware(l))),
	}
}

// testServer creates a MCPServer with all tools registered for testing.
func testServer(svc *app.InboxService, opts ...server.ServerOption) *server.MCPServer {
	s := server.NewMCPServer("test", "1.0.0", opts...)
	Register(s, svc, log.New(io.Discard, "", 0))
	return s
}

// callTool calls a registered tool via the MCPServer's HandleMessage.
// Returns the parsed CallToolResult or an error.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	reqJSON, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	respJSON := s.HandleMessage(context.Background(), reqJSON)

	respBytes, marshalErr := json.Marshal(respJSON)
	if marshalErr != nil {
		t.Fatalf("marshal response: %v", marshalErr)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var result mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}

	return &result, nil
}

// resultText joins all text content of a CallToolResult.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 {
		t.Fatal("no text content in result")
	}
	return strings.Join(parts, "\n")
}
