package inbox

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
)

// registerSetFlag registers the set_flag tool.
func registerSetFlag(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("set_flag",
			mcp.WithDescription("Write the cross-view notification flag. Other views of the same origin are notified."),
			mcp.WithBoolean("value", mcp.Required(), mcp.Description("New flag value")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			v, ok := req.GetArguments()["value"].(bool)
			if !ok {
				return nil, fmt.Errorf("'value' is required")
			}
			if err := svc.SetFlag(v); err != nil {
				return nil, err
			}
			logger.Printf("Flag set to %v", v)
			return mcp.NewToolResultText(fmt.Sprintf("%s=%s", domain.FlagKey, domain.EncodeFlag(v))), nil
		},
	)
}

// registerClearFlag registers the clear_flag tool.
func registerClearFlag(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("clear_flag",
			mcp.WithDescription("Clear the cross-view notification flag. Idempotent."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := svc.SetFlag(false); err != nil {
				return nil, err
			}
			logger.Println("Flag cleared")
			return mcp.NewToolResultText(domain.FlagKey + "=false"), nil
		},
	)
}

// registerReadFlag registers the read_flag tool.
func registerReadFlag(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("read_flag",
			mcp.WithDescription("Read this view's copy of the cross-view notification flag."),
			mcp.WithBoolean("refresh", mcp.Description("Re-read storage instead of returning the last observed value (default: false)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			v := svc.FlagValue()
			if refresh, _ := req.GetArguments()["refresh"].(bool); refresh && svc.View() != nil {
				v = svc.View().Refresh()
			}
			return mcp.NewToolResultText(fmt.Sprintf("%s=%s", domain.FlagKey, domain.EncodeFlag(v))), nil
		},
	)
}
