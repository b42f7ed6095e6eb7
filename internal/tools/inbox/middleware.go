package inbox

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
)

// suppressBannerTools already report unread state themselves.
var suppressBannerTools = map[string]struct{}{
	"get_messages": {},
	"mark_as_read": {},
}

// ProviderMiddleware attaches l to every tool call's context and appends an
// unread banner to successful results while the log is in the unread state.
func ProviderMiddleware(l *app.MessageLog) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx = app.WithMessageLog(ctx, l)
			result, err := next(ctx, req)
			if err != nil || result == nil || result.IsError {
				return result, err
			}
			if _, suppress := suppressBannerTools[req.Params.Name]; suppress {
				return result, nil
			}
			if banner := buildBanner(l); banner != "" {
				result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: banner})
			}
			return result, nil
		}
	}
}

func buildBanner(l *app.MessageLog) string {
	st := l.State()
	if !st.NewMessage {
		return ""
	}
	return fmt.Sprintf("[unread: %s] Call get_messages, then mark_as_read.", domain.BadgeLabel(st.Unread))
}
