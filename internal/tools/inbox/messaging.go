package inbox

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/domain"
)

// maxMessageID is the largest magnitude a JSON number holds exactly.
const maxMessageID = 1 << 53

// registerAddMessage registers the add_message tool.
func registerAddMessage(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("add_message",
			mcp.WithDescription("Append a chat message to this view's log and mark the log unread."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Message ID (duplicates are accepted)")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
			mcp.WithBoolean("is_from_device", mcp.Description("True when sent from this device (default: false)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			id, ok := args["id"].(float64)
			if !ok {
				return nil, fmt.Errorf("'id' is required")
			}
			if id != math.Trunc(id) || math.Abs(id) > maxMessageID {
				return nil, fmt.Errorf("'id' must be an integer within ±%d", int64(maxMessageID))
			}
			text, _ := args["text"].(string)
			if text == "" {
				return nil, fmt.Errorf("'text' is required")
			}
			fromDevice, _ := args["is_from_device"].(bool)

			msg := domain.Message{ID: int(id), IsFromDevice: fromDevice, Text: text}
			if err := svc.Deliver(msg); err != nil {
				return nil, err
			}
			logger.Printf("Message #%d added (from_device=%v)", msg.ID, msg.IsFromDevice)
			return mcp.NewToolResultText(fmt.Sprintf("Message #%d added", msg.ID)), nil
		},
	)
}

// registerMarkAsRead registers the mark_as_read tool.
func registerMarkAsRead(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("mark_as_read",
			mcp.WithDescription("Mark this view's message log as read. Messages are kept."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := svc.MarkAsRead(); err != nil {
				return nil, err
			}
			logger.Println("Messages marked as read")
			return mcp.NewToolResultText("Marked as read"), nil
		},
	)
}

// registerGetMessages registers the get_messages tool.
func registerGetMessages(s *server.MCPServer, logger *log.Logger) {
	s.AddTool(
		mcp.NewTool("get_messages",
			mcp.WithDescription("List messages in this view's log, oldest first, with the unread state."),
			mcp.WithNumber("limit", mcp.Description("Return only the last N messages (default: all)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			l, err := app.MessageLogFromContext(ctx)
			if err != nil {
				return nil, err
			}
			st := l.State()
			msgs := st.Messages
			if v, ok := req.GetArguments()["limit"].(float64); ok && v >= 1 && int(v) < len(msgs) {
				msgs = msgs[len(msgs)-int(v):]
			}

			var b strings.Builder
			if st.NewMessage {
				fmt.Fprintf(&b, "Unread: %s\n", domain.BadgeLabel(st.Unread))
			} else {
				b.WriteString("Unread: none\n")
			}
			if len(msgs) == 0 {
				b.WriteString("No messages")
				return mcp.NewToolResultText(b.String()), nil
			}
			for _, m := range msgs {
				who := "them"
				if m.IsFromDevice {
					who = "me"
				}
				fmt.Fprintf(&b, "#%d [%s] %s\n", m.ID, who, m.Text)
			}
			return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
		},
	)
}
