// Package inbox exposes the message log and the notification flag as MCP tools.
package inbox

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/inboxflag/internal/app"
)

// Register registers the inbox tools with the mcp-go server.
// Pair it with ProviderMiddleware so handlers can resolve the message log from their context.
func Register(s *server.MCPServer, svc *app.InboxService, logger *log.Logger) {
	// Message log tools (3)
	registerAddMessage(s, svc, logger)
	registerMarkAsRead(s, svc, logger)
	registerGetMessages(s, logger)

	// Flag tools (3)
	registerSetFlag(s, svc, logger)
	registerClearFlag(s, svc, logger)
	registerReadFlag(s, svc, logger)
}
