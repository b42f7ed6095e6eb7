// MCP Inboxflag Server
// Stdio for the driving client, HTTP for the dashboard, WebSocket feed, MCP and metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaakkos/inboxflag/internal/app"
	"github.com/jaakkos/inboxflag/internal/dashboard"
	"github.com/jaakkos/inboxflag/internal/domain"
	"github.com/jaakkos/inboxflag/internal/metrics"
	"github.com/jaakkos/inboxflag/internal/policy"
	"github.com/jaakkos/inboxflag/internal/repository"
	"github.com/jaakkos/inboxflag/internal/tools/inbox"
)

// Version is set by -ldflags at build time.
var Version = "dev"

func main() {
	// Handle CLI subcommands before starting MCP server.
	stdio := true
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "status":
			runStatusCommand()
			return
		case "flag":
			runFlagCommand(os.Args[2:])
			return
		case "serve":
			stdio = false
		case "--version", "-v", "version":
			fmt.Println("inboxflag " + Version)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (want status, flag, serve, version)\n", os.Args[1])
			os.Exit(2)
		}
	}

	// Load config
	tmpLogger := log.New(os.Stderr, "[inboxflag] ", log.LstdFlags|log.Lshortfile)
	cfg := loadConfig(tmpLogger)
	pol := policy.New(cfg)

	// Set up logging
	logger := setupLogger(pol.LogFile())
	logger.Println("Starting inboxflag server...")
	logger.Printf("Log file: %s", pol.LogFile())
	logger.Printf("State file: %s (origin %q, view %s)", pol.StateFile(), pol.Origin(), pol.ViewID())

	store, err := repository.NewOriginStore(pol.StateFile())
	if err != nil {
		logger.Fatalf("Origin store: %v", err)
	}

	view := app.OpenView(pol, store.Origin(pol.Origin()), logger)
	view.Watch.Subscribe(func(v bool) {
		logger.Printf("FlagView: %s changed to %v", domain.FlagKey, v)
	})
	logger.Printf("FlagView: initial %s=%v", domain.FlagKey, view.Watch.Value())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Observe(view.Log, view.Watch)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ignore SIGHUP so the server keeps running when daemonized (nohup, launchd, etc.)
	signal.Ignore(syscall.SIGHUP)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go view.Run(ctx)

	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			logger.Printf("Calling tool: %s", message.Params.Name)
		}
	})

	// Connected clients receive a push whenever the flag or the log changes.
	registry := app.NewSessionRegistry(m.SetSessions)
	sessions := newSessionStore()
	trackSessions(hooks, registry, sessions, logger)
	stopPush := watchAndPush(view, registry, sessions, logger)

	mcpServer := server.NewMCPServer(
		"mcp-inboxflag",
		Version,
		server.WithToolHandlerMiddleware(inbox.ProviderMiddleware(view.Log)),
		server.WithHooks(hooks),
	)
	inbox.Register(mcpServer, view.Inbox, logger)

	dash := dashboard.NewHandler(view.Inbox,
		dashboard.WithIdentity(pol.Origin(), view.ID),
		dashboard.WithLogger(logger),
	)
	httpShutdown := startHTTPServer(mcpServer, dash, reg, pol.HTTPPort(), logger)

	if stdio {
		// Run stdio server in foreground (for the driving client)
		logger.Println("Stdio ready")
		stdioSrv := server.NewStdioServer(mcpServer)
		if err := stdioSrv.Listen(view.Context(ctx), os.Stdin, os.Stdout); err != nil {
			logger.Printf("Stdio server stopped: %v", err)
		}
		// Client disconnected -- shut everything down
		cancel()
	} else {
		<-ctx.Done()
	}

	httpShutdown()
	stopPush()
	dash.Close()
	m.Stop()
	view.Close()

	if err := store.Close(); err != nil {
		logger.Printf("Warning: close origin store: %v", err)
	}
	logger.Println("Server stopped")
}

// startHTTPServer starts the HTTP server in the background for the dashboard,
// WebSocket feed, MCP clients and metrics. Returns a shutdown function. Uses
// net.Listen to support port 0 (auto-assign) for running several views.
func startHTTPServer(mcpServer *server.MCPServer, dash *dashboard.Handler, reg *prometheus.Registry, port int, logger *log.Logger) func() {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Fatalf("HTTP listen: %v", err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://localhost:%d", actualPort)

	logger.Printf("HTTP server on :%d", actualPort)
	logger.Printf("  MCP clients connect at:  %s/mcp", baseURL)
	logger.Printf("  Dashboard:               %s/dashboard", baseURL)
	logger.Printf("  Live feed:               ws://localhost:%d/ws", actualPort)

	streamSrv := server.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamSrv)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","port":%d}`, actualPort)
	})
	dash.RegisterRoutes(mux)

	httpServer := &http.Server{Handler: mux}

	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}
}

// setupLogger creates a logger that writes to a log file and optionally stderr.
// When stderr is a terminal (interactive use), logs go to both stderr and the file.
// When stderr is redirected (daemon mode via nohup), logs go only to the file
// to avoid duplicate lines since nohup already redirects stderr to the log file.
func setupLogger(logFilePath string) *log.Logger {
	var writers []io.Writer

	// Only include stderr when it's an interactive terminal (not redirected).
	// This prevents duplicate log lines when running as a daemon with nohup >> log 2>&1.
	stderrIsTerminal := false
	if info, err := os.Stderr.Stat(); err == nil {
		stderrIsTerminal = (info.Mode() & os.ModeCharDevice) != 0
	}

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "[inboxflag] Warning: cannot open log file %s: %v\n", logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[inboxflag] Warning: cannot create log dir %s: %v\n", filepath.Dir(logFilePath), err)
		}
	}

	// Add stderr if it's a terminal, or if there's no log file (always need at least one output).
	if stderrIsTerminal || !hasLogFile {
		writers = append(writers, os.Stderr)
	}

	return log.New(io.MultiWriter(writers...), "[inboxflag] ", log.LstdFlags|log.Lshortfile)
}

// loadConfig loads configuration from INBOXFLAG_CONFIG or defaults.
func loadConfig(logger *log.Logger) *policy.Config {
	cfg := policy.DefaultConfig()
	if configPath := os.Getenv("INBOXFLAG_CONFIG"); configPath != "" {
		var err error
		cfg, err = policy.LoadConfig(configPath)
		if err != nil {
			logger.Printf("Warning: failed to load config %s: %v, using defaults", configPath, err)
			cfg = policy.DefaultConfig()
		}
	}
	return cfg
}

// runStatusCommand implements "inboxflag status".
func runStatusCommand() {
	logger := log.New(os.Stderr, "", 0)
	pol := policy.New(loadConfig(logger))

	store, err := repository.NewOriginStore(pol.StateFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	flag := app.NewFlag(store.Origin(pol.Origin()), logger)
	fmt.Printf("%s=%v\n", "new_message", flag.Read())
}

// runFlagCommand implements "inboxflag flag set|clear". The write is announced
// on the signal file so running views pick it up.
func runFlagCommand(args []string) {
	if len(args) != 1 || (args[0] != "set" && args[0] != "clear") {
		fmt.Fprintln(os.Stderr, "usage: inboxflag flag set|clear")
		os.Exit(2)
	}
	logger := log.New(os.Stderr, "", 0)
	pol := policy.New(loadConfig(logger))

	store, err := repository.NewOriginStore(pol.StateFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := writeFlag(pol, store.Origin(pol.Origin()), args[0] == "set", logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s=%s\n", domain.FlagKey, domain.EncodeFlag(args[0] == "set"))
}

// writeFlag sets the flag in bucket and stamps the signal file. The CLI is not
// a view, so it stamps with its own writer ID rather than pol.ViewID().
func writeFlag(pol *policy.Policy, bucket app.KVStore, v bool, logger *log.Logger) error {
	feed := app.NewSignalFeed(pol.SignalFilePath(), policy.WriterID(), logger)
	return app.NewFlag(app.NewAnnouncingStore(bucket, feed, logger), logger).Set(v)
}
