package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screenmask/internal/config"
	"github.com/1broseidon/screenmask/internal/ipc"
	"github.com/1broseidon/screenmask/internal/rules"
)

const (
	ServerName    = "screenmask"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	Activate() (*ipc.OutcomeData, error)
	Deactivate() (int, error)
	GetStatus() (*ipc.StatusData, error)
	Reload() (*ipc.OutcomeData, error)
}

// Server exposes mask control as MCP tools. Live state goes through the
// daemon; rule edits go straight to the rule file.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	store     *rules.FileStore
	logger    *slog.Logger
}

// NewServer creates an MCP server that talks to the running daemon.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return newServer(ipc.NewClient(), rules.NewFileStore(cfg.RulesFile, logger), logger)
}

func newServer(d Daemon, store *rules.FileStore, logger *slog.Logger) *Server {
	s := &Server{
		daemon: d,
		store:  store,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "mask_status",
		Description: "Report whether screen masks are active, how many mask surfaces are live, which rules they belong to, and whether overlay permission is granted.",
	}, s.handleMaskStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_masks",
		Description: "Start the masks: clear all existing mask surfaces and draw one per enabled rule with a non-empty rectangle. Returns counts of created, skipped and failed masks.",
	}, s.handleActivateMasks)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "deactivate_masks",
		Description: "Remove every mask surface and keep masks off until activate_masks is called again.",
	}, s.handleDeactivateMasks)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_rules",
		Description: "List mask rules from the rules file in order, with their computed size and whether they would be drawn.",
	}, s.handleListRules)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_rule_enabled",
		Description: "Enable or disable a mask rule by id. The daemon picks the change up from the rules file; pass apply to re-apply immediately.",
	}, s.handleSetRuleEnabled)
}
