// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tejzpr/dreamscape-mcp/internal/tools"
)

// Server identity reported to MCP clients
const (
	Name    = "Dreamscape"
	Version = "1.0.0"
)

// MCPServer wraps the mcp-go server with the journal tools
type MCPServer struct {
	mcpServer *server.MCPServer
	toolCtx   *tools.ToolContext
	toolNames []string
}

// NewMCPServer creates a new MCP server instance with every tool registered
func NewMCPServer(toolCtx *tools.ToolContext) *MCPServer {
	mcpServer := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	srv := &MCPServer{
		mcpServer: mcpServer,
		toolCtx:   toolCtx,
	}
	srv.registerTools()
	return srv
}

func (s *MCPServer) add(tool mcp.Tool, handler tools.Handler) {
	s.mcpServer.AddTool(tool, handler)
	s.toolNames = append(s.toolNames, tool.Name)
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	tc := s.toolCtx

	// Dreams
	s.add(tools.NewRecordTool(), tools.RecordHandler(tc))
	s.add(tools.NewForgetTool(), tools.ForgetHandler(tc))
	s.add(tools.NewRecallTool(), tools.RecallHandler(tc))
	s.add(tools.NewRelatedTool(), tools.RelatedHandler(tc))

	// Aggregates
	s.add(tools.NewStatsTool(), tools.StatsHandler(tc))
	s.add(tools.NewInsightsTool(), tools.InsightsHandler(tc))
	s.add(tools.NewUniverseTool(), tools.UniverseHandler(tc))

	// Characters and locations
	s.add(tools.NewCharacterSaveTool(), tools.CharacterSaveHandler(tc))
	s.add(tools.NewCharacterForgetTool(), tools.CharacterForgetHandler(tc))
	s.add(tools.NewLocationSaveTool(), tools.LocationSaveHandler(tc))
	s.add(tools.NewLocationForgetTool(), tools.LocationForgetHandler(tc))

	// Whole journal
	s.add(tools.NewExportTool(), tools.ExportHandler(tc))
	s.add(tools.NewClearTool(), tools.ClearHandler(tc))

	if tc.HasArchive() {
		s.add(tools.NewSnapshotTool(), tools.SnapshotHandler(tc))
		s.add(tools.NewHistoryTool(), tools.HistoryHandler(tc))
	}
}

// ToolNames returns the registered tool names in registration order
func (s *MCPServer) ToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until the input closes
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
