// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Handler is the signature shared by every tool handler
type Handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Journal  *journal.Service
	Archiver *archive.Archiver // nil when the archive is disabled
	Logger   *zap.Logger
}

// NewToolContext creates a new tool context
func NewToolContext(svc *journal.Service, archiver *archive.Archiver, logger *zap.Logger) *ToolContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolContext{
		Journal:  svc,
		Archiver: archiver,
		Logger:   logger,
	}
}

// HasArchive returns true if snapshots can be taken
func (tc *ToolContext) HasArchive() bool {
	return tc.Archiver != nil
}

// failure logs the underlying error and returns a static message to the caller
func (tc *ToolContext) failure(tool, message string, err error) *mcp.CallToolResult {
	tc.Logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(message)
}

// notFoundOr maps journal.ErrNotFound to a "<kind> not found" result and anything else to failure
func (tc *ToolContext) notFoundOr(tool, kind, id, message string, err error) *mcp.CallToolResult {
	if errors.Is(err, journal.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s not found: %s", kind, id))
	}
	return tc.failure(tool, message, err)
}

// jsonResult renders v as indented JSON text
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hasArgument reports whether the caller supplied name at all
func hasArgument(request mcp.CallToolRequest, name string) bool {
	_, ok := request.GetArguments()[name]
	return ok
}
