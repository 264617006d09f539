// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewExportTool creates the journal_export tool definition
func NewExportTool() mcp.Tool {
	return mcp.NewTool("journal_export",
		mcp.WithDescription("Export the whole journal as JSON with dreams, characters and locations."),
	)
}

// ExportHandler handles the journal_export tool
func ExportHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := ctx.Journal.ExportJSON(c)
		if err != nil {
			return ctx.failure("journal_export", "Failed to export journal.", err), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// NewClearTool creates the journal_clear tool definition
func NewClearTool() mcp.Tool {
	return mcp.NewTool("journal_clear",
		mcp.WithDescription("Erase every dream, character and location. This cannot be undone, and the sample journal is not restored afterwards."),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true to erase the journal"),
		),
	)
}

// ClearHandler handles the journal_clear tool
func ClearHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !hasArgument(request, "confirm") || !request.GetBool("confirm", false) {
			return mcp.NewToolResultError("set 'confirm' to true to erase the journal"), nil
		}
		if err := ctx.Journal.ClearAll(c); err != nil {
			return ctx.failure("journal_clear", "Failed to clear journal.", err), nil
		}
		return mcp.NewToolResultText("Journal cleared"), nil
	}
}

// NewSnapshotTool creates the journal_snapshot tool definition
func NewSnapshotTool() mcp.Tool {
	return mcp.NewTool("journal_snapshot",
		mcp.WithDescription("Write the journal to the git archive now and commit it if anything changed since the last snapshot."),
	)
}

// SnapshotHandler handles the journal_snapshot tool
func SnapshotHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !ctx.HasArchive() {
			return mcp.NewToolResultError("the journal archive is not enabled"), nil
		}

		result, err := ctx.Archiver.Snapshot(c)
		if err != nil {
			return ctx.failure("journal_snapshot", "Failed to snapshot journal.", err), nil
		}
		if !result.Committed {
			return mcp.NewToolResultText(fmt.Sprintf("Archive already up to date (%d dreams)", result.Dreams)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Snapshot committed: %s\n\n%s", result.Hash[:8], result.Message)), nil
	}
}

// NewHistoryTool creates the journal_history tool definition
func NewHistoryTool() mcp.Tool {
	return mcp.NewTool("journal_history",
		mcp.WithDescription("List the snapshots stored in the git archive, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return. Default: 10"),
		),
	)
}

// HistoryHandler handles the journal_history tool
func HistoryHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !ctx.HasArchive() {
			return mcp.NewToolResultError("the journal archive is not enabled"), nil
		}

		commits, err := ctx.Archiver.History(request.GetInt("limit", 10))
		if err != nil {
			return ctx.failure("journal_history", "Failed to read archive history.", err), nil
		}
		if len(commits) == 0 {
			return mcp.NewToolResultText("No snapshots yet."), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d snapshots:\n\n", len(commits)))
		for _, commit := range commits {
			sb.WriteString(fmt.Sprintf("- `%s` %s %s\n",
				commit.Hash[:8],
				commit.Timestamp.Format("2006-01-02 15:04"),
				commit.Message))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
