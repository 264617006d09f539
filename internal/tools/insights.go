// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/graph"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Insight names accepted by dream_insights
const (
	InsightTags      = "tags"
	InsightSentiment = "sentiment"
	InsightHeatmap   = "heatmap"
)

// NewStatsTool creates the dream_stats tool definition
func NewStatsTool() mcp.Tool {
	return mcp.NewTool("dream_stats",
		mcp.WithDescription("Summarise the journal: total dreams, current recording streak in days, when the last dream was recorded, average clarity and average sentiment."),
	)
}

// StatsHandler handles the dream_stats tool
func StatsHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := ctx.Journal.Stats(c)
		if err != nil {
			return ctx.failure("dream_stats", "Failed to compute statistics.", err), nil
		}
		return jsonResult(stats)
	}
}

// NewInsightsTool creates the dream_insights tool definition
func NewInsightsTool() mcp.Tool {
	return mcp.NewTool("dream_insights",
		mcp.WithDescription("Patterns across the journal: the most used tags, the mood trend of recent dreams and a calendar heatmap of recording activity."),
		mcp.WithArray("include",
			mcp.Description("Which insights to compute: tags, sentiment, heatmap. Default: all"),
			mcp.Items(map[string]interface{}{
				"type": "string",
				"enum": []string{InsightTags, InsightSentiment, InsightHeatmap},
			}),
		),
		mcp.WithNumber("tag_limit",
			mcp.Description("Number of tags to return. Default: 30"),
		),
		mcp.WithNumber("trend_limit",
			mcp.Description("Number of recent dreams on the trend line. Default: 20"),
		),
		mcp.WithNumber("heatmap_days",
			mcp.Description("Days of history before today in the heatmap. Default: 365, max: 3660"),
		),
	)
}

// InsightsHandler handles the dream_insights tool
func InsightsHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := journal.AllInsights()
		if include := request.GetStringSlice("include", nil); len(include) > 0 {
			opts = journal.InsightOptions{}
			for _, name := range include {
				switch name {
				case InsightTags:
					opts.Tags = true
				case InsightSentiment:
					opts.Sentiment = true
				case InsightHeatmap:
					opts.Heatmap = true
				default:
					return mcp.NewToolResultError(fmt.Sprintf("unknown insight %q", name)), nil
				}
			}
		}
		opts.TagLimit = request.GetInt("tag_limit", 0)
		opts.TrendLimit = request.GetInt("trend_limit", 0)
		opts.HeatmapDays = request.GetInt("heatmap_days", 0)
		if opts.HeatmapDays > dream.MaxHeatmapDays {
			return mcp.NewToolResultError(fmt.Sprintf("heatmap_days must be at most %d", dream.MaxHeatmapDays)), nil
		}

		insights, err := ctx.Journal.Insights(c, opts)
		if err != nil {
			return ctx.failure("dream_insights", "Failed to compute insights.", err), nil
		}
		return jsonResult(insights)
	}
}

// NewUniverseTool creates the dream_universe tool definition
func NewUniverseTool() mcp.Tool {
	return mcp.NewTool("dream_universe",
		mcp.WithDescription("The dream universe as a graph: one node per dream, edges for related dreams and for shared tags. Give a starting dream to walk outward from it instead of returning everything."),
		mcp.WithString("from",
			mcp.Description("Dream id to start walking from"),
		),
		mcp.WithNumber("hops",
			mcp.Description("How far to walk from the starting dream, at most 5. Default: 2"),
		),
		mcp.WithString("mode",
			mcp.Description("Walk breadth-first or depth-first. Default: bfs"),
			mcp.Enum("bfs", "dfs"),
		),
	)
}

// UniverseHandler handles the dream_universe tool
func UniverseHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode := request.GetString("mode", "bfs")
		if mode != "bfs" && mode != "dfs" {
			return mcp.NewToolResultError(fmt.Sprintf("mode must be 'bfs' or 'dfs', got '%s'", mode)), nil
		}

		corpus, err := ctx.Journal.ListDreams(c, journal.Filter{})
		if err != nil {
			return ctx.failure("dream_universe", "Failed to build the dream universe.", err), nil
		}
		mgr := graph.NewManager(corpus)

		from := request.GetString("from", "")
		if from == "" {
			return jsonResult(mgr.Universe())
		}

		g, err := mgr.TraverseGraph(from, request.GetInt("hops", 2), mode == "bfs")
		if errors.Is(err, graph.ErrUnknownDream) {
			return mcp.NewToolResultError(fmt.Sprintf("dream not found: %s", from)), nil
		}
		if err != nil {
			return ctx.failure("dream_universe", "Failed to build the dream universe.", err), nil
		}
		return jsonResult(g)
	}
}
