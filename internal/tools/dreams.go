// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Defaults applied when a recorded dream omits them
const (
	DefaultSentiment = 0.5
	DefaultClarity   = 5
)

// stringItems declares an array of strings
var stringItems = mcp.Items(map[string]interface{}{"type": "string"})

func dreamTypeValues() []string {
	types := dream.ValidTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// NewRecordTool creates the dream_record tool definition
func NewRecordTool() mcp.Tool {
	return mcp.NewTool("dream_record",
		mcp.WithDescription("Record a dream in the journal. Passing an existing id replaces that dream completely. Related dreams are found automatically from shared tags, characters and locations, and they link back to this one."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short title for the dream"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("What happened in the dream"),
		),
		mcp.WithString("id",
			mcp.Description("Existing dream id to replace. Omit to create a new dream."),
		),
		mcp.WithString("date",
			mcp.Description("When the dream happened (ISO 8601). Default: now"),
		),
		mcp.WithString("type",
			mcp.Description("Kind of dream. Default: normal"),
			mcp.Enum(dreamTypeValues()...),
		),
		mcp.WithNumber("sentiment",
			mcp.Description("Mood from 0 (negative) to 1 (positive). Default: 0.5"),
		),
		mcp.WithNumber("clarity",
			mcp.Description("How vivid the memory is, 0 to 10. Default: 5"),
		),
		mcp.WithArray("tags",
			mcp.Description("Themes or motifs"),
			stringItems,
		),
		mcp.WithArray("characters",
			mcp.Description("Ids of characters who appeared"),
			stringItems,
		),
		mcp.WithArray("locations",
			mcp.Description("Ids of locations the dream took place in"),
			stringItems,
		),
	)
}

// RecordHandler handles the dream_record tool
func RecordHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := request.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		dreamType, err := dream.ParseType(request.GetString("type", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		date := ctx.Journal.Now()
		if raw := request.GetString("date", ""); raw != "" {
			date, err = dream.ParseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		d := dream.Dream{
			ID:           request.GetString("id", ""),
			Title:        title,
			Content:      content,
			Date:         date,
			Type:         dreamType,
			Sentiment:    request.GetFloat("sentiment", DefaultSentiment),
			Clarity:      request.GetInt("clarity", DefaultClarity),
			Tags:         request.GetStringSlice("tags", []string{}),
			CharacterIDs: request.GetStringSlice("characters", []string{}),
			LocationIDs:  request.GetStringSlice("locations", []string{}),
		}

		saved, err := ctx.Journal.SaveDream(c, d)
		if err != nil {
			return ctx.failure("dream_record", "Failed to save dream.", err), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Dream '%s' recorded\n\n", saved.Title))
		sb.WriteString(fmt.Sprintf("**ID**: `%s` | **Date**: %s | **Type**: %s\n",
			saved.ID, saved.Date.Format("2006-01-02"), saved.Type))
		if len(saved.RelatedDreamIDs) > 0 {
			sb.WriteString(fmt.Sprintf("**Related**: %s\n", strings.Join(saved.RelatedDreamIDs, ", ")))
		} else {
			sb.WriteString("**Related**: none\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// NewForgetTool creates the dream_forget tool definition
func NewForgetTool() mcp.Tool {
	return mcp.NewTool("dream_forget",
		mcp.WithDescription("Delete a dream from the journal. When link pruning is enabled (journal.prune_links_on_delete, on by default), other dreams also stop listing it as related; otherwise their related lists keep the deleted id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Dream to delete"),
		),
	)
}

// ForgetHandler handles the dream_forget tool
func ForgetHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := ctx.Journal.DeleteDream(c, id); err != nil {
			return ctx.notFoundOr("dream_forget", "dream", id, "Failed to delete dream.", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Dream '%s' deleted", id)), nil
	}
}

// NewRecallTool creates the dream_recall tool definition
func NewRecallTool() mcp.Tool {
	return mcp.NewTool("dream_recall",
		mcp.WithDescription("Read dreams from the journal. Give an id to fetch one dream, or filter the journal (newest first) by type, tag, character, location or text."),
		mcp.WithString("id",
			mcp.Description("Fetch exactly this dream"),
		),
		mcp.WithString("type",
			mcp.Description("Only dreams of this kind"),
			mcp.Enum(dreamTypeValues()...),
		),
		mcp.WithString("tag",
			mcp.Description("Only dreams carrying this tag"),
		),
		mcp.WithString("character",
			mcp.Description("Only dreams featuring this character id"),
		),
		mcp.WithString("location",
			mcp.Description("Only dreams set in this location id"),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive text to find in titles or content"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results. Default: all"),
		),
	)
}

// RecallHandler handles the dream_recall tool
func RecallHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if id := request.GetString("id", ""); id != "" {
			d, err := ctx.Journal.GetDream(c, id)
			if err != nil {
				return ctx.notFoundOr("dream_recall", "dream", id, "Failed to load dream.", err), nil
			}
			return jsonResult(d)
		}

		var filter journal.Filter
		if raw := request.GetString("type", ""); raw != "" {
			t, err := dream.ParseType(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filter.Type = t
		}
		filter.Tag = request.GetString("tag", "")
		filter.CharacterID = request.GetString("character", "")
		filter.LocationID = request.GetString("location", "")
		filter.Query = request.GetString("query", "")
		filter.Limit = request.GetInt("limit", 0)

		dreams, err := ctx.Journal.ListDreams(c, filter)
		if err != nil {
			return ctx.failure("dream_recall", "Failed to load dreams.", err), nil
		}
		return jsonResult(dreams)
	}
}

// NewRelatedTool creates the dream_related tool definition
func NewRelatedTool() mcp.Tool {
	return mcp.NewTool("dream_related",
		mcp.WithDescription("Rank the rest of the journal against one dream. Shared tags score 1, shared characters and locations score 2 each. Returns at most 5 dreams with their scores."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Dream to compare against"),
		),
	)
}

// RelatedHandler handles the dream_related tool
func RelatedHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		matches, err := ctx.Journal.Related(c, id)
		if err != nil {
			return ctx.notFoundOr("dream_related", "dream", id, "Failed to rank related dreams.", err), nil
		}
		return jsonResult(matches)
	}
}
