// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
)

// NewCharacterSaveTool creates the character_save tool definition
func NewCharacterSaveTool() mcp.Tool {
	return mcp.NewTool("character_save",
		mcp.WithDescription("Create or update a recurring character. Appearances are counted from the dreams that reference the character."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Who the character is"),
		),
		mcp.WithString("id",
			mcp.Description("Existing character id to replace"),
		),
		mcp.WithString("relationship",
			mcp.Description("How the dreamer knows them, e.g. friend, stranger, guide"),
		),
		mcp.WithString("description",
			mcp.Description("Notes about the character"),
		),
		mcp.WithString("avatar_url",
			mcp.Description("Picture of the character"),
		),
		mcp.WithString("first_appearance",
			mcp.Description("When the character first appeared (ISO 8601). Default: now"),
		),
	)
}

// CharacterSaveHandler handles the character_save tool
func CharacterSaveHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var first time.Time
		if raw := request.GetString("first_appearance", ""); raw != "" {
			first, err = dream.ParseDate(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		saved, err := ctx.Journal.SaveCharacter(c, dream.Character{
			ID:              request.GetString("id", ""),
			Name:            name,
			Relationship:    request.GetString("relationship", ""),
			Description:     request.GetString("description", ""),
			AvatarURL:       request.GetString("avatar_url", ""),
			FirstAppearance: first,
		})
		if err != nil {
			return ctx.failure("character_save", "Failed to save character.", err), nil
		}
		return jsonResult(saved)
	}
}

// NewCharacterForgetTool creates the character_forget tool definition
func NewCharacterForgetTool() mcp.Tool {
	return mcp.NewTool("character_forget",
		mcp.WithDescription("Delete a character. Dreams that mention it keep the reference."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Character to delete"),
		),
	)
}

// CharacterForgetHandler handles the character_forget tool
func CharacterForgetHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := ctx.Journal.DeleteCharacter(c, id); err != nil {
			return ctx.notFoundOr("character_forget", "character", id, "Failed to delete character.", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Character '%s' deleted", id)), nil
	}
}

// NewLocationSaveTool creates the location_save tool definition
func NewLocationSaveTool() mcp.Tool {
	return mcp.NewTool("location_save",
		mcp.WithDescription("Create or update a recurring dream location. Appearances are counted from the dreams set there."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the place"),
		),
		mcp.WithString("id",
			mcp.Description("Existing location id to replace"),
		),
		mcp.WithString("description",
			mcp.Description("What the place looks like"),
		),
		mcp.WithString("image_url",
			mcp.Description("Picture of the place"),
		),
	)
}

// LocationSaveHandler handles the location_save tool
func LocationSaveHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		saved, err := ctx.Journal.SaveLocation(c, dream.Location{
			ID:          request.GetString("id", ""),
			Name:        name,
			Description: request.GetString("description", ""),
			ImageURL:    request.GetString("image_url", ""),
		})
		if err != nil {
			return ctx.failure("location_save", "Failed to save location.", err), nil
		}
		return jsonResult(saved)
	}
}

// NewLocationForgetTool creates the location_forget tool definition
func NewLocationForgetTool() mcp.Tool {
	return mcp.NewTool("location_forget",
		mcp.WithDescription("Delete a location. Dreams set there keep the reference."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Location to delete"),
		),
	)
}

// LocationForgetHandler handles the location_forget tool
func LocationForgetHandler(ctx *ToolContext) Handler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := ctx.Journal.DeleteLocation(c, id); err != nil {
			return ctx.notFoundOr("location_forget", "location", id, "Failed to delete location.", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Location '%s' deleted", id)), nil
	}
}
