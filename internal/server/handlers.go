// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/graph"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
	"github.com/tejzpr/dreamscape-mcp/internal/tools"
)

// DreamRequest is the body of POST /api/dreams and PUT /api/dreams/{dreamID}
type DreamRequest struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Date         string   `json:"date,omitempty"`
	Type         string   `json:"type,omitempty" validate:"omitempty,oneof=lucid nightmare recurring normal"`
	Sentiment    *float64 `json:"sentiment,omitempty"`
	Clarity      *int     `json:"clarity,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CharacterIDs []string `json:"characterIds,omitempty"`
	LocationIDs  []string `json:"locationIds,omitempty"`
}

// CharacterRequest is the body of POST /api/characters
type CharacterRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name" validate:"required"`
	Relationship    string `json:"relationship,omitempty"`
	Description     string `json:"description,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	FirstAppearance string `json:"firstAppearance,omitempty"`
}

// LocationRequest is the body of POST /api/locations
type LocationRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// UniverseQuery holds the query parameters of GET /api/universe
type UniverseQuery struct {
	From string
	Hops int    `validate:"min=0"`
	Mode string `validate:"oneof=bfs dfs"`
}

// decode reads and validates a JSON body. It writes the 400 response itself.
func (h *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *HTTPServer) toDream(req DreamRequest) (dream.Dream, error) {
	dreamType, err := dream.ParseType(req.Type)
	if err != nil {
		return dream.Dream{}, err
	}

	date := h.journal.Now()
	if req.Date != "" {
		if date, err = dream.ParseDate(req.Date); err != nil {
			return dream.Dream{}, err
		}
	}

	sentiment := tools.DefaultSentiment
	if req.Sentiment != nil {
		sentiment = *req.Sentiment
	}
	clarity := tools.DefaultClarity
	if req.Clarity != nil {
		clarity = *req.Clarity
	}

	return dream.Dream{
		ID:           req.ID,
		Title:        req.Title,
		Content:      req.Content,
		Date:         date,
		Type:         dreamType,
		Sentiment:    sentiment,
		Clarity:      clarity,
		Tags:         nonNilSlice(req.Tags),
		CharacterIDs: nonNilSlice(req.CharacterIDs),
		LocationIDs:  nonNilSlice(req.LocationIDs),
	}, nil
}

// ListDreams handles GET /api/dreams
func (h *HTTPServer) ListDreams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter journal.Filter
	if raw := q.Get("type"); raw != "" {
		t, err := dream.ParseType(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = t
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	filter.Tag = q.Get("tag")
	filter.CharacterID = q.Get("character")
	filter.LocationID = q.Get("location")
	filter.Query = q.Get("q")
	filter.Limit = limit

	dreams, err := h.journal.ListDreams(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to load dreams.", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilSlice(dreams))
}

// CreateDream handles POST /api/dreams
func (h *HTTPServer) CreateDream(w http.ResponseWriter, r *http.Request) {
	var req DreamRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.saveDream(w, r, req, http.StatusCreated)
}

// ReplaceDream handles PUT /api/dreams/{dreamID}. Only existing dreams can be replaced.
func (h *HTTPServer) ReplaceDream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "dreamID")
	var req DreamRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.journal.GetDream(r.Context(), id); err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			respondError(w, http.StatusNotFound, "dream not found")
			return
		}
		h.fail(w, r, "Failed to save dream.", err)
		return
	}

	req.ID = id
	h.saveDream(w, r, req, http.StatusOK)
}

func (h *HTTPServer) saveDream(w http.ResponseWriter, r *http.Request, req DreamRequest, status int) {
	d, err := h.toDream(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.journal.SaveDream(r.Context(), d)
	if err != nil {
		h.fail(w, r, "Failed to save dream.", err)
		return
	}
	respondJSON(w, status, saved)
}

// GetDream handles GET /api/dreams/{dreamID}
func (h *HTTPServer) GetDream(w http.ResponseWriter, r *http.Request) {
	d, err := h.journal.GetDream(r.Context(), chi.URLParam(r, "dreamID"))
	if err != nil {
		h.notFoundOr(w, r, "dream not found", "Failed to load dream.", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// DeleteDream handles DELETE /api/dreams/{dreamID}
func (h *HTTPServer) DeleteDream(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteDream(r.Context(), chi.URLParam(r, "dreamID")); err != nil {
		h.notFoundOr(w, r, "dream not found", "Failed to delete dream.", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RelatedDreams handles GET /api/dreams/{dreamID}/related
func (h *HTTPServer) RelatedDreams(w http.ResponseWriter, r *http.Request) {
	matches, err := h.journal.Related(r.Context(), chi.URLParam(r, "dreamID"))
	if err != nil {
		h.notFoundOr(w, r, "dream not found", "Failed to rank related dreams.", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilSlice(matches))
}

// Stats handles GET /api/stats
func (h *HTTPServer) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.journal.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to compute statistics.", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *HTTPServer) insights(w http.ResponseWriter, r *http.Request, opts journal.InsightOptions) (journal.Insights, bool) {
	insights, err := h.journal.Insights(r.Context(), opts)
	if err != nil {
		h.fail(w, r, "Failed to compute insights.", err)
		return journal.Insights{}, false
	}
	return insights, true
}

// TagInsights handles GET /api/insights/tags
func (h *HTTPServer) TagInsights(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", dream.DefaultTagLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if insights, ok := h.insights(w, r, journal.InsightOptions{Tags: true, TagLimit: limit}); ok {
		respondJSON(w, http.StatusOK, nonNilSlice(insights.Tags))
	}
}

// SentimentInsights handles GET /api/insights/sentiment
func (h *HTTPServer) SentimentInsights(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", dream.DefaultTrendLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if insights, ok := h.insights(w, r, journal.InsightOptions{Sentiment: true, TrendLimit: limit}); ok {
		respondJSON(w, http.StatusOK, nonNilSlice(insights.Sentiment))
	}
}

// HeatmapInsights handles GET /api/insights/heatmap
func (h *HTTPServer) HeatmapInsights(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", dream.DefaultHeatmapDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	if days > dream.MaxHeatmapDays {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("days must be at most %d", dream.MaxHeatmapDays))
		return
	}
	if insights, ok := h.insights(w, r, journal.InsightOptions{Heatmap: true, HeatmapDays: days}); ok {
		respondJSON(w, http.StatusOK, insights.Heatmap)
	}
}

// nonNilSlice keeps empty results encoding as [] rather than null
func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// Universe handles GET /api/universe
func (h *HTTPServer) Universe(w http.ResponseWriter, r *http.Request) {
	hops, err := queryInt(r, "hops", 2)
	if err != nil {
		respondError(w, http.StatusBadRequest, "hops must be an integer")
		return
	}
	query := UniverseQuery{
		From: r.URL.Query().Get("from"),
		Hops: hops,
		Mode: r.URL.Query().Get("mode"),
	}
	if query.Mode == "" {
		query.Mode = "bfs"
	}
	if err := h.validate.Struct(query); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	corpus, err := h.journal.ListDreams(r.Context(), journal.Filter{})
	if err != nil {
		h.fail(w, r, "Failed to build the dream universe.", err)
		return
	}
	mgr := graph.NewManager(corpus)

	if query.From == "" {
		respondJSON(w, http.StatusOK, mgr.Universe())
		return
	}

	g, err := mgr.TraverseGraph(query.From, query.Hops, query.Mode == "bfs")
	if err != nil {
		if errors.Is(err, graph.ErrUnknownDream) {
			respondError(w, http.StatusNotFound, "dream not found")
			return
		}
		h.fail(w, r, "Failed to build the dream universe.", err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// ListCharacters handles GET /api/characters
func (h *HTTPServer) ListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := h.journal.ListCharacters(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load characters.", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilSlice(characters))
}

// SaveCharacter handles POST /api/characters
func (h *HTTPServer) SaveCharacter(w http.ResponseWriter, r *http.Request) {
	var req CharacterRequest
	if !h.decode(w, r, &req) {
		return
	}

	var first time.Time
	if req.FirstAppearance != "" {
		var err error
		if first, err = dream.ParseDate(req.FirstAppearance); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	saved, err := h.journal.SaveCharacter(r.Context(), dream.Character{
		ID:              req.ID,
		Name:            req.Name,
		Relationship:    req.Relationship,
		Description:     req.Description,
		AvatarURL:       req.AvatarURL,
		FirstAppearance: first,
	})
	if err != nil {
		h.fail(w, r, "Failed to save character.", err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// DeleteCharacter handles DELETE /api/characters/{characterID}
func (h *HTTPServer) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteCharacter(r.Context(), chi.URLParam(r, "characterID")); err != nil {
		h.notFoundOr(w, r, "character not found", "Failed to delete character.", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLocations handles GET /api/locations
func (h *HTTPServer) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.journal.ListLocations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load locations.", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilSlice(locations))
}

// SaveLocation handles POST /api/locations
func (h *HTTPServer) SaveLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !h.decode(w, r, &req) {
		return
	}

	saved, err := h.journal.SaveLocation(r.Context(), dream.Location{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(w, r, "Failed to save location.", err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// DeleteLocation handles DELETE /api/locations/{locationID}
func (h *HTTPServer) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteLocation(r.Context(), chi.URLParam(r, "locationID")); err != nil {
		h.notFoundOr(w, r, "location not found", "Failed to delete location.", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/export
func (h *HTTPServer) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.journal.ExportJSON(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to export journal.", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="dreamscape-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ClearJournal handles DELETE /api/journal
func (h *HTTPServer) ClearJournal(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.ClearAll(r.Context()); err != nil {
		h.fail(w, r, "Failed to clear journal.", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Snapshot handles POST /api/archive/snapshot
func (h *HTTPServer) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		respondError(w, http.StatusNotFound, "archive not enabled")
		return
	}
	result, err := h.archiver.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to snapshot journal.", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// History handles GET /api/archive/history
func (h *HTTPServer) History(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		respondError(w, http.StatusNotFound, "archive not enabled")
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	commits, err := h.archiver.History(limit)
	if err != nil {
		h.fail(w, r, "Failed to read archive history.", err)
		return
	}
	respondJSON(w, http.StatusOK, commits)
}

func (h *HTTPServer) notFoundOr(w http.ResponseWriter, r *http.Request, notFound, message string, err error) {
	if errors.Is(err, journal.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFound)
		return
	}
	h.fail(w, r, message, err)
}
