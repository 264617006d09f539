// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// HTTPOptions configures the HTTP surface
type HTTPOptions struct {
	AllowedOrigins []string
}

// HTTPServer serves the REST API and the streamable HTTP MCP endpoint
type HTTPServer struct {
	journal   *journal.Service
	archiver  *archive.Archiver
	mcpServer *MCPServer
	logger    *zap.Logger
	validate  *validator.Validate
	opts      HTTPOptions
}

// NewHTTPServer creates a new HTTP server. archiver may be nil.
func NewHTTPServer(mcpServer *MCPServer, svc *journal.Service, archiver *archive.Archiver, logger *zap.Logger, opts HTTPOptions) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &HTTPServer{
		journal:   svc,
		archiver:  archiver,
		mcpServer: mcpServer,
		logger:    logger,
		validate:  validator.New(),
		opts:      opts,
	}
}

// Routes builds the router
func (h *HTTPServer) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(h.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-ID", "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	router.Get("/health", h.healthCheck)
	router.Handle("/mcp", server.NewStreamableHTTPServer(h.mcpServer.GetMCPServer()))

	router.Route("/api", func(r chi.Router) {
		r.Route("/dreams", func(r chi.Router) {
			r.Get("/", h.ListDreams)
			r.Post("/", h.CreateDream)
			r.Get("/{dreamID}", h.GetDream)
			r.Put("/{dreamID}", h.ReplaceDream)
			r.Delete("/{dreamID}", h.DeleteDream)
			r.Get("/{dreamID}/related", h.RelatedDreams)
		})

		r.Get("/stats", h.Stats)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/tags", h.TagInsights)
			r.Get("/sentiment", h.SentimentInsights)
			r.Get("/heatmap", h.HeatmapInsights)
		})

		r.Get("/universe", h.Universe)

		r.Route("/characters", func(r chi.Router) {
			r.Get("/", h.ListCharacters)
			r.Post("/", h.SaveCharacter)
			r.Delete("/{characterID}", h.DeleteCharacter)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.SaveLocation)
			r.Delete("/{locationID}", h.DeleteLocation)
		})

		r.Get("/export", h.Export)
		r.Delete("/journal", h.ClearJournal)

		r.Route("/archive", func(r chi.Router) {
			r.Post("/snapshot", h.Snapshot)
			r.Get("/history", h.History)
		})
	})

	return router
}

// healthCheck handles health check requests
func (h *HTTPServer) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends {"error": message}
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// fail logs err and responds with a static 500 message
func (h *HTTPServer) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.Error(message,
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.Error(err))
	respondError(w, http.StatusInternalServerError, message)
}
