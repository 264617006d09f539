// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tejzpr/dreamscape-mcp/internal/archive"
	"github.com/tejzpr/dreamscape-mcp/internal/config"
	"github.com/tejzpr/dreamscape-mcp/internal/database"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
	"github.com/tejzpr/dreamscape-mcp/internal/locking"
	"github.com/tejzpr/dreamscape-mcp/internal/logging"
	"github.com/tejzpr/dreamscape-mcp/internal/rebuild"
	"github.com/tejzpr/dreamscape-mcp/internal/server"
	"github.com/tejzpr/dreamscape-mcp/internal/tools"
	"github.com/tejzpr/dreamscape-mcp/pkg/scheduler"
)

// Version is set at build time via ldflags (e.g. goreleaser -X main.Version={{.Version}}).
var Version string

func main() {
	httpMode := flag.Bool("http", false, "Run in HTTP server mode (default: stdio for MCP)")
	dbType := flag.String("db-type", "", "Database type (sqlite, postgres or memory)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "Server port (HTTP mode only)")
	archivePath := flag.String("archive-path", "", "Enable the git archive at this path")
	noSeed := flag.Bool("no-seed", false, "Do not write the sample journal on first run")
	restore := flag.Bool("restore", false, "Rebuild the journal database from the git archive and exit")
	forceRestore := flag.Bool("force", false, "Clear a non-empty journal before restoring (requires --restore)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Dreamscape MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s              Start MCP server (stdio)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http       Start HTTP server (REST API and MCP at /mcp)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRestore:\n")
		fmt.Fprintf(os.Stderr, "  %s --restore            Rebuild the journal from the archive\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --restore --force    Clear the journal, then rebuild it\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE            Database type (sqlite, postgres or memory)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH            SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN             PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT               Server port (HTTP mode only)\n")
		fmt.Fprintf(os.Stderr, "  TIMEZONE           IANA timezone for calendar days\n")
		fmt.Fprintf(os.Stderr, "  ARCHIVE_PATH       Enable the git archive at this path\n")
		fmt.Fprintf(os.Stderr, "  ARCHIVE_TOKEN      Token used when pushing the archive\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL          debug, info, warn or error\n")
	}

	flag.Parse()

	if *forceRestore && !*restore {
		fmt.Fprintln(os.Stderr, "ERROR: --force can only be used with --restore")
		os.Exit(1)
	}
	if *restore && *httpMode {
		fmt.Fprintln(os.Stderr, "ERROR: --restore and --http cannot be used together")
		os.Exit(1)
	}

	cfg, source := loadConfig(*configPath)
	applyEnvOverrides(cfg)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *port, *archivePath)
	if *httpMode {
		cfg.Server.Transport = config.TransportHTTP
	}
	if *noSeed {
		cfg.Journal.SeedOnStart = false
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// MCP servers must only write JSON-RPC to stdout; the logger writes to stderr
	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting Dreamscape MCP server",
		zap.String("version", Version),
		zap.String("config", source),
		zap.String("database", cfg.Database.Type),
		zap.String("transport", cfg.Server.Transport))

	if *restore {
		if err := runRestoreMode(cfg, log, *forceRestore); err != nil {
			log.Fatal("restore failed", zap.Error(err))
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// runRestoreMode rebuilds the journal store from the archive worktree and exits
func runRestoreMode(cfg *config.Config, log *zap.Logger, force bool) error {
	if cfg.Archive.Path == "" {
		return errors.New("no archive path configured; use --archive-path or ARCHIVE_PATH")
	}
	if cfg.Database.Type == config.DatabaseMemory {
		return errors.New("restoring into the memory store has no lasting effect")
	}

	store, db, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	result, err := rebuild.RestoreFromArchive(context.Background(), store, cfg.Archive.Path, rebuild.Options{
		Force:  force,
		Logger: log.Named("rebuild"),
	})
	if err != nil {
		return err
	}

	log.Info("restore completed",
		zap.Int("processed", result.DreamsProcessed),
		zap.Int("restored", result.DreamsRestored),
		zap.Int("skipped", result.DreamsSkipped),
		zap.Int("characters", result.Characters),
		zap.Int("locations", result.Locations),
		zap.Int("links", result.LinksRestored))
	for _, warning := range result.Errors {
		log.Warn("restore warning", zap.String("detail", warning))
	}
	return nil
}

// loadConfig reads the config file, falling back to built-in defaults
func loadConfig(path string) (*config.Config, string) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v; using defaults\n", path, err)
			return config.DefaultConfig(), "defaults"
		}
		return cfg, path
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load default config: %v; using defaults\n", err)
		return config.DefaultConfig(), "defaults"
	}
	return cfg, "~/" + config.DefaultConfigDir + "/" + config.DefaultConfigFile
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Journal.Location()
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = database.Close(db) }()
	}
	log.Info("journal store ready", zap.String("type", cfg.Database.Type))

	svc := journal.NewService(store, log.Named("journal"), journal.Options{
		Location:           loc,
		PruneLinksOnDelete: cfg.Journal.PruneLinksOnDelete,
	})

	if cfg.Journal.SeedOnStart {
		seeded, err := svc.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed journal: %w", err)
		}
		if seeded {
			log.Info("sample journal written")
		}
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = newArchiver(cfg.Archive, svc, db, log.Named("archive"))
		if err != nil {
			return err
		}
		sched := scheduler.NewScheduler("archive-snapshot", cfg.Archive.Interval(), func(ctx context.Context) error {
			_, err := archiver.Snapshot(ctx)
			return err
		}, log.Named("scheduler"))
		sched.Start(ctx)
		defer sched.Stop()
		log.Info("archive snapshots scheduled",
			zap.String("path", cfg.Archive.Path),
			zap.Duration("interval", cfg.Archive.Interval()))
	}

	mcpServer := server.NewMCPServer(tools.NewToolContext(svc, archiver, log.Named("tools")))
	log.Info("MCP server ready", zap.Strings("tools", mcpServer.ToolNames()))

	if cfg.Server.Transport == config.TransportHTTP {
		return runHTTPMode(ctx, cfg.Server, mcpServer, svc, archiver, log)
	}
	return mcpServer.ServeStdio()
}

// openStore returns the journal store for the configured backend. db is nil for memory.
func openStore(cfg config.DatabaseConfig) (journal.Store, *gorm.DB, error) {
	if cfg.Type == config.DatabaseMemory {
		return journal.NewMemoryStore(), nil, nil
	}

	db, err := database.Open(&database.Config{
		Type:        cfg.Type,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
		LogLevel:    logger.Silent, // GORM must not write to stdout in stdio mode
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database.NewStore(db), db, nil
}

func newArchiver(cfg config.ArchiveConfig, svc *journal.Service, db *gorm.DB, log *zap.Logger) (*archive.Archiver, error) {
	holder, err := os.Hostname()
	if err != nil || holder == "" {
		holder = fmt.Sprintf("pid-%d", os.Getpid())
	}

	opts := archive.Options{
		RemoteURL: cfg.RemoteURL,
		PushToken: cfg.PushToken,
		Holder:    holder,
	}
	if db != nil {
		opts.Locker = locking.NewLocker(db)
	}

	archiver, err := archive.NewArchiver(cfg.Path, svc, log, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return archiver, nil
}

// runHTTPMode serves the REST API and MCP endpoint until ctx is cancelled
func runHTTPMode(ctx context.Context, cfg config.ServerConfig, mcpServer *server.MCPServer, svc *journal.Service, archiver *archive.Archiver, log *zap.Logger) error {
	httpServer := server.NewHTTPServer(mcpServer, svc, archiver, log.Named("http"), server.HTTPOptions{
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.TLS.Enabled))
		var err error
		if cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *config.Config) {
	if dbType := getEnv("DB_TYPE", "DREAMSCAPE_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}
	if dbPath := getEnv("DB_PATH", "DREAMSCAPE_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
	}
	if dbDSN := getEnv("DB_DSN", "DREAMSCAPE_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
	}
	if portStr := getEnv("PORT", "DREAMSCAPE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}
	if tz := getEnv("TIMEZONE", "DREAMSCAPE_TIMEZONE"); tz != "" {
		cfg.Journal.Timezone = tz
	}
	if path := getEnv("ARCHIVE_PATH", "DREAMSCAPE_ARCHIVE_PATH"); path != "" {
		cfg.Archive.Enabled = true
		cfg.Archive.Path = path
	}
	if token := getEnv("ARCHIVE_TOKEN", "DREAMSCAPE_ARCHIVE_TOKEN"); token != "" {
		cfg.Archive.PushToken = token
	}
	if level := getEnv("LOG_LEVEL", "DREAMSCAPE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// applyCLIOverrides applies command-line flag overrides to configuration
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, port int, archivePath string) {
	if dbType != "" {
		cfg.Database.Type = dbType
	}
	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
	}
	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if archivePath != "" {
		cfg.Archive.Enabled = true
		cfg.Archive.Path = archivePath
	}
}

// getEnv tries multiple environment variable names and returns the first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}
