// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tejzpr/dreamscape-mcp/internal/dream"
	"github.com/tejzpr/dreamscape-mcp/internal/journal"
)

// Archive layout
const (
	JournalFile = "journal.json"
	DreamsDir   = "dreams"
)

// LockName is the lease guarding concurrent snapshots of one archive
const LockName = "archive-snapshot"

// Source provides the journal contents to archive
type Source interface {
	Snapshot(ctx context.Context) (journal.Export, error)
}

// Locker serialises snapshots across processes sharing a database
type Locker interface {
	WithLock(ctx context.Context, name, holder string, fn func() error) error
}

// Options configures an Archiver
type Options struct {
	RemoteURL string
	PushToken string
	Holder    string // lease holder identity, usually the host name
	Locker    Locker
}

// Archiver writes versioned snapshots of the journal into a git repository
type Archiver struct {
	repo   *Repository
	source Source
	opts   Options
	logger *zap.Logger
}

// Result describes one snapshot run
type Result struct {
	Committed bool   `json:"committed"`
	Hash      string `json:"hash,omitempty"`
	Dreams    int    `json:"dreams"`
	Message   string `json:"message,omitempty"`
}

// NewArchiver opens or initializes the archive repository at path
func NewArchiver(path string, source Source, logger *zap.Logger, opts Options) (*Archiver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo, err := OpenOrInit(path)
	if err != nil {
		return nil, err
	}
	if opts.RemoteURL != "" {
		if err := repo.EnsureRemote(opts.RemoteURL); err != nil {
			return nil, err
		}
	}
	if opts.Holder == "" {
		opts.Holder, _ = os.Hostname()
	}
	return &Archiver{repo: repo, source: source, opts: opts, logger: logger}, nil
}

// Repository returns the underlying archive repository
func (a *Archiver) Repository() *Repository {
	return a.repo
}

// Snapshot writes the current journal to the worktree and commits it when anything changed
func (a *Archiver) Snapshot(ctx context.Context) (Result, error) {
	var result Result
	run := func() error {
		var err error
		result, err = a.snapshot(ctx)
		return err
	}

	var err error
	if a.opts.Locker != nil {
		err = a.opts.Locker.WithLock(ctx, LockName, a.opts.Holder, run)
	} else {
		err = run()
	}
	if err != nil {
		a.logger.Error("archive snapshot failed", zap.String("path", a.repo.Path), zap.Error(err))
		return Result{}, err
	}
	return result, nil
}

func (a *Archiver) snapshot(ctx context.Context) (Result, error) {
	export, err := a.source.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read journal: %w", err)
	}

	if err := a.writeWorktree(export); err != nil {
		return Result{}, err
	}

	result := Result{Dreams: len(export.Dreams)}
	opts := DefaultCommitOptions()
	opts.Message = CommitMessageFormats{}.Snapshot(len(export.Dreams))

	hash, err := a.repo.CommitAll(opts)
	if errors.Is(err, ErrNothingToCommit) {
		a.logger.Debug("archive unchanged", zap.Int("dreams", result.Dreams))
		return result, nil
	}
	if err != nil {
		return Result{}, err
	}

	result.Committed = true
	result.Hash = hash
	result.Message = opts.Message
	a.logger.Info("archive snapshot committed",
		zap.String("hash", hash),
		zap.Int("dreams", result.Dreams))

	if a.opts.RemoteURL != "" && a.opts.PushToken != "" {
		if err := a.repo.Push(a.opts.PushToken); err != nil {
			// The local commit stands; the next snapshot pushes again
			a.logger.Warn("archive push failed", zap.Error(err))
		}
	}
	return result, nil
}

// ErrPathCollision is returned when two dreams render to the same archive file
var ErrPathCollision = errors.New("archive path collision")

// writeWorktree replaces the archive contents with the export
func (a *Archiver) writeWorktree(export journal.Export) error {
	// Every dream must own its markdown file
	seen := make(map[string]string, len(export.Dreams))
	for _, d := range export.Dreams {
		path := DreamPath(d)
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%w: dreams %s and %s both map to %s", ErrPathCollision, other, d.ID, path)
		}
		seen[path] = d.ID
	}

	data, err := export.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.repo.Path, JournalFile), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", JournalFile, err)
	}

	dreamsPath := filepath.Join(a.repo.Path, DreamsDir)
	if err := os.RemoveAll(dreamsPath); err != nil {
		return fmt.Errorf("failed to reset %s: %w", DreamsDir, err)
	}
	for _, d := range export.Dreams {
		path := filepath.Join(a.repo.Path, DreamPath(d))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create dream directory: %w", err)
		}
		content, err := dream.ToMarkdown(d)
		if err != nil {
			return fmt.Errorf("failed to render dream %s: %w", d.ID, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write dream %s: %w", d.ID, err)
		}
	}
	return nil
}

// DreamPath returns the archive-relative markdown path of a dream: dreams/YYYY/MM/<slug>.md
func DreamPath(d dream.Dream) string {
	return filepath.Join(DreamsDir, d.Date.Format("2006"), d.Date.Format("01"), dream.Slug(d)+".md")
}

// History returns up to limit snapshot commits, newest first
func (a *Archiver) History(limit int) ([]CommitInfo, error) {
	return a.repo.GetCommitHistory(limit)
}
