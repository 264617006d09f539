// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// DefaultRemote is the remote name archives are pushed to
const DefaultRemote = "origin"

// Repository wraps go-git repository operations for the journal archive
type Repository struct {
	Path string
	repo *git.Repository
}

// InitRepository initializes a new git repository
func InitRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository: %w", err)
	}

	return &Repository{
		Path: path,
		repo: repo,
	}, nil
}

// OpenRepository opens an existing git repository
func OpenRepository(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return &Repository{
		Path: path,
		repo: repo,
	}, nil
}

// OpenOrInit opens the repository at path, initializing it when missing
func OpenOrInit(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return InitRepository(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return &Repository{Path: path, repo: repo}, nil
}

// Status returns the status of the repository
func (r *Repository) Status() (git.Status, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return status, nil
}

// HasChanges returns true if there are uncommitted changes
func (r *Repository) HasChanges() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// GetHeadCommit returns the current HEAD reference
func (r *Repository) GetHeadCommit() (*plumbing.Reference, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref, nil
}

// EnsureRemote points the default remote at url, adding it when missing
func (r *Repository) EnsureRemote(url string) error {
	if remote, err := r.repo.Remote(DefaultRemote); err == nil {
		cfg := remote.Config()
		if len(cfg.URLs) > 0 && cfg.URLs[0] == url {
			return nil
		}
		if err := r.repo.DeleteRemote(DefaultRemote); err != nil {
			return fmt.Errorf("failed to replace remote: %w", err)
		}
	}

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: DefaultRemote,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}
	return nil
}

// HasRemote checks if the default remote exists
func (r *Repository) HasRemote() bool {
	_, err := r.repo.Remote(DefaultRemote)
	return err == nil
}

// Push pushes commits to the default remote using a personal access token
func (r *Repository) Push(token string) error {
	if token == "" {
		return fmt.Errorf("token is required for push")
	}

	err := r.repo.Push(&git.PushOptions{
		RemoteName: DefaultRemote,
		Auth: &http.BasicAuth{
			Username: "git", // Can be anything except empty string
			Password: token,
		},
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}
