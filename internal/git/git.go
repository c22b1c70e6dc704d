// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git reads the revision of the repository under analysis so
// cached results can be dropped when the code changes.
package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNoGit is returned when the directory is not inside a git repository.
var ErrNoGit = errors.New("not a git repository")

// Revision identifies the state of a work tree.
type Revision struct {
	Head  string `json:"head"`  // HEAD commit hash, empty before the first commit
	Dirty bool   `json:"dirty"` // Uncommitted changes, staged or not
}

// String returns the short hash, suffixed with "+dirty" for a modified
// tree.
func (r Revision) String() string {
	s := r.Head
	if len(s) > 12 {
		s = s[:12]
	}
	if s == "" {
		s = "unborn"
	}
	if r.Dirty {
		s += "+dirty"
	}
	return s
}

// Repo wraps a go-git repository.
type Repo struct {
	repo *gogit.Repository
}

// Open opens the repository containing dir, searching parent
// directories. Returns ErrNoGit when there is none.
func Open(dir string) (*Repo, error) {
	r, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Repo{repo: r}, nil
}

// IsDirty returns true if the working tree has uncommitted changes
// (either staged or unstaged).
func (r *Repo) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}
	return !status.IsClean(), nil
}

// Revision returns the HEAD hash and dirty flag.
func (r *Repo) Revision() (Revision, error) {
	var rev Revision
	head, err := r.repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// No commits yet.
	case err != nil:
		return rev, fmt.Errorf("getting HEAD: %w", err)
	default:
		rev.Head = head.Hash().String()
	}

	dirty, err := r.IsDirty()
	if err != nil {
		return rev, err
	}
	rev.Dirty = dirty
	return rev, nil
}
