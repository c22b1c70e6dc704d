// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ValidRepo(t *testing.T) {
	dir := initTestRepo(t)

	repo, err := Open(dir)
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestOpen_Subdirectory(t *testing.T) {
	dir := initTestRepo(t)
	sub := filepath.Join(dir, "internal", "service")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, err := Open(sub)
	assert.NoError(t, err)
}

func TestOpen_NotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoGit)
}

func TestIsDirty(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, dir string)
		want   bool
	}{
		{name: "clean", modify: func(*testing.T, string) {}, want: false},
		{
			name: "unstaged change",
			modify: func(t *testing.T, dir string) {
				writeFile(t, dir, "main.go", "package main\n\nfunc main() { /* modified */ }\n")
			},
			want: true,
		},
		{
			name: "untracked file",
			modify: func(t *testing.T, dir string) {
				writeFile(t, dir, "new.go", "package main\n")
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := initTestRepo(t)
			repo, err := Open(dir)
			require.NoError(t, err)
			tt.modify(t, dir)

			dirty, err := repo.IsDirty()
			require.NoError(t, err)
			assert.Equal(t, tt.want, dirty)
		})
	}
}

func TestRevision(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(dir)
	require.NoError(t, err)

	first, err := repo.Revision()
	require.NoError(t, err)
	assert.Len(t, first.Head, 40)
	assert.False(t, first.Dirty)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() { run() }\n")
	dirty, err := repo.Revision()
	require.NoError(t, err)
	assert.Equal(t, first.Head, dirty.Head)
	assert.True(t, dirty.Dirty)
	assert.NotEqual(t, first, dirty)

	addFileAndCommit(t, dir, "main.go", "package main\n\nfunc main() { run() }\n", "second")
	second, err := repo.Revision()
	require.NoError(t, err)
	assert.NotEqual(t, first.Head, second.Head)
	assert.False(t, second.Dirty)
}

func TestRevision_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	repo, err := Open(dir)
	require.NoError(t, err)
	rev, err := repo.Revision()
	require.NoError(t, err)
	assert.Empty(t, rev.Head)
	assert.Equal(t, "unborn", rev.String())
}

func TestRevisionString(t *testing.T) {
	tests := []struct {
		rev  Revision
		want string
	}{
		{Revision{Head: "0123456789abcdef0123456789abcdef01234567"}, "0123456789ab"},
		{Revision{Head: "0123456789abcdef0123456789abcdef01234567", Dirty: true}, "0123456789ab+dirty"},
		{Revision{Dirty: true}, "unborn+dirty"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rev.String())
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// initTestRepo creates a temporary git repository with an initial commit.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	addFileAndCommit(t, dir, "main.go", "package main\n\nfunc main() {}\n", "initial commit")
	return dir
}

// addFileAndCommit writes a file and commits it with the given message.
func addFileAndCommit(t *testing.T, dir, name, content, msg string) {
	t.Helper()

	r, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)

	writeFile(t, dir, name, content)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
	})
	require.NoError(t, err)
}
