// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scan walks a source tree and parses matching files in parallel.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// skipDirs contains directory names that Dir never enters.
var skipDirs = map[string]bool{
	"vendor":       true,
	".git":         true,
	"testdata":     true,
	"node_modules": true,
	"target":       true,
	"build":        true,
}

// Options controls a scan.
type Options struct {
	// Extensions lists the file suffixes to parse, such as ".java".
	Extensions []string
	// Concurrency bounds the parser goroutines. Zero means runtime.NumCPU().
	Concurrency int
}

// ParseFunc turns one file into a value. path is absolute.
type ParseFunc[T any] func(ctx context.Context, path string, src []byte) (T, error)

// Result holds the parsed files keyed by path relative to the scan root.
type Result[T any] struct {
	Root   string
	Files  map[string]T
	Errors []FileError
}

// Paths returns the parsed relative paths in sorted order.
func (r *Result[T]) Paths() []string {
	out := make([]string, 0, len(r.Files))
	for p := range r.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FileError records a failure for a single file.
type FileError struct {
	FilePath string
	Err      error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FilePath, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Dir walks dir, honoring the root .gitignore, and runs parse over every
// file with a matching extension on a bounded worker pool. Per-file
// failures land in Result.Errors and do not abort the scan.
func Dir[T any](ctx context.Context, dir string, opts Options, parse ParseFunc[T]) (*Result[T], error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	paths, absDir, err := List(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}

	result := &Result[T]{Root: absDir, Files: make(map[string]T, len(paths))}
	if len(paths) == 0 {
		return result, nil
	}

	type parsed struct {
		path  string
		value T
		err   error
	}

	jobs := make(chan string, len(paths))
	results := make(chan parsed, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := ctx.Err(); err != nil {
					results <- parsed{path: path, err: err}
					continue
				}
				src, err := os.ReadFile(path)
				if err != nil {
					results <- parsed{path: path, err: err}
					continue
				}
				v, err := parse(ctx, path, src)
				results <- parsed{path: path, value: v, err: err}
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for pr := range results {
		rel, relErr := filepath.Rel(absDir, pr.path)
		if relErr != nil {
			rel = pr.path
		}
		if pr.err != nil {
			result.Errors = append(result.Errors, FileError{FilePath: rel, Err: pr.err})
			continue
		}
		result.Files[rel] = pr.value
	}
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].FilePath < result.Errors[j].FilePath
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// List returns the absolute paths under dir whose names end in one of
// exts, sorted, along with the absolute root. An empty exts matches every
// file.
func List(dir string, exts []string) ([]string, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving directory: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, "", fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("%s is not a directory", absDir)
	}

	gi := loadGitignore(absDir)

	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		rel, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path == absDir {
				return nil
			}
			if skipDirs[d.Name()] || (gi != nil && gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExt(d.Name(), exts) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("walking directory: %w", err)
	}
	sort.Strings(paths)
	return paths, absDir, nil
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// loadGitignore compiles the root .gitignore. A missing file yields nil.
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
