// Package reusable supplies local copies of workflows hosted in other
// repositories. Acquiring those copies (cloning, caching, authentication) is
// someone else's job; this package only maps a reference to a file that is
// already on disk, or fails explicitly.
package reusable

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/cigraph/internal/discovery"
	"github.com/rendis/cigraph/internal/reference"
	"github.com/rendis/cigraph/pkg/schema"
)

// Fetcher resolves a version-pinned remote reference to a local file path.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, ref reference.Ref) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref reference.Ref) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref reference.Ref) (string, error) {
	return f(ctx, ref)
}

// LocalMirror serves references from a directory laid out as
// <Root>/<owner>/<repo>/<version>/<path>. The owner may span several
// directories (GitLab groups and subgroups).
type LocalMirror struct {
	Root string
}

// NewLocalMirror creates a LocalMirror rooted at root.
func NewLocalMirror(root string) *LocalMirror {
	return &LocalMirror{Root: root}
}

// Fetch returns the mirrored file for ref, or a FETCH_FAILED error.
func (m *LocalMirror) Fetch(ctx context.Context, ref reference.Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m == nil || m.Root == "" {
		return "", fetchError(ref, "no mirror directory configured", nil)
	}
	if !validNamespace(ref.Owner) || !reference.ValidSegment(ref.Repo) || ref.Version == "" {
		return "", fetchError(ref, "reference is not mirrorable", nil)
	}
	rel, ok := reference.LocalPath(ref.Path)
	if !ok {
		return "", fetchError(ref, "reference path is empty or escapes the repository", nil)
	}

	repoDir := filepath.Join(m.Root, filepath.FromSlash(ref.Owner), ref.Repo)
	versionDir := filepath.Join(repoDir, filepath.FromSlash(ref.Version))
	if !discovery.Within(repoDir, versionDir) || versionDir == repoDir {
		return "", fetchError(ref, "reference version escapes the mirror", nil)
	}
	p := filepath.Join(versionDir, filepath.FromSlash(rel))

	info, err := os.Stat(p)
	if err != nil {
		return "", fetchError(ref, "reference is not mirrored", err).WithPath(p)
	}
	if info.IsDir() {
		return "", fetchError(ref, "mirrored reference is a directory", nil).WithPath(p)
	}
	return p, nil
}

// validNamespace accepts an owner made of one or more slash-separated
// segments, as GitLab subgroups are.
func validNamespace(owner string) bool {
	for _, seg := range strings.Split(owner, "/") {
		if !reference.ValidSegment(seg) {
			return false
		}
	}
	return true
}

func fetchError(ref reference.Ref, msg string, cause error) *schema.Error {
	e := schema.NewError(schema.ErrCodeFetchFailed, msg).
		WithDetails(map[string]any{"reference": ref.String()})
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
