// Package discovery locates CI configuration files under a repository root.
// Absent files and directories are never errors; only I/O faults such as a
// permission error are reported, as IO_ERROR.
package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rendis/cigraph/pkg/schema"
)

// Dir returns the regular files directly inside repoPath/rel whose names end
// with one of exts, sorted lexically. Subdirectories are not descended.
func Dir(repoPath, rel string, exts ...string) ([]string, error) {
	dir := filepath.Join(repoPath, filepath.FromSlash(rel))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, ioError(dir, err)
	}

	var files []string
	for _, e := range entries {
		if !hasExt(e.Name(), exts) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if !isRegular(e, p) {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

// File returns repoPath/rel as a one-element slice when it is a regular file.
func File(repoPath, rel string) ([]string, error) {
	p := filepath.Join(repoPath, filepath.FromSlash(rel))
	info, err := os.Stat(p)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, ioError(p, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return []string{p}, nil
}

// Detected reports whether a discovery call found at least one file. Errors
// count as not detected.
func Detected(files []string, err error) bool {
	return err == nil && len(files) > 0
}

// FindRoot walks up from start looking for a directory that contains marker
// (a file or directory name). It returns that directory, or filepath.Dir(start)
// when no ancestor has the marker.
func FindRoot(start, marker string) string {
	first := filepath.Dir(start)
	dir := first
	for {
		if _, err := os.Lstat(filepath.Join(dir, marker)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return first
		}
		dir = parent
	}
}

// Within reports whether target lies inside root after cleaning both.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return true
		}
	}
	return false
}

func isRegular(e fs.DirEntry, p string) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// isAbsent treats a missing path, or a path component that is a file, as
// absent.
func isAbsent(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	return errors.Is(err, syscall.ENOTDIR)
}

func ioError(p string, err error) error {
	return schema.NewError(schema.ErrCodeIO, "cannot read configuration location").WithPath(p).WithCause(err)
}
