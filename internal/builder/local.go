package builder

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rendis/cigraph/pkg/schema"
)

// LocalFile resolves a repository-relative path against root. The target must
// be a regular file; anything missing (or a directory) is NOT_FOUND.
func LocalFile(root, rel string) (string, error) {
	p := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", schema.NewError(schema.ErrCodeNotFound, "referenced file does not exist").WithPath(p).WithCause(err)
		}
		return "", schema.NewError(schema.ErrCodeIO, "cannot stat referenced file").WithPath(p).WithCause(err)
	}
	if !info.Mode().IsRegular() {
		return "", schema.NewError(schema.ErrCodeNotFound, "referenced path is not a file").WithPath(p)
	}
	return p, nil
}
