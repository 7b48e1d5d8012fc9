// Package yamldoc parses YAML-family CI configuration into an
// order-preserving document. Anchors, aliases and merge keys are resolved
// on access so classifiers see the effective content in source order.
package yamldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rendis/cigraph/pkg/schema"
)

// MaxFileSize is the largest configuration file ParseFile accepts (1 MiB).
const MaxFileSize = 1024 * 1024

// Document is one parsed YAML file.
type Document struct {
	Path string
	root *yaml.Node
}

// ParseFile reads and parses path. Missing files yield NOT_FOUND, read
// failures IO_ERROR, oversized or malformed content PARSE_ERROR.
func ParseFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, schema.NewError(schema.ErrCodeNotFound, "file does not exist").WithPath(path).WithCause(err)
		}
		return nil, schema.NewError(schema.ErrCodeIO, "cannot stat file").WithPath(path).WithCause(err)
	}
	if info.IsDir() {
		return nil, schema.NewError(schema.ErrCodeNotFound, "path is a directory").WithPath(path)
	}
	if info.Size() > MaxFileSize {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "file is %d bytes, limit is %d", info.Size(), MaxFileSize).WithPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeIO, "cannot read file").WithPath(path).WithCause(err)
	}
	return Parse(data, path)
}

// Parse parses data. Only the first YAML document of a stream is used;
// an empty stream produces an empty document.
func Parse(data []byte, path string) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var node yaml.Node
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{Path: path}, nil
		}
		return nil, schema.NewError(schema.ErrCodeParse, err.Error()).WithPath(path).WithCause(err)
	}

	doc := &Document{Path: path}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		doc.root = node.Content[0]
	}
	return doc, nil
}

// Root returns the top-level value. It is null for empty documents.
func (d *Document) Root() Value {
	if d == nil {
		return Value{}
	}
	return Value{node: d.root}
}

// Value implements callgraph.Document.
func (d *Document) Value() any {
	return d.Root().Interface()
}

// String returns a short description for logs.
func (d *Document) String() string {
	return fmt.Sprintf("yamldoc(%s)", d.Path)
}
