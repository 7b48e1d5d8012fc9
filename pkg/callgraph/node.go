// Package callgraph holds the dialect-agnostic call graph produced from CI
// configuration: one sentinel root, one node per workflow file, and one
// node per reference found inside it.
package callgraph

import (
	"fmt"

	"github.com/rendis/cigraph/pkg/schema"
)

// NodeType classifies a node in the call graph.
type NodeType string

const (
	// NodeTypeNone marks the sentinel root. It never represents a workflow.
	NodeTypeNone NodeType = "NONE"
	// NodeTypeInternal is a workflow file inside the analysed repository.
	NodeTypeInternal NodeType = "INTERNAL"
	// NodeTypeReusable is a version-pinned workflow hosted in another repository.
	NodeTypeReusable NodeType = "REUSABLE"
	// NodeTypeExternal is an opaque third-party action. Always a leaf.
	NodeTypeExternal NodeType = "EXTERNAL"
	// NodeTypeUnknown is a reference that could not be classified. Always a leaf.
	NodeTypeUnknown NodeType = "UNKNOWN"
)

// Expandable reports whether nodes of this type may have callees.
func (t NodeType) Expandable() bool {
	return t == NodeTypeInternal || t == NodeTypeReusable
}

// Document is a parsed CI configuration file. Implementations preserve source
// order; Value exposes the content as plain Go values for query and schema
// tooling, where ordering no longer matters.
type Document interface {
	Value() any
}

// Node is one vertex of the call graph. It is created once during discovery
// or classification and afterwards only gains callees.
type Node struct {
	// Name is the display identity: the file basename for internal nodes,
	// the full reference (owner/repo/path@ref) for reusable and external ones.
	Name string
	Type NodeType

	// SourcePath is the local file backing the node, empty for leaves.
	SourcePath string
	// Document is the parsed content of SourcePath, nil for leaves.
	Document Document
	// CallerPath is the SourcePath of the referencing node.
	CallerPath string
	// Context locates the reference inside the caller (e.g. "jobs.build.steps[1]").
	Context string

	// Callees are kept in order of appearance in the source document.
	Callees []*Node

	// Err explains why an expandable node could not be expanded, or why a
	// reference is UNKNOWN. nil for resolved nodes and external leaves.
	Err error
	// Issues are non-fatal structural findings about Document.
	Issues []schema.ValidationIssue
}

// NewRoot returns the sentinel root node.
func NewRoot() *Node {
	return &Node{Name: "root", Type: NodeTypeNone}
}

// AddCallee appends n to the callee list. Duplicates are kept.
func (n *Node) AddCallee(callee *Node) {
	n.Callees = append(n.Callees, callee)
}

// Resolved reports whether the node needs no further explanation: it was
// expanded successfully, or it is a leaf that is never expanded.
func (n *Node) Resolved() bool {
	return n.Err == nil
}

// MarkUnresolved records why the node was not expanded.
func (n *Node) MarkUnresolved(err error) {
	n.Err = err
}

// Key is the identity to use for any de-duplication. The debug string is not
// an identity.
func (n *Node) Key() NodeKey {
	return NodeKey{SourcePath: n.SourcePath, Name: n.Name, Type: n.Type}
}

// String returns the stable debug form Node(name,TYPE).
func (n *Node) String() string {
	return fmt.Sprintf("Node(%s,%s)", n.Name, n.Type)
}

// NodeKey identifies a node by (source path, name, type).
type NodeKey struct {
	SourcePath string
	Name       string
	Type       NodeType
}
