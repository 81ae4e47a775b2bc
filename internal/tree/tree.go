// Package tree holds the in-memory model of a project directory: an arena of
// nodes linked by index, filtered by include patterns, carrying a cascading
// selection where file values are authoritative and directory values are derived.
package tree

import (
	"path/filepath"
	"time"
)

// RootRelativePath is the relative path of the project root node.
const RootRelativePath = "."

const noParent = -1

// Node is a file or directory of the project tree.
type Node struct {
	// Path is the absolute path, joined from the resolved project root.
	Path string
	// RelativePath is the POSIX path relative to the project root; "." for the root.
	RelativePath string
	Name         string
	IsDir        bool
	Size         int64
	ModTime      time.Time

	index    int
	parent   int
	children []int
	selected bool
}

// Selected reports the node selection. For directories the value is derived
// from the files beneath them.
func (node *Node) Selected() bool {
	return node.selected
}

// IsRoot reports whether node is the project root.
func (node *Node) IsRoot() bool {
	return node.parent == noParent
}

// Tree is the project hierarchy. Nodes are stored in pre-order so that a
// reverse pass visits children before their parents.
type Tree struct {
	root       string
	nodes      []*Node
	byPath     map[string]int
	byRelative map[string]int
}

// Root returns the project root path the tree was built from.
func (projectTree *Tree) Root() string {
	return projectTree.root
}

// RootNode returns the root directory node.
func (projectTree *Tree) RootNode() *Node {
	return projectTree.nodes[0]
}

// Len returns the number of nodes, root included.
func (projectTree *Tree) Len() int {
	return len(projectTree.nodes)
}

// Lookup returns the node with the given absolute path.
func (projectTree *Tree) Lookup(absolutePath string) (*Node, bool) {
	nodeIndex, found := projectTree.byPath[filepath.Clean(absolutePath)]
	if !found {
		return nil, false
	}
	return projectTree.nodes[nodeIndex], true
}

// LookupRelative returns the node with the given POSIX relative path.
func (projectTree *Tree) LookupRelative(relativePath string) (*Node, bool) {
	nodeIndex, found := projectTree.byRelative[relativePath]
	if !found {
		return nil, false
	}
	return projectTree.nodes[nodeIndex], true
}

// Parent returns the parent of node, or nil for the root.
func (projectTree *Tree) Parent(node *Node) *Node {
	if node.parent == noParent {
		return nil
	}
	return projectTree.nodes[node.parent]
}

// Children returns the children of node in display order.
func (projectTree *Tree) Children(node *Node) []*Node {
	children := make([]*Node, 0, len(node.children))
	for _, childIndex := range node.children {
		children = append(children, projectTree.nodes[childIndex])
	}
	return children
}

// Depth returns the number of ancestors between node and the root.
func (projectTree *Tree) Depth(node *Node) int {
	depth := 0
	for current := node; current.parent != noParent; current = projectTree.nodes[current.parent] {
		depth++
	}
	return depth
}

// Walk visits every node in display order. Returning false from visit stops the walk.
func (projectTree *Tree) Walk(visit func(node *Node) bool) {
	for _, node := range projectTree.nodes {
		if !visit(node) {
			return
		}
	}
}

// Files returns every file node in display order.
func (projectTree *Tree) Files() []*Node {
	var files []*Node
	for _, node := range projectTree.nodes {
		if !node.IsDir {
			files = append(files, node)
		}
	}
	return files
}

// FilesUnder returns the files in the subtree rooted at node, in display order.
func (projectTree *Tree) FilesUnder(node *Node) []*Node {
	if !node.IsDir {
		return []*Node{node}
	}
	var files []*Node
	end := projectTree.subtreeEnd(node)
	for nodeIndex := node.index + 1; nodeIndex < end; nodeIndex++ {
		if !projectTree.nodes[nodeIndex].IsDir {
			files = append(files, projectTree.nodes[nodeIndex])
		}
	}
	return files
}

// subtreeEnd returns the arena index just past the last descendant of node.
func (projectTree *Tree) subtreeEnd(node *Node) int {
	current := node
	for len(current.children) > 0 {
		current = projectTree.nodes[current.children[len(current.children)-1]]
	}
	return current.index + 1
}
