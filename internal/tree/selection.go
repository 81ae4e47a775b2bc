package tree

// Toggle flips the selection of node. A file flips itself; a directory assigns
// the opposite of its current value to every node beneath it. Ancestors are
// re-derived afterwards. Toggle returns the new value of node.
func (projectTree *Tree) Toggle(node *Node) bool {
	newValue := !node.selected
	if node.IsDir {
		end := projectTree.subtreeEnd(node)
		for nodeIndex := node.index; nodeIndex < end; nodeIndex++ {
			projectTree.nodes[nodeIndex].selected = newValue
		}
		if len(node.children) == 0 {
			node.selected = false
		}
	} else {
		node.selected = newValue
	}
	projectTree.propagateUp(node)
	return node.selected
}

// SelectAll selects every file and therefore every directory.
func (projectTree *Tree) SelectAll() {
	projectTree.assignAll(true)
}

// ClearAll deselects every node.
func (projectTree *Tree) ClearAll() {
	projectTree.assignAll(false)
}

// SetSelected assigns value to the given files and re-derives every directory once.
// Directory nodes in the batch apply value to all files beneath them.
func (projectTree *Tree) SetSelected(nodes []*Node, value bool) {
	for _, node := range nodes {
		for _, fileNode := range projectTree.FilesUnder(node) {
			fileNode.selected = value
		}
	}
	projectTree.recomputeDirectories()
}

// SelectOnly makes nodes the entire selection.
func (projectTree *Tree) SelectOnly(nodes []*Node) {
	for _, node := range projectTree.nodes {
		node.selected = false
	}
	projectTree.SetSelected(nodes, true)
}

// SelectedFiles returns the selected files in display order.
func (projectTree *Tree) SelectedFiles() []*Node {
	var selectedFiles []*Node
	for _, node := range projectTree.nodes {
		if !node.IsDir && node.selected {
			selectedFiles = append(selectedFiles, node)
		}
	}
	return selectedFiles
}

// SelectedRelativePaths returns the relative paths of SelectedFiles.
func (projectTree *Tree) SelectedRelativePaths() []string {
	selectedFiles := projectTree.SelectedFiles()
	relativePaths := make([]string, 0, len(selectedFiles))
	for _, fileNode := range selectedFiles {
		relativePaths = append(relativePaths, fileNode.RelativePath)
	}
	return relativePaths
}

// IsPartial reports whether some, but not all, files under a directory are selected.
func (projectTree *Tree) IsPartial(node *Node) bool {
	if !node.IsDir || node.selected {
		return false
	}
	for _, fileNode := range projectTree.FilesUnder(node) {
		if fileNode.selected {
			return true
		}
	}
	return false
}

func (projectTree *Tree) assignAll(value bool) {
	for _, node := range projectTree.nodes {
		node.selected = value
	}
	root := projectTree.nodes[0]
	if len(root.children) == 0 {
		root.selected = false
	}
}

// propagateUp re-derives ancestors of node, stopping at the first unchanged level.
func (projectTree *Tree) propagateUp(node *Node) {
	for current := node; current.parent != noParent; {
		parent := projectTree.nodes[current.parent]
		derived := projectTree.derive(parent)
		if derived == parent.selected {
			return
		}
		parent.selected = derived
		current = parent
	}
}

// recomputeDirectories re-derives every directory. The arena is in pre-order,
// so a reverse pass settles children before parents.
func (projectTree *Tree) recomputeDirectories() {
	for nodeIndex := len(projectTree.nodes) - 1; nodeIndex >= 0; nodeIndex-- {
		node := projectTree.nodes[nodeIndex]
		if node.IsDir {
			node.selected = projectTree.derive(node)
		}
	}
}

func (projectTree *Tree) derive(directory *Node) bool {
	if len(directory.children) == 0 {
		return false
	}
	for _, childIndex := range directory.children {
		if !projectTree.nodes[childIndex].selected {
			return false
		}
	}
	return true
}
