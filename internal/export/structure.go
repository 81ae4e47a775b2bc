package export

import (
	"bytes"

	"github.com/temirov/filebundler/internal/tree"
)

const (
	structureTitle          = "# Project Structure\n\n"
	structureSectionHeading = "## Directory Structure\n\n"
	codeFence               = "```\n"

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	directorySuffix     = "/"
)

// RenderStructure renders the filtered project tree as a markdown document.
func RenderStructure(projectTree *tree.Tree) string {
	var buffer bytes.Buffer
	buffer.WriteString(structureTitle)
	buffer.WriteString(structureSectionHeading)
	buffer.WriteString(codeFence)
	root := projectTree.RootNode()
	buffer.WriteString(root.Name + directorySuffix + "\n")
	writeStructureChildren(&buffer, projectTree, root, "")
	buffer.WriteString(codeFence)
	return buffer.String()
}

func writeStructureChildren(buffer *bytes.Buffer, projectTree *tree.Tree, directory *tree.Node, prefix string) {
	children := projectTree.Children(directory)
	for childIndex, child := range children {
		isLast := childIndex == len(children)-1
		connector := treeBranchConnector
		childPrefix := prefix + treeBranchPadding
		if isLast {
			connector = treeLastConnector
			childPrefix = prefix + treeLastPadding
		}
		name := child.Name
		if child.IsDir {
			name += directorySuffix
		}
		buffer.WriteString(prefix + connector + name + "\n")
		if child.IsDir {
			writeStructureChildren(buffer, projectTree, child, childPrefix)
		}
	}
}
