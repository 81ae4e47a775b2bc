// Package output renders project state for the terminal: the selection tree,
// bundle listings, token rankings and warnings.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/filebundler/internal/project"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	directorySuffix     = "/"

	selectedMarker   = "[x]"
	partialMarker    = "[~]"
	unselectedMarker = "[ ]"

	emptyBundleListMessage = "No bundles saved."
	emptySelectionMessage  = "No files selected."
	neverExportedLabel     = "never"
	staleLabel             = "stale"

	bundleLineFormat     = "%s  %d file(s)  %s  %d tokens  exported: %s"
	rankingLineFormat    = "%6d tokens  %8s  %s"
	rankingFilesHeader   = "Files by tokens"
	rankingFolderHeader  = "Directories by tokens"
	summaryLineFormat    = "%d file(s), %s, %d tokens, %d words"
	reportFieldFormat    = "%-14s %s\n"
	reportMissingMembers = "%d member(s) missing on disk"
)

var (
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	partialStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	directoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle    = lipgloss.NewStyle().Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Renderer formats project state. A plain renderer emits no styling so its
// output can be piped or compared in tests.
type Renderer struct {
	styled bool
}

// NewRenderer returns a renderer; styled enables lipgloss colouring.
func NewRenderer(styled bool) Renderer {
	return Renderer{styled: styled}
}

func (renderer Renderer) paint(style lipgloss.Style, text string) string {
	if !renderer.styled {
		return text
	}
	return style.Render(text)
}

// Tree renders the project tree with a selection marker per node.
func (renderer Renderer) Tree(projectTree *tree.Tree) string {
	var builder strings.Builder
	root := projectTree.RootNode()
	builder.WriteString(renderer.marker(projectTree, root) + " " + renderer.paint(directoryStyle, root.Name+directorySuffix) + "\n")
	renderer.writeChildren(&builder, projectTree, root, "")
	return builder.String()
}

func (renderer Renderer) writeChildren(builder *strings.Builder, projectTree *tree.Tree, directory *tree.Node, prefix string) {
	children := projectTree.Children(directory)
	for childIndex, child := range children {
		connector, childPrefix := treeBranchConnector, prefix+treeBranchPadding
		if childIndex == len(children)-1 {
			connector, childPrefix = treeLastConnector, prefix+treeLastPadding
		}
		name := child.Name
		if child.IsDir {
			name = renderer.paint(directoryStyle, name+directorySuffix)
		}
		builder.WriteString(prefix + connector + renderer.marker(projectTree, child) + " " + name + "\n")
		if child.IsDir {
			renderer.writeChildren(builder, projectTree, child, childPrefix)
		}
	}
}

func (renderer Renderer) marker(projectTree *tree.Tree, node *tree.Node) string {
	switch {
	case node.Selected():
		return renderer.paint(selectedStyle, selectedMarker)
	case projectTree.IsPartial(node):
		return renderer.paint(partialStyle, partialMarker)
	default:
		return renderer.paint(mutedStyle, unselectedMarker)
	}
}

// Selection lists the relative paths of nodes, one per line.
func (renderer Renderer) Selection(nodes []*tree.Node) string {
	if len(nodes) == 0 {
		return renderer.paint(mutedStyle, emptySelectionMessage) + "\n"
	}
	var builder strings.Builder
	for _, node := range nodes {
		builder.WriteString(node.RelativePath + "\n")
	}
	return builder.String()
}

// BundleList renders one line per bundle report.
func (renderer Renderer) BundleList(reports []project.BundleReport) string {
	if len(reports) == 0 {
		return renderer.paint(mutedStyle, emptyBundleListMessage) + "\n"
	}
	var builder strings.Builder
	for _, report := range reports {
		line := fmt.Sprintf(bundleLineFormat,
			renderer.paint(headerStyle, report.Bundle.Name),
			len(report.Bundle.FileItems),
			utils.FormatFileSize(report.Summary.Size),
			report.Summary.Tokens,
			exportedLabel(report))
		if report.IsStale() {
			line += "  " + renderer.paint(staleStyle, staleLabel)
		}
		builder.WriteString(line + "\n")
	}
	return builder.String()
}

// BundleReport renders the details and members of one bundle.
func (renderer Renderer) BundleReport(report project.BundleReport) string {
	var builder strings.Builder
	builder.WriteString(renderer.paint(headerStyle, report.Bundle.Name) + "\n")
	fmt.Fprintf(&builder, reportFieldFormat, "created:", utils.FormatTimestamp(report.Bundle.Metadata.CreatedAt))
	fmt.Fprintf(&builder, reportFieldFormat, "exported:", exportedLabel(report))
	fmt.Fprintf(&builder, reportFieldFormat, "last modified:", utils.FormatTimestamp(report.Status.LastModified))
	fmt.Fprintf(&builder, reportFieldFormat, "contents:", fmt.Sprintf(summaryLineFormat,
		report.Summary.Files, utils.FormatFileSize(report.Summary.Size), report.Summary.Tokens, report.Summary.Words))
	if report.Status.MissingFiles > 0 {
		fmt.Fprintf(&builder, reportFieldFormat, "warning:", fmt.Sprintf(reportMissingMembers, report.Status.MissingFiles))
	}
	if report.IsStale() {
		fmt.Fprintf(&builder, reportFieldFormat, "status:", renderer.paint(staleStyle, staleLabel))
	}
	for _, relativePath := range report.Bundle.RelativePaths() {
		builder.WriteString("  " + relativePath + "\n")
	}
	return builder.String()
}

// Ranking renders the token ranking of files and directories.
func (renderer Renderer) Ranking(ranking project.Ranking) string {
	var builder strings.Builder
	builder.WriteString(renderer.paint(headerStyle, rankingFilesHeader) + "\n")
	for _, entry := range ranking.Files {
		fmt.Fprintf(&builder, rankingLineFormat+"\n", entry.Tokens, utils.FormatFileSize(entry.Size), entry.RelativePath)
	}
	builder.WriteString("\n" + renderer.paint(headerStyle, rankingFolderHeader) + "\n")
	for _, entry := range ranking.Directories {
		fmt.Fprintf(&builder, rankingLineFormat+"\n", entry.Tokens, utils.FormatFileSize(entry.Size), entry.RelativePath+directorySuffix)
	}
	return builder.String()
}

// Warnings writes one line per warning to writer.
func (renderer Renderer) Warnings(writer io.Writer, warnings []types.Warning) {
	for _, warning := range warnings {
		fmt.Fprintln(writer, renderer.paint(warningStyle, warning.String()))
	}
}

func exportedLabel(report project.BundleReport) string {
	exportedAt := report.LastExportedAt()
	if exportedAt.IsZero() {
		return neverExportedLabel
	}
	return utils.FormatTimestamp(exportedAt)
}
