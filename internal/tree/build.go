package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/patterns"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

// ErrRootUnreadable is returned when the project root cannot be resolved or listed.
var ErrRootUnreadable = errors.New("project root is unreadable")

const (
	errorCompilePatternsFormat = "compile include patterns: %w"
	errorRootUnreadableFormat  = "%w: %s: %w"
	errorRootNotDirectory      = "not a directory"

	warningStatFormat       = "unable to stat: %v"
	warningReadDirFormat    = "skipping subdirectory: %v"
	warningTruncationFormat = "directory contains %d entries, exceeding limit of %d; truncating"
)

// SortRule orders the children of a directory.
type SortRule int

const (
	// DirectoriesFirst lists subdirectories before files.
	DirectoriesFirst SortRule = iota
	// FilesFirst lists files before subdirectories.
	FilesFirst
)

// BuildOptions tunes tree construction.
type BuildOptions struct {
	// MaxFiles caps the entries kept per directory after filtering; zero or less means unlimited.
	MaxFiles int
	Sort     SortRule
	// SkipNames lists entry names that are never part of the tree, at any depth.
	SkipNames []string
	Logger    *zap.Logger
}

type pendingNode struct {
	node     Node
	children []*pendingNode
}

type treeBuilder struct {
	rootPath  string
	matcher   *patterns.Matcher
	options   BuildOptions
	skipNames map[string]struct{}
	logger    *zap.Logger
	warnings  []types.Warning
}

// Build walks root and returns the filtered tree. Directories are kept only
// when they contain at least one included file. Entries that cannot be read
// are reported as warnings; an unreadable root is an error wrapping ErrRootUnreadable.
func Build(root string, patternList []string, options BuildOptions) (*Tree, []types.Warning, error) {
	matcher, compileError := patterns.Compile(patternList)
	if compileError != nil {
		return nil, nil, fmt.Errorf(errorCompilePatternsFormat, compileError)
	}

	absoluteRootPath, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return nil, nil, fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root, absoluteError)
	}
	resolvedRootPath, resolveError := filepath.EvalSymlinks(absoluteRootPath)
	if resolveError != nil {
		return nil, nil, fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root, resolveError)
	}
	rootInfo, statError := os.Stat(resolvedRootPath)
	if statError != nil {
		return nil, nil, fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root, statError)
	}
	if !rootInfo.IsDir() {
		return nil, nil, fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root, errors.New(errorRootNotDirectory))
	}
	rootEntries, readError := os.ReadDir(resolvedRootPath)
	if readError != nil {
		return nil, nil, fmt.Errorf(errorRootUnreadableFormat, ErrRootUnreadable, root, readError)
	}

	builder := &treeBuilder{
		rootPath:  resolvedRootPath,
		matcher:   matcher,
		options:   options,
		skipNames: map[string]struct{}{utils.MetadataDirectoryName: {}},
		logger:    utils.LoggerOrNop(options.Logger),
	}
	for _, skipName := range options.SkipNames {
		builder.skipNames[skipName] = struct{}{}
	}

	rootPending := &pendingNode{node: Node{
		Path:         resolvedRootPath,
		RelativePath: RootRelativePath,
		Name:         filepath.Base(resolvedRootPath),
		IsDir:        true,
		ModTime:      rootInfo.ModTime(),
	}}
	rootPending.children = builder.buildChildren(resolvedRootPath, RootRelativePath, rootEntries)

	projectTree := flatten(resolvedRootPath, rootPending)
	builder.logger.Debug("project tree built",
		zap.String("root", resolvedRootPath),
		zap.Int("nodes", projectTree.Len()),
		zap.Int("warnings", len(builder.warnings)))
	return projectTree, builder.warnings, nil
}

type candidate struct {
	name         string
	path         string
	relativePath string
	info         fs.FileInfo
}

func (builder *treeBuilder) buildChildren(directoryPath string, directoryRelativePath string, entries []fs.DirEntry) []*pendingNode {
	var candidates []candidate
	for _, directoryEntry := range entries {
		entryName := directoryEntry.Name()
		if _, skipped := builder.skipNames[entryName]; skipped {
			continue
		}
		entryPath := filepath.Join(directoryPath, entryName)
		entryRelativePath := joinRelative(directoryRelativePath, entryName)

		entryInfo, statError := os.Stat(entryPath)
		if statError != nil {
			builder.warn(types.NewWarning(types.WarningAccess, entryRelativePath, warningStatFormat, statError))
			continue
		}
		if entryInfo.IsDir() {
			if directoryEntry.Type()&fs.ModeSymlink != 0 {
				builder.logger.Debug("not descending into symlinked directory", zap.String("path", entryRelativePath))
				continue
			}
			if builder.matcher.ExcludesDirectory(entryRelativePath) {
				continue
			}
		} else if !builder.matcher.Includes(entryRelativePath) {
			continue
		}
		candidates = append(candidates, candidate{name: entryName, path: entryPath, relativePath: entryRelativePath, info: entryInfo})
	}

	sortCandidates(candidates, builder.options.Sort)
	if builder.options.MaxFiles > 0 && len(candidates) > builder.options.MaxFiles {
		builder.warn(types.NewWarning(types.WarningTruncated, directoryRelativePath, warningTruncationFormat, len(candidates), builder.options.MaxFiles))
		candidates = candidates[:builder.options.MaxFiles]
	}

	var children []*pendingNode
	for _, entryCandidate := range candidates {
		child := &pendingNode{node: Node{
			Path:         entryCandidate.path,
			RelativePath: entryCandidate.relativePath,
			Name:         entryCandidate.name,
			IsDir:        entryCandidate.info.IsDir(),
			ModTime:      entryCandidate.info.ModTime(),
		}}
		if !child.node.IsDir {
			child.node.Size = entryCandidate.info.Size()
			children = append(children, child)
			continue
		}
		subdirectoryEntries, readError := os.ReadDir(entryCandidate.path)
		if readError != nil {
			builder.warn(types.NewWarning(types.WarningAccess, entryCandidate.relativePath, warningReadDirFormat, readError))
			continue
		}
		child.children = builder.buildChildren(entryCandidate.path, entryCandidate.relativePath, subdirectoryEntries)
		if len(child.children) == 0 {
			continue
		}
		children = append(children, child)
	}
	return children
}

func (builder *treeBuilder) warn(warning types.Warning) {
	builder.logger.Debug("tree build warning", zap.String("path", warning.Path), zap.String("message", warning.Message))
	builder.warnings = append(builder.warnings, warning)
}

func sortCandidates(candidates []candidate, rule SortRule) {
	sort.SliceStable(candidates, func(leftIndex, rightIndex int) bool {
		left, right := candidates[leftIndex], candidates[rightIndex]
		leftIsDir, rightIsDir := left.info.IsDir(), right.info.IsDir()
		if leftIsDir != rightIsDir {
			if rule == FilesFirst {
				return rightIsDir
			}
			return leftIsDir
		}
		leftFolded, rightFolded := strings.ToLower(left.name), strings.ToLower(right.name)
		if leftFolded != rightFolded {
			return leftFolded < rightFolded
		}
		return left.name < right.name
	})
}

func joinRelative(parentRelativePath string, name string) string {
	if parentRelativePath == RootRelativePath {
		return name
	}
	return parentRelativePath + "/" + name
}

// flatten lays out the pending hierarchy in pre-order and wires index links.
func flatten(rootPath string, rootPending *pendingNode) *Tree {
	projectTree := &Tree{
		root:       rootPath,
		byPath:     make(map[string]int),
		byRelative: make(map[string]int),
	}
	var appendNode func(pending *pendingNode, parentIndex int) int
	appendNode = func(pending *pendingNode, parentIndex int) int {
		node := pending.node
		node.index = len(projectTree.nodes)
		node.parent = parentIndex
		node.children = make([]int, 0, len(pending.children))
		storedNode := &node
		projectTree.nodes = append(projectTree.nodes, storedNode)
		projectTree.byPath[storedNode.Path] = storedNode.index
		projectTree.byRelative[storedNode.RelativePath] = storedNode.index
		for _, childPending := range pending.children {
			childIndex := appendNode(childPending, storedNode.index)
			storedNode.children = append(storedNode.children, childIndex)
		}
		return storedNode.index
	}
	appendNode(rootPending, noParent)
	return projectTree
}
