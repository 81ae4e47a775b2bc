package project

import (
	"fmt"

	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const warningSuggestionNotFoundFormat = "suggested path is not part of the project tree"

// SelectedFiles returns the selected files in tree order.
func (project *Project) SelectedFiles() []*tree.Node {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.tree.SelectedFiles()
}

// SelectedRelativePaths returns the relative paths of the selected files in tree order.
func (project *Project) SelectedRelativePaths() []string {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.tree.SelectedRelativePaths()
}

// Toggle flips the node at relativePath and persists the resulting selection.
// It returns the new value of the node.
func (project *Project) Toggle(relativePath string) (bool, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	node, lookupError := project.lookupLocked(relativePath)
	if lookupError != nil {
		return false, lookupError
	}
	return project.mutateLocked(func() bool {
		return project.tree.Toggle(node)
	})
}

// Select sets every node named by relativePaths to value. All paths are
// resolved before anything changes; an unknown path fails the whole call.
func (project *Project) Select(relativePaths []string, value bool) error {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	nodes := make([]*tree.Node, 0, len(relativePaths))
	for _, relativePath := range relativePaths {
		node, lookupError := project.lookupLocked(relativePath)
		if lookupError != nil {
			return lookupError
		}
		nodes = append(nodes, node)
	}
	_, mutateError := project.mutateLocked(func() bool {
		project.tree.SetSelected(nodes, value)
		return value
	})
	return mutateError
}

// SelectAll selects every file of the tree and persists the selection.
func (project *Project) SelectAll() error {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	_, mutateError := project.mutateLocked(func() bool {
		project.tree.SelectAll()
		return true
	})
	return mutateError
}

// ClearAll deselects every node and persists the empty selection.
func (project *Project) ClearAll() error {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	_, mutateError := project.mutateLocked(func() bool {
		project.tree.ClearAll()
		return false
	})
	return mutateError
}

// ApplySuggestions replaces the selection with the files named by
// relativePaths, as returned by a file-suggestion response. Paths that do not
// resolve to a file of the tree are reported as warnings and skipped.
func (project *Project) ApplySuggestions(relativePaths []string) ([]*tree.Node, []types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	var warnings []types.Warning
	var matched []*tree.Node
	seen := make(map[string]struct{}, len(relativePaths))
	for _, relativePath := range relativePaths {
		normalizedPath := utils.NormalizeRelativePath(relativePath)
		node, found := project.tree.LookupRelative(normalizedPath)
		if !found || node.IsDir {
			warnings = append(warnings, types.NewWarning(types.WarningMissingFile, relativePath, warningSuggestionNotFoundFormat))
			continue
		}
		if _, duplicate := seen[node.RelativePath]; duplicate {
			continue
		}
		seen[node.RelativePath] = struct{}{}
		matched = append(matched, node)
	}
	_, mutateError := project.mutateLocked(func() bool {
		project.tree.SelectOnly(matched)
		return len(matched) > 0
	})
	if mutateError != nil {
		return nil, nil, mutateError
	}
	return matched, warnings, nil
}

// mutateLocked applies change to the tree and persists the selection. When the
// write fails the previous selection is restored so memory and disk agree.
func (project *Project) mutateLocked(change func() bool) (bool, error) {
	previousSelection := project.tree.SelectedFiles()
	result := change()
	if persistError := project.persistSelectionLocked(); persistError != nil {
		project.tree.SelectOnly(previousSelection)
		return false, persistError
	}
	return result, nil
}

func (project *Project) persistSelectionLocked() error {
	if saveError := project.selections.Save(project.root, project.tree.SelectedRelativePaths()); saveError != nil {
		return fmt.Errorf(errorPersistSelectionFmt, saveError)
	}
	return nil
}
