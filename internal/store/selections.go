// Package store persists the project selection and named bundles as JSON
// records inside the project metadata directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	metadataDirectoryPermissions = 0o755
	recordFilePermissions        = 0o644
	jsonIndent                   = "  "

	errorCreateMetadataFormat = "create metadata directory %s: %w"
	errorEncodeRecordFormat   = "encode %s: %w"
	errorWriteRecordFormat    = "write %s: %w"
	errorReadRecordFormat     = "read %s: %w"

	warningCorruptSelectionsFormat = "stored selections could not be parsed and were ignored: %v"
	warningSelectionMismatchFormat = "stored selections belong to %s, not %s; they were not restored"
	warningSelectionMissingFormat  = "selected path is no longer part of the project; it was not restored"
	warningSelectionDirectory      = "selected path is a directory; only files are restored"
)

// selectionRecord is the on-disk form of selections.json.
type selectionRecord struct {
	Project    string   `json:"project"`
	Selections []string `json:"selections"`
}

// SelectionStore reads and writes selections.json.
type SelectionStore struct {
	metadataDirectory string
	logger            *zap.Logger
}

// NewSelectionStore returns a store rooted at metadataDirectory.
func NewSelectionStore(metadataDirectory string, logger *zap.Logger) *SelectionStore {
	return &SelectionStore{metadataDirectory: metadataDirectory, logger: utils.LoggerOrNop(logger)}
}

// Path returns the location of selections.json.
func (selectionStore *SelectionStore) Path() string {
	return filepath.Join(selectionStore.metadataDirectory, utils.SelectionsFileName)
}

// Save replaces the stored selection with relativePaths for projectRoot.
func (selectionStore *SelectionStore) Save(projectRoot string, relativePaths []string) error {
	record := selectionRecord{Project: utils.POSIXPath(projectRoot), Selections: make([]string, 0, len(relativePaths))}
	for _, relativePath := range relativePaths {
		if normalizedPath := utils.NormalizeRelativePath(relativePath); normalizedPath != "" {
			record.Selections = append(record.Selections, normalizedPath)
		}
	}
	record.Selections = utils.DeduplicatePatterns(record.Selections)
	if writeError := writeRecord(selectionStore.metadataDirectory, selectionStore.Path(), record); writeError != nil {
		return writeError
	}
	selectionStore.logger.Info("selections saved", zap.String("path", selectionStore.Path()), zap.Int("count", len(record.Selections)))
	return nil
}

// Load applies the stored selection to projectTree. A missing record restores
// nothing. Unparseable records, a record from another project and paths that
// no longer resolve to a file of the tree are reported as warnings.
func (selectionStore *SelectionStore) Load(projectRoot string, projectTree *tree.Tree) ([]types.Warning, error) {
	recordPath := selectionStore.Path()
	content, readError := os.ReadFile(recordPath)
	if errors.Is(readError, fs.ErrNotExist) {
		return nil, nil
	}
	if readError != nil {
		return nil, fmt.Errorf(errorReadRecordFormat, recordPath, readError)
	}

	var record selectionRecord
	if decodeError := json.Unmarshal(content, &record); decodeError != nil {
		return []types.Warning{types.NewWarning(types.WarningCorruptRecord, recordPath, warningCorruptSelectionsFormat, decodeError)}, nil
	}

	currentProject := utils.POSIXPath(projectRoot)
	if record.Project != "" && filepath.Clean(record.Project) != filepath.Clean(currentProject) {
		return []types.Warning{types.NewWarning(types.WarningProjectMismatch, recordPath, warningSelectionMismatchFormat, record.Project, currentProject)}, nil
	}

	var warnings []types.Warning
	var restoredNodes []*tree.Node
	for _, storedPath := range record.Selections {
		relativePath := utils.NormalizeRelativePath(storedPath)
		node, found := projectTree.LookupRelative(relativePath)
		if !found {
			warnings = append(warnings, types.NewWarning(types.WarningMissingFile, storedPath, warningSelectionMissingFormat))
			continue
		}
		if node.IsDir {
			warnings = append(warnings, types.NewWarning(types.WarningMissingFile, storedPath, warningSelectionDirectory))
			continue
		}
		restoredNodes = append(restoredNodes, node)
	}
	projectTree.SetSelected(restoredNodes, true)
	selectionStore.logger.Debug("selections restored", zap.Int("restored", len(restoredNodes)), zap.Int("skipped", len(warnings)))
	return warnings, nil
}

// writeRecord encodes value as indented JSON and replaces path atomically.
func writeRecord(metadataDirectory string, path string, value interface{}) error {
	if mkdirError := os.MkdirAll(metadataDirectory, metadataDirectoryPermissions); mkdirError != nil {
		return fmt.Errorf(errorCreateMetadataFormat, metadataDirectory, mkdirError)
	}
	encoded, encodeError := json.MarshalIndent(value, "", jsonIndent)
	if encodeError != nil {
		return fmt.Errorf(errorEncodeRecordFormat, path, encodeError)
	}
	encoded = append(encoded, '\n')
	if writeError := utils.WriteFileAtomic(path, encoded, recordFilePermissions); writeError != nil {
		return fmt.Errorf(errorWriteRecordFormat, path, writeError)
	}
	return nil
}
