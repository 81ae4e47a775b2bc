package project

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/config"
	"github.com/temirov/filebundler/internal/reconcile"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

// MigrationResult reports a Migrate run.
type MigrationResult struct {
	OldRoot string
	NewRoot string
	Rewrite reconcile.RewriteResult
}

// Migrate rewrites stored references to oldRoot in the metadata files so they
// point at the current root, records the current root in the settings and
// reloads the project. An empty oldRoot uses the stored project path.
func (project *Project) Migrate(oldRoot string) (MigrationResult, []types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()

	if oldRoot == "" {
		oldRoot = project.settings.AbsoluteProjectPath
	}
	result := MigrationResult{OldRoot: oldRoot, NewRoot: utils.POSIXPath(project.root)}
	if oldRoot == "" {
		return result, nil, nil
	}

	result.Rewrite = reconcile.RewriteReferences(project.metadataDirectory, oldRoot, project.root, project.logger)
	if !result.Rewrite.Success {
		project.logger.Error("metadata rewrite incomplete",
			zap.String("old_root", oldRoot),
			zap.Int("updated", result.Rewrite.FilesUpdated),
			zap.Int("failed", result.Rewrite.FilesFailed))
		return result, nil, fmt.Errorf("rewrite project references: %d file(s) failed", result.Rewrite.FilesFailed)
	}

	warnings, reloadError := project.loadSettingsLocked()
	if reloadError != nil {
		return result, nil, reloadError
	}
	if project.settings.AbsoluteProjectPath != result.NewRoot {
		project.settings.AbsoluteProjectPath = result.NewRoot
		if saveError := config.SaveProjectSettings(project.metadataDirectory, project.settings); saveError != nil {
			return result, nil, saveError
		}
		project.validation = reconcile.Validate(project.root, result.NewRoot)
		warnings = nil
	}
	refreshWarnings, refreshError := project.refreshLocked()
	if refreshError != nil {
		return result, nil, refreshError
	}
	return result, append(warnings, refreshWarnings...), nil
}
