package project

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/filebundler/internal/export"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	warningExportReadFormat = "skipped during export: %v"
	warningExportBinary     = "skipped during export: binary content"
)

// exportSlot holds the outcome of reading one file; slots keep input order.
type exportSlot struct {
	file    export.File
	warning *types.Warning
}

// ExportFiles reads the files among nodes concurrently and returns their
// contents in input order. Directories contribute every file beneath them.
// Binary and unreadable files are skipped with a warning. Only cancellation of
// ctx is an error.
func (project *Project) ExportFiles(ctx context.Context, nodes []*tree.Node) ([]export.File, []types.Warning, error) {
	project.mutex.Lock()
	relativePaths := project.fileRelativePathsLocked(nodes)
	project.mutex.Unlock()
	return project.readFiles(ctx, relativePaths)
}

// readFiles reads relativePaths with at most exportWorkers concurrent reads.
func (project *Project) readFiles(ctx context.Context, relativePaths []string) ([]export.File, []types.Warning, error) {
	slots := make([]exportSlot, len(relativePaths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(project.exportWorkers())
	for slotIndex, relativePath := range relativePaths {
		slotIndex, relativePath := slotIndex, relativePath
		group.Go(func() error {
			if contextError := groupCtx.Err(); contextError != nil {
				return contextError
			}
			slots[slotIndex] = project.readExportSlot(relativePath)
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, nil, waitError
	}

	files := make([]export.File, 0, len(slots))
	var warnings []types.Warning
	for _, slot := range slots {
		if slot.warning != nil {
			warnings = append(warnings, *slot.warning)
			continue
		}
		files = append(files, slot.file)
	}
	project.logger.Debug("files read for export", zap.Int("files", len(files)), zap.Int("skipped", len(warnings)))
	return files, warnings, nil
}

func (project *Project) readExportSlot(relativePath string) exportSlot {
	absolutePath := filepath.Join(project.root, filepath.FromSlash(relativePath))
	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		warning := types.NewWarning(types.WarningUnreadable, relativePath, warningExportReadFormat, statError)
		return exportSlot{warning: &warning}
	}
	content, readError := os.ReadFile(absolutePath)
	if readError != nil {
		warning := types.NewWarning(types.WarningUnreadable, relativePath, warningExportReadFormat, readError)
		return exportSlot{warning: &warning}
	}
	if utils.IsBinary(content) {
		warning := types.NewWarning(types.WarningUnreadable, relativePath, warningExportBinary)
		return exportSlot{warning: &warning}
	}
	if _, observeError := project.stats.Observe(absolutePath, fileInfo.Size(), fileInfo.ModTime(), content); observeError != nil {
		project.logger.Debug("stats not recorded", zap.String("path", relativePath), zap.Error(observeError))
	}
	return exportSlot{file: export.File{RelativePath: relativePath, Content: string(content)}}
}

// ExportSelection renders the selected files in format.
func (project *Project) ExportSelection(ctx context.Context, format string) (string, []types.Warning, error) {
	files, warnings, readError := project.ExportFiles(ctx, project.SelectedFiles())
	if readError != nil {
		return "", nil, readError
	}
	rendered, renderError := export.Render(format, files)
	if renderError != nil {
		return "", nil, renderError
	}
	return rendered, warnings, nil
}

// ExportBundle renders the members of the named bundle in format and stamps
// the bundle as exported. Members outside the current tree are still exported
// as long as they can be read.
func (project *Project) ExportBundle(ctx context.Context, name string, format string) (string, []types.Warning, error) {
	bundle, lookupError := project.Bundle(name)
	if lookupError != nil {
		return "", nil, lookupError
	}
	files, warnings, readError := project.readFiles(ctx, bundle.RelativePaths())
	if readError != nil {
		return "", nil, readError
	}
	rendered, renderError := export.Render(format, files)
	if renderError != nil {
		return "", nil, renderError
	}
	markWarnings, markError := project.MarkExported(name)
	if markError != nil {
		return "", nil, markError
	}
	return rendered, append(warnings, markWarnings...), nil
}

func (project *Project) exportWorkers() int {
	if project.options.ExportWorkers > 0 {
		return project.options.ExportWorkers
	}
	return defaultExportWorkers
}
