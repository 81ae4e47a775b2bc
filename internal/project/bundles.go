package project

import (
	"fmt"
	"time"

	"github.com/temirov/filebundler/internal/stats"
	"github.com/temirov/filebundler/internal/store"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
)

const warningBundleMemberOutsideTreeFormat = "bundle member %q is not part of the current tree and was not selected"

// BundleReport combines the persisted bundle with figures derived from disk.
type BundleReport struct {
	Bundle  store.Bundle
	Status  store.BundleStatus
	Summary stats.Summary
}

// Bundles returns every stored bundle in creation order.
func (project *Project) Bundles() []store.Bundle {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.bundles.All()
}

// Bundle returns the bundle called name.
func (project *Project) Bundle(name string) (store.Bundle, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.bundleLocked(name)
}

func (project *Project) bundleLocked(name string) (store.Bundle, error) {
	bundle, found := project.bundles.Get(name)
	if !found {
		return store.Bundle{}, fmt.Errorf("%w: %s", store.ErrBundleNotFound, name)
	}
	return bundle, nil
}

// SaveBundle stores the files among nodes under name. Directories contribute
// every file beneath them. Nil nodes means the current selection.
func (project *Project) SaveBundle(name string, nodes []*tree.Node) (store.Bundle, []types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	if nodes == nil {
		nodes = project.tree.SelectedFiles()
	}
	savedBundle, warnings, saveError := project.bundles.Save(name, project.fileRelativePathsLocked(nodes))
	if saveError != nil {
		return store.Bundle{}, nil, saveError
	}
	return *savedBundle, warnings, nil
}

// DeleteBundle removes the bundle called name. The returned warnings list
// members pruned from the remaining bundles.
func (project *Project) DeleteBundle(name string) ([]types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.bundles.Delete(name)
}

// RenameBundle renames a bundle. An existing bundle with the new name is replaced.
func (project *Project) RenameBundle(oldName string, newName string) ([]types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.bundles.Rename(oldName, newName)
}

// MarkExported stamps the bundle with the current export time.
func (project *Project) MarkExported(name string) ([]types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.bundles.MarkExported(name)
}

// LoadBundle replaces the current selection with the members of the bundle.
// Members that are no longer part of the tree are reported as warnings.
func (project *Project) LoadBundle(name string) ([]types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	bundle, lookupError := project.bundleLocked(name)
	if lookupError != nil {
		return nil, lookupError
	}
	var warnings []types.Warning
	var members []*tree.Node
	for _, relativePath := range bundle.RelativePaths() {
		node, found := project.tree.LookupRelative(relativePath)
		if !found || node.IsDir {
			warnings = append(warnings, types.NewWarning(types.WarningMissingFile, relativePath, warningBundleMemberOutsideTreeFormat, relativePath))
			continue
		}
		members = append(members, node)
	}
	if _, mutateError := project.mutateLocked(func() bool {
		project.tree.SelectOnly(members)
		return len(members) > 0
	}); mutateError != nil {
		return nil, mutateError
	}
	return warnings, nil
}

// BundleReport returns the bundle called name with its staleness and size figures.
func (project *Project) BundleReport(name string) (BundleReport, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	bundle, lookupError := project.bundleLocked(name)
	if lookupError != nil {
		return BundleReport{}, lookupError
	}
	return BundleReport{
		Bundle:  bundle,
		Status:  project.bundles.Status(bundle),
		Summary: project.stats.Summarize(project.bundles.AbsolutePaths(bundle)),
	}, nil
}

// BundleReports returns a report for every stored bundle.
func (project *Project) BundleReports() []BundleReport {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	var reports []BundleReport
	for _, bundle := range project.bundles.All() {
		reports = append(reports, BundleReport{
			Bundle:  bundle,
			Status:  project.bundles.Status(bundle),
			Summary: project.stats.Summarize(project.bundles.AbsolutePaths(bundle)),
		})
	}
	return reports
}

// IsStale reports whether any member of the report changed after its last export.
func (report BundleReport) IsStale() bool {
	return report.Status.IsStale
}

// LastExportedAt returns the last export time, or the zero time if never exported.
func (report BundleReport) LastExportedAt() time.Time {
	if report.Bundle.Metadata.LastExportedAt == nil {
		return time.Time{}
	}
	return *report.Bundle.Metadata.LastExportedAt
}

// fileRelativePathsLocked expands directories to the files beneath them and
// removes duplicates while keeping first-seen order.
func (project *Project) fileRelativePathsLocked(nodes []*tree.Node) []string {
	var relativePaths []string
	seen := make(map[string]struct{})
	for _, node := range nodes {
		if node == nil {
			continue
		}
		for _, file := range project.tree.FilesUnder(node) {
			if _, duplicate := seen[file.RelativePath]; duplicate {
				continue
			}
			seen[file.RelativePath] = struct{}{}
			relativePaths = append(relativePaths, file.RelativePath)
		}
	}
	return relativePaths
}
