// Package project is the per-project context: it owns the tree, the selection
// and bundle stores and the derived statistics of one project root, and
// serialises every operation on them.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/config"
	"github.com/temirov/filebundler/internal/export"
	"github.com/temirov/filebundler/internal/reconcile"
	"github.com/temirov/filebundler/internal/stats"
	"github.com/temirov/filebundler/internal/store"
	"github.com/temirov/filebundler/internal/tokenizer"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

// ErrPathNotInProject is returned when a relative path does not name a node of the tree.
var ErrPathNotInProject = errors.New("path is not part of the project tree")

const (
	defaultExportWorkers = 8

	errorResolveRootFormat   = "%w: %s: %w"
	errorPathNotFoundFormat  = "%w: %s"
	errorCreateMetadataFmt   = "create metadata directory %s: %w"
	errorPersistSelectionFmt = "persist selection: %w"

	warningCreatedPatternFileFormat = "created %s with default include patterns"
)

// Options configures Open.
type Options struct {
	Root string
	// Exclusions are appended to the project patterns as "!" rules.
	Exclusions []string
	// UseGitignore overrides the use_gitignore project setting when set.
	UseGitignore *bool
	// IncludeGit keeps the .git directory in the tree.
	IncludeGit bool
	// Counter counts tokens for statistics; nil disables token counts.
	Counter tokenizer.Counter
	// ExportWorkers bounds concurrent file reads during export.
	ExportWorkers int
	Logger        *zap.Logger
	// Clock replaces time.Now for bundle timestamps.
	Clock func() time.Time
}

// Project is the explicit context of one opened project. All methods are safe
// for concurrent use; they are serialised by an internal mutex.
type Project struct {
	mutex sync.Mutex

	root              string
	metadataDirectory string
	options           Options
	logger            *zap.Logger

	settings   config.ProjectSettings
	patterns   []string
	validation reconcile.ValidationResult

	tree       *tree.Tree
	selections *store.SelectionStore
	bundles    *store.BundleStore
	stats      *stats.Cache
}

// Open loads the project at options.Root: settings, patterns, tree, the
// persisted selection and the bundles. Recoverable conditions are returned as
// warnings; only an unusable root or failed metadata writes are errors.
func Open(options Options) (*Project, []types.Warning, error) {
	absoluteRoot, absoluteError := filepath.Abs(options.Root)
	if absoluteError != nil {
		return nil, nil, fmt.Errorf(errorResolveRootFormat, tree.ErrRootUnreadable, options.Root, absoluteError)
	}
	resolvedRoot, resolveError := filepath.EvalSymlinks(absoluteRoot)
	if resolveError != nil {
		return nil, nil, fmt.Errorf(errorResolveRootFormat, tree.ErrRootUnreadable, options.Root, resolveError)
	}

	logger := utils.LoggerOrNop(options.Logger)
	metadataDirectory := filepath.Join(resolvedRoot, utils.MetadataDirectoryName)
	if mkdirError := os.MkdirAll(metadataDirectory, 0o755); mkdirError != nil {
		return nil, nil, fmt.Errorf(errorCreateMetadataFmt, metadataDirectory, mkdirError)
	}

	project := &Project{
		root:              resolvedRoot,
		metadataDirectory: metadataDirectory,
		options:           options,
		logger:            logger,
		selections:        store.NewSelectionStore(metadataDirectory, logger),
		stats:             stats.NewCache(options.Counter, logger),
	}

	var warnings []types.Warning
	patternFilePath, created, ensureError := config.EnsurePatternFile(metadataDirectory)
	if ensureError != nil {
		return nil, nil, ensureError
	}
	if created {
		logger.Info(fmt.Sprintf(warningCreatedPatternFileFormat, patternFilePath))
	}

	settingsWarnings, settingsError := project.loadSettingsLocked()
	if settingsError != nil {
		return nil, nil, settingsError
	}
	warnings = append(warnings, settingsWarnings...)

	refreshWarnings, refreshError := project.refreshLocked()
	if refreshError != nil {
		return nil, nil, refreshError
	}
	warnings = append(warnings, refreshWarnings...)

	var bundleOptions []store.BundleStoreOption
	if options.Clock != nil {
		bundleOptions = append(bundleOptions, store.WithClock(options.Clock))
	}
	bundleStore, bundleWarnings, bundleError := store.OpenBundleStore(metadataDirectory, resolvedRoot, logger, bundleOptions...)
	if bundleError != nil {
		return nil, nil, bundleError
	}
	project.bundles = bundleStore
	warnings = append(warnings, bundleWarnings...)

	if project.settings.AutoBundleSettings.AutoRefreshProjectStructure {
		if _, structureError := project.writeProjectStructureLocked(); structureError != nil {
			return nil, nil, structureError
		}
	}

	logger.Debug("project opened",
		zap.String("root", resolvedRoot),
		zap.Int("nodes", project.tree.Len()),
		zap.Int("bundles", len(bundleStore.All())),
		zap.Int("warnings", len(warnings)))
	return project, warnings, nil
}

// loadSettingsLocked reads settings.json and validates the stored project root.
// On first use the current root is recorded.
func (project *Project) loadSettingsLocked() ([]types.Warning, error) {
	settings, warnings, loadError := config.LoadProjectSettings(project.metadataDirectory)
	if loadError != nil {
		return nil, loadError
	}
	project.settings = settings
	project.validation = reconcile.Validate(project.root, settings.AbsoluteProjectPath)
	for _, issue := range project.validation.Issues {
		warnings = append(warnings, types.NewWarning(types.WarningPathValidation, settings.AbsoluteProjectPath, "%s", issue))
	}
	if settings.AbsoluteProjectPath == "" {
		project.settings.AbsoluteProjectPath = utils.POSIXPath(project.root)
		if saveError := config.SaveProjectSettings(project.metadataDirectory, project.settings); saveError != nil {
			return nil, saveError
		}
	}
	return warnings, nil
}

// refreshLocked reloads the patterns, rebuilds the tree and restores the persisted selection.
func (project *Project) refreshLocked() ([]types.Warning, error) {
	useGitignore := config.BoolOrDefault(project.options.UseGitignore, project.settings.UseGitignore)
	patternList, patternError := config.LoadProjectPatterns(config.PatternOptions{
		ProjectRoot:       project.root,
		MetadataDirectory: project.metadataDirectory,
		UseGitignore:      useGitignore,
		Exclusions:        project.options.Exclusions,
	})
	if patternError != nil {
		return nil, patternError
	}

	sortRule := tree.DirectoriesFirst
	if project.settings.SortFilesFirst {
		sortRule = tree.FilesFirst
	}
	var skipNames []string
	if !project.options.IncludeGit {
		skipNames = append(skipNames, utils.GitDirectoryName)
	}
	projectTree, warnings, buildError := tree.Build(project.root, patternList, tree.BuildOptions{
		MaxFiles:  project.settings.MaxFiles,
		Sort:      sortRule,
		SkipNames: skipNames,
		Logger:    project.logger,
	})
	if buildError != nil {
		return nil, buildError
	}

	selectionWarnings, selectionError := project.selections.Load(project.root, projectTree)
	if selectionError != nil {
		return nil, selectionError
	}
	project.patterns = patternList
	project.tree = projectTree
	return append(warnings, selectionWarnings...), nil
}

// Refresh rebuilds the tree from disk with the current settings and patterns
// and restores the persisted selection.
func (project *Project) Refresh() ([]types.Warning, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	settingsWarnings, settingsError := project.loadSettingsLocked()
	if settingsError != nil {
		return nil, settingsError
	}
	refreshWarnings, refreshError := project.refreshLocked()
	if refreshError != nil {
		return nil, refreshError
	}
	if project.settings.AutoBundleSettings.AutoRefreshProjectStructure {
		if _, structureError := project.writeProjectStructureLocked(); structureError != nil {
			return nil, structureError
		}
	}
	return append(settingsWarnings, refreshWarnings...), nil
}

// Root returns the resolved project root.
func (project *Project) Root() string {
	return project.root
}

// MetadataDirectory returns the .filebundler directory of the project.
func (project *Project) MetadataDirectory() string {
	return project.metadataDirectory
}

// Settings returns the loaded project settings.
func (project *Project) Settings() config.ProjectSettings {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.settings
}

// Patterns returns the effective include and exclude patterns.
func (project *Project) Patterns() []string {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return append([]string(nil), project.patterns...)
}

// Validation returns the comparison of the stored and the current project root.
func (project *Project) Validation() reconcile.ValidationResult {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.validation
}

// Tree returns the current tree. Callers must treat it as read-only and use
// the Project methods to change the selection.
func (project *Project) Tree() *tree.Tree {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.tree
}

// Lookup resolves a relative path against the tree.
func (project *Project) Lookup(relativePath string) (*tree.Node, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.lookupLocked(relativePath)
}

func (project *Project) lookupLocked(relativePath string) (*tree.Node, error) {
	normalizedPath := utils.NormalizeRelativePath(relativePath)
	if normalizedPath == "" {
		return project.tree.RootNode(), nil
	}
	node, found := project.tree.LookupRelative(normalizedPath)
	if !found {
		return nil, fmt.Errorf(errorPathNotFoundFormat, ErrPathNotInProject, relativePath)
	}
	return node, nil
}

// Summary returns size, token and word totals for the files under node.
func (project *Project) Summary(node *tree.Node) stats.Summary {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.stats.Summarize(nodePaths(project.tree.FilesUnder(node)))
}

// ProjectStructure renders the filtered tree as markdown.
func (project *Project) ProjectStructure() string {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return export.RenderStructure(project.tree)
}

// WriteProjectStructure stores the project structure document in the metadata directory.
func (project *Project) WriteProjectStructure() (string, error) {
	project.mutex.Lock()
	defer project.mutex.Unlock()
	return project.writeProjectStructureLocked()
}

func (project *Project) writeProjectStructureLocked() (string, error) {
	structurePath := filepath.Join(project.metadataDirectory, utils.ProjectStructureFileName)
	content := export.RenderStructure(project.tree)
	if writeError := utils.WriteFileAtomic(structurePath, []byte(content), 0o644); writeError != nil {
		return "", fmt.Errorf("write project structure: %w", writeError)
	}
	project.logger.Info("project structure written", zap.String("path", structurePath))
	return structurePath, nil
}

func nodePaths(nodes []*tree.Node) []string {
	paths := make([]string, 0, len(nodes))
	for _, node := range nodes {
		paths = append(paths, node.Path)
	}
	return paths
}
