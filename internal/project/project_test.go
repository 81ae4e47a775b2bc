package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/filebundler/internal/project"
	"github.com/temirov/filebundler/internal/store"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

type wordCounter struct{}

func (wordCounter) Name() string { return "words" }

func (wordCounter) CountString(input string) (int, error) {
	return len(strings.Fields(input)), nil
}

func writeProjectFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
}

func newProjectRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root, resolveError := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, resolveError)
	writeProjectFiles(t, root, files)
	return root
}

func writeIncludeFile(t *testing.T, root string, lines ...string) {
	t.Helper()
	writeProjectFiles(t, root, map[string]string{
		utils.MetadataDirectoryName + "/" + utils.PatternFileName: strings.Join(lines, "\n") + "\n",
	})
}

func openProject(t *testing.T, options project.Options) (*project.Project, []types.Warning) {
	t.Helper()
	opened, warnings, openError := project.Open(options)
	require.NoError(t, openError)
	return opened, warnings
}

func TestBundleSurvivesDeletedMember(t *testing.T) {
	root := newProjectRoot(t, map[string]string{
		"src/a.py":       "print('a')\n",
		"src/b.py":       "print('b')\n",
		"docs/readme.md": "# readme\n",
	})
	writeIncludeFile(t, root, "src/", "!src/b.py")

	opened, warnings := openProject(t, project.Options{Root: root})
	require.Empty(t, warnings)

	projectTree := opened.Tree()
	_, hasDocs := projectTree.LookupRelative("docs")
	require.False(t, hasDocs)
	_, hasExcluded := projectTree.LookupRelative("src/b.py")
	require.False(t, hasExcluded)
	_, hasIncluded := projectTree.LookupRelative("src/a.py")
	require.True(t, hasIncluded)

	selected, toggleError := opened.Toggle("src")
	require.NoError(t, toggleError)
	require.True(t, selected)
	require.Equal(t, []string{"src/a.py"}, opened.SelectedRelativePaths())
	sourceDirectory, _ := projectTree.LookupRelative("src")
	require.True(t, sourceDirectory.Selected())

	savedBundle, saveWarnings, saveError := opened.SaveBundle("core-src", nil)
	require.NoError(t, saveError)
	require.Empty(t, saveWarnings)
	require.Equal(t, []string{"src/a.py"}, savedBundle.RelativePaths())

	require.NoError(t, os.Remove(filepath.Join(root, "src", "a.py")))

	reopened, reopenWarnings := openProject(t, project.Options{Root: root})
	require.NotEmpty(t, types.FilterWarnings(reopenWarnings, types.WarningMissingFile))
	reloadedBundle, lookupError := reopened.Bundle("core-src")
	require.NoError(t, lookupError)
	require.Empty(t, reloadedBundle.FileItems)
	require.Empty(t, reopened.SelectedFiles())
}

func TestOpenSeedsMetadata(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"main.go": "package main\n"})

	opened, _ := openProject(t, project.Options{Root: root})

	metadataDirectory := filepath.Join(root, utils.MetadataDirectoryName)
	require.Equal(t, metadataDirectory, opened.MetadataDirectory())
	require.FileExists(t, filepath.Join(metadataDirectory, utils.PatternFileName))
	require.FileExists(t, filepath.Join(metadataDirectory, utils.SettingsFileName))
	require.Equal(t, utils.POSIXPath(root), opened.Settings().AbsoluteProjectPath)
	require.True(t, opened.Validation().Valid)
	require.NotEmpty(t, opened.Patterns())
}

func TestOpenMissingRoot(t *testing.T) {
	_, _, openError := project.Open(project.Options{Root: filepath.Join(t.TempDir(), "absent")})
	require.Error(t, openError)
	require.True(t, errors.Is(openError, tree.ErrRootUnreadable))
}

func TestOpenWritesProjectStructure(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"cmd/main.go": "package main\n"})
	writeProjectFiles(t, root, map[string]string{
		utils.MetadataDirectoryName + "/" + utils.SettingsFileName: `{"auto_bundle_settings": {"auto_refresh_project_structure": true}}`,
	})

	openProject(t, project.Options{Root: root})

	content, readError := os.ReadFile(filepath.Join(root, utils.MetadataDirectoryName, utils.ProjectStructureFileName))
	require.NoError(t, readError)
	require.Contains(t, string(content), "# Project Structure")
	require.Contains(t, string(content), "main.go")
}

func TestSelectionPersistsAcrossOpens(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"a.txt": "a", "lib/b.txt": "b", "lib/c.txt": "c"})
	writeIncludeFile(t, root, "**/*")

	opened, _ := openProject(t, project.Options{Root: root})
	require.NoError(t, opened.SelectAll())

	reopened, _ := openProject(t, project.Options{Root: root})
	require.ElementsMatch(t, []string{"a.txt", "lib/b.txt", "lib/c.txt"}, reopened.SelectedRelativePaths())

	require.NoError(t, reopened.Select([]string{"lib"}, false))
	require.Equal(t, []string{"a.txt"}, reopened.SelectedRelativePaths())

	again, _ := openProject(t, project.Options{Root: root})
	require.Equal(t, []string{"a.txt"}, again.SelectedRelativePaths())

	require.NoError(t, again.ClearAll())
	cleared, _ := openProject(t, project.Options{Root: root})
	require.Empty(t, cleared.SelectedFiles())
}

func TestToggleUnknownPath(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"a.txt": "a"})
	opened, _ := openProject(t, project.Options{Root: root})

	_, toggleError := opened.Toggle("missing.txt")
	require.True(t, errors.Is(toggleError, project.ErrPathNotInProject))

	selectError := opened.Select([]string{"a.txt", "missing.txt"}, true)
	require.True(t, errors.Is(selectError, project.ErrPathNotInProject))
	require.Empty(t, opened.SelectedFiles())
}

func TestApplySuggestions(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"a.go": "a", "b.go": "b", "docs/x.md": "x"})
	writeIncludeFile(t, root, "**/*")
	opened, _ := openProject(t, project.Options{Root: root})
	require.NoError(t, opened.Select([]string{"b.go"}, true))

	matched, warnings, applyError := opened.ApplySuggestions([]string{"./a.go", "missing.go", "docs\\x.md", "docs", "a.go"})
	require.NoError(t, applyError)
	require.Len(t, matched, 2)
	require.Len(t, warnings, 2)
	for _, warning := range warnings {
		require.Equal(t, types.WarningMissingFile, warning.Kind)
	}
	require.ElementsMatch(t, []string{"a.go", "docs/x.md"}, opened.SelectedRelativePaths())

	reopened, _ := openProject(t, project.Options{Root: root})
	require.ElementsMatch(t, []string{"a.go", "docs/x.md"}, reopened.SelectedRelativePaths())
}

func TestExportFilesKeepsOrderAndSkipsBinary(t *testing.T) {
	root := newProjectRoot(t, map[string]string{
		"b.txt":     "second\n",
		"a.txt":     "first\n",
		"bin.dat":   string([]byte{0x00, 0x01, 0x02, 0x00}),
		"dir/c.txt": "third\n",
	})
	writeIncludeFile(t, root, "**/*")

	for _, workers := range []int{1, 4} {
		opened, _ := openProject(t, project.Options{Root: root, ExportWorkers: workers})
		projectTree := opened.Tree()
		var nodes []*tree.Node
		for _, relativePath := range []string{"b.txt", "bin.dat", "a.txt", "dir", "a.txt"} {
			node, found := projectTree.LookupRelative(relativePath)
			require.True(t, found, relativePath)
			nodes = append(nodes, node)
		}

		files, warnings, exportError := opened.ExportFiles(context.Background(), nodes)
		require.NoError(t, exportError)
		require.Len(t, files, 3)
		require.Equal(t, "b.txt", files[0].RelativePath)
		require.Equal(t, "second\n", files[0].Content)
		require.Equal(t, "a.txt", files[1].RelativePath)
		require.Equal(t, "dir/c.txt", files[2].RelativePath)
		require.Len(t, warnings, 1)
		require.Equal(t, types.WarningUnreadable, warnings[0].Kind)
		require.Equal(t, "bin.dat", warnings[0].Path)
	}
}

func TestExportFilesCancelled(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"a.txt": "a"})
	opened, _ := openProject(t, project.Options{Root: root})
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, exportError := opened.ExportFiles(cancelledContext, opened.Tree().Files())
	require.True(t, errors.Is(exportError, context.Canceled))
}

func TestBundleLifecycle(t *testing.T) {
	root := newProjectRoot(t, map[string]string{"a.txt": "alpha beta", "b.txt": "gamma"})
	writeIncludeFile(t, root, "**/*")
	exportTime := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	opened, _ := openProject(t, project.Options{
		Root:    root,
		Counter: wordCounter{},
		Clock:   func() time.Time { return exportTime },
	})

	_, _, invalidError := opened.SaveBundle("Bad Name", nil)
	require.True(t, errors.Is(invalidError, store.ErrInvalidBundleName))

	aNode, _ := opened.Tree().LookupRelative("a.txt")
	_, _, saveError := opened.SaveBundle("docs", []*tree.Node{aNode})
	require.NoError(t, saveError)
	_, renameError := opened.RenameBundle("docs", "notes")
	require.NoError(t, renameError)
	require.Len(t, opened.Bundles(), 1)

	require.NoError(t, opened.SelectAll())
	loadWarnings, loadError := opened.LoadBundle("notes")
	require.NoError(t, loadError)
	require.Empty(t, loadWarnings)
	require.Equal(t, []string{"a.txt"}, opened.SelectedRelativePaths())

	rendered, exportWarnings, exportError := opened.ExportBundle(context.Background(), "notes", types.FormatRaw)
	require.NoError(t, exportError)
	require.Empty(t, exportWarnings)
	require.Contains(t, rendered, "alpha beta")
	require.NotContains(t, rendered, "gamma")

	report, reportError := opened.BundleReport("notes")
	require.NoError(t, reportError)
	require.Equal(t, exportTime, report.LastExportedAt())
	require.Equal(t, 1, report.Summary.Files)
	require.Equal(t, 2, report.Summary.Tokens)
	require.Equal(t, 1, report.Status.Files)

	deleteWarnings, deleteError := opened.DeleteBundle("notes")
	require.NoError(t, deleteError)
	require.Empty(t, deleteWarnings)
	_, lookupError := opened.Bundle("notes")
	require.True(t, errors.Is(lookupError, store.ErrBundleNotFound))
	_, missingLoadError := opened.LoadBundle("notes")
	require.True(t, errors.Is(missingLoadError, store.ErrBundleNotFound))
}

func TestRanking(t *testing.T) {
	root := newProjectRoot(t, map[string]string{
		"src/big.txt":   "one two three four five six",
		"src/small.txt": "one",
		"top.txt":       "one two three",
	})
	writeIncludeFile(t, root, "**/*")
	opened, _ := openProject(t, project.Options{Root: root, Counter: wordCounter{}})

	ranking := opened.Ranking(2)
	require.Len(t, ranking.Files, 2)
	require.Equal(t, "src/big.txt", ranking.Files[0].RelativePath)
	require.Equal(t, 6, ranking.Files[0].Tokens)
	require.Equal(t, "top.txt", ranking.Files[1].RelativePath)
	require.Len(t, ranking.Directories, 1)
	require.Equal(t, "src", ranking.Directories[0].RelativePath)
	require.Equal(t, 7, ranking.Directories[0].Tokens)

	sourceDirectory, _ := opened.Tree().LookupRelative("src")
	summary := opened.Summary(sourceDirectory)
	require.Equal(t, 2, summary.Files)
	require.Equal(t, 7, summary.Tokens)
}

func TestMigrateAfterMove(t *testing.T) {
	parent, resolveError := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, resolveError)
	oldRoot := filepath.Join(parent, "before")
	newRoot := filepath.Join(parent, "after")
	writeProjectFiles(t, oldRoot, map[string]string{"a.txt": "a", "b.txt": "b"})

	original, _ := openProject(t, project.Options{Root: oldRoot})
	require.NoError(t, original.Select([]string{"a.txt"}, true))
	require.NoError(t, os.Rename(oldRoot, newRoot))

	moved, movedWarnings := openProject(t, project.Options{Root: newRoot})
	require.NotEmpty(t, types.FilterWarnings(movedWarnings, types.WarningPathValidation))
	require.False(t, moved.Validation().Valid)
	require.Empty(t, moved.SelectedFiles())

	result, migrateWarnings, migrateError := moved.Migrate("")
	require.NoError(t, migrateError)
	require.Empty(t, migrateWarnings)
	require.True(t, result.Rewrite.Success)
	require.Equal(t, utils.POSIXPath(oldRoot), result.OldRoot)
	require.True(t, moved.Validation().Valid)
	require.Equal(t, utils.POSIXPath(newRoot), moved.Settings().AbsoluteProjectPath)
	require.Equal(t, []string{"a.txt"}, moved.SelectedRelativePaths())

	reopened, reopenWarnings := openProject(t, project.Options{Root: newRoot})
	require.Empty(t, types.FilterWarnings(reopenWarnings, types.WarningPathValidation))
	require.Equal(t, []string{"a.txt"}, reopened.SelectedRelativePaths())
}
