package store_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/filebundler/internal/store"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

type projectFixture struct {
	root              string
	metadataDirectory string
}

func newProjectFixture(t *testing.T, relativePaths ...string) projectFixture {
	t.Helper()
	root, resolveError := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, resolveError)
	for _, relativePath := range relativePaths {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(relativePath), 0o644))
	}
	return projectFixture{root: root, metadataDirectory: filepath.Join(root, utils.MetadataDirectoryName)}
}

func (fixture projectFixture) buildTree(t *testing.T) *tree.Tree {
	t.Helper()
	projectTree, _, buildError := tree.Build(fixture.root, nil, tree.BuildOptions{})
	require.NoError(t, buildError)
	return projectTree
}

func TestSelectionRoundTrip(t *testing.T) {
	fixture := newProjectFixture(t, "src/a.go", "src/b.go", "README.md")
	selectionStore := store.NewSelectionStore(fixture.metadataDirectory, nil)
	selected := []string{"src/a.go", "README.md"}

	require.NoError(t, selectionStore.Save(fixture.root, selected))

	projectTree := fixture.buildTree(t)
	warnings, loadError := selectionStore.Load(fixture.root, projectTree)
	require.NoError(t, loadError)
	require.Empty(t, warnings)
	require.ElementsMatch(t, selected, projectTree.SelectedRelativePaths())
}

func TestSelectionRecordLayout(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	selectionStore := store.NewSelectionStore(fixture.metadataDirectory, nil)
	require.NoError(t, selectionStore.Save(fixture.root, []string{"./a.txt", "a.txt"}))

	content, readError := os.ReadFile(selectionStore.Path())
	require.NoError(t, readError)
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &record))
	require.Equal(t, utils.POSIXPath(fixture.root), record["project"])
	require.Equal(t, []interface{}{"a.txt"}, record["selections"])
}

func TestSelectionSkipsDeletedFileWithWarning(t *testing.T) {
	fixture := newProjectFixture(t, "keep.txt", "gone.txt")
	selectionStore := store.NewSelectionStore(fixture.metadataDirectory, nil)
	require.NoError(t, selectionStore.Save(fixture.root, []string{"keep.txt", "gone.txt"}))
	require.NoError(t, os.Remove(filepath.Join(fixture.root, "gone.txt")))

	projectTree := fixture.buildTree(t)
	warnings, loadError := selectionStore.Load(fixture.root, projectTree)
	require.NoError(t, loadError)
	require.Len(t, warnings, 1)
	require.Equal(t, types.WarningMissingFile, warnings[0].Kind)
	require.Equal(t, "gone.txt", warnings[0].Path)
	require.Equal(t, []string{"keep.txt"}, projectTree.SelectedRelativePaths())
}

func TestSelectionIgnoresOtherProject(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	selectionStore := store.NewSelectionStore(fixture.metadataDirectory, nil)
	require.NoError(t, selectionStore.Save("/somewhere/else", []string{"a.txt"}))

	projectTree := fixture.buildTree(t)
	warnings, loadError := selectionStore.Load(fixture.root, projectTree)
	require.NoError(t, loadError)
	require.Len(t, warnings, 1)
	require.Equal(t, types.WarningProjectMismatch, warnings[0].Kind)
	require.Empty(t, projectTree.SelectedFiles())
}

func TestSelectionMissingAndCorruptRecords(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	selectionStore := store.NewSelectionStore(fixture.metadataDirectory, nil)

	warnings, loadError := selectionStore.Load(fixture.root, fixture.buildTree(t))
	require.NoError(t, loadError)
	require.Empty(t, warnings)

	require.NoError(t, os.MkdirAll(fixture.metadataDirectory, 0o755))
	require.NoError(t, os.WriteFile(selectionStore.Path(), []byte("{not json"), 0o644))
	warnings, loadError = selectionStore.Load(fixture.root, fixture.buildTree(t))
	require.NoError(t, loadError)
	require.Len(t, types.FilterWarnings(warnings, types.WarningCorruptRecord), 1)
}

func TestBundleNameValidation(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)

	_, _, saveError := bundleStore.Save("My Bundle!", []string{"a.txt"})
	require.True(t, errors.Is(saveError, store.ErrInvalidBundleName))
	_, statError := os.Stat(bundleStore.Path())
	require.True(t, os.IsNotExist(statError))

	bundle, warnings, saveError := bundleStore.Save("my-bundle-1", []string{"a.txt"})
	require.NoError(t, saveError)
	require.Empty(t, warnings)
	require.Equal(t, "my-bundle-1", bundle.Name)
	require.Equal(t, []string{"a.txt"}, bundle.RelativePaths())
}

func TestBundleSaveReplacesSameName(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt", "b.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)

	_, _, saveError := bundleStore.Save("docs", []string{"a.txt"})
	require.NoError(t, saveError)
	_, _, saveError = bundleStore.Save("docs", []string{"b.txt"})
	require.NoError(t, saveError)

	reopened, warnings, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	require.Empty(t, warnings)
	require.Len(t, reopened.All(), 1)
	bundle, found := reopened.Get("docs")
	require.True(t, found)
	require.Equal(t, []string{"b.txt"}, bundle.RelativePaths())
}

func TestBundlePrunesMissingMembers(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt", "b.txt", "c.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	_, _, saveError := bundleStore.Save("first", []string{"a.txt", "b.txt"})
	require.NoError(t, saveError)

	require.NoError(t, os.Remove(filepath.Join(fixture.root, "b.txt")))

	reopened, warnings, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	require.Len(t, warnings, 1)
	require.Equal(t, types.WarningMissingFile, warnings[0].Kind)
	require.Equal(t, "b.txt", warnings[0].Path)
	first, _ := reopened.Get("first")
	require.Equal(t, []string{"a.txt"}, first.RelativePaths())

	require.NoError(t, os.Remove(filepath.Join(fixture.root, "a.txt")))
	_, warnings, saveError = reopened.Save("second", []string{"c.txt"})
	require.NoError(t, saveError)
	require.Len(t, warnings, 1)
	first, _ = reopened.Get("first")
	require.Empty(t, first.FileItems)
}

func TestBundleDeleteAndRename(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt", "b.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)

	_, deleteError := bundleStore.Delete("missing")
	require.True(t, errors.Is(deleteError, store.ErrBundleNotFound))
	_, renameError := bundleStore.Rename("missing", "other")
	require.True(t, errors.Is(renameError, store.ErrBundleNotFound))
	_, markError := bundleStore.MarkExported("missing")
	require.True(t, errors.Is(markError, store.ErrBundleNotFound))

	_, _, saveError := bundleStore.Save("alpha", []string{"a.txt"})
	require.NoError(t, saveError)
	_, _, saveError = bundleStore.Save("beta", []string{"b.txt"})
	require.NoError(t, saveError)

	_, renameError = bundleStore.Rename("alpha", "Bad Name")
	require.True(t, errors.Is(renameError, store.ErrInvalidBundleName))

	_, renameError = bundleStore.Rename("alpha", "beta")
	require.NoError(t, renameError)
	all := bundleStore.All()
	require.Len(t, all, 1)
	require.Equal(t, "beta", all[0].Name)
	require.Equal(t, []string{"a.txt"}, all[0].RelativePaths())

	_, deleteError = bundleStore.Delete("beta")
	require.NoError(t, deleteError)
	reopened, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	require.Empty(t, reopened.All())
}

func TestBundleStaleness(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	memberPath := filepath.Join(fixture.root, "a.txt")
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	currentTime := base
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil,
		store.WithClock(func() time.Time { return currentTime }))
	require.NoError(t, openError)

	require.NoError(t, os.Chtimes(memberPath, base.Add(-time.Hour), base.Add(-time.Hour)))
	_, _, saveError := bundleStore.Save("docs", []string{"a.txt"})
	require.NoError(t, saveError)

	bundle, _ := bundleStore.Get("docs")
	require.False(t, bundleStore.Status(bundle).IsStale)

	exportedAt := base.Add(-2 * time.Hour)
	currentTime = exportedAt
	_, markError := bundleStore.MarkExported("docs")
	require.NoError(t, markError)
	bundle, _ = bundleStore.Get("docs")
	status := bundleStore.Status(bundle)
	require.True(t, status.IsStale)
	require.True(t, status.LastModified.Equal(base.Add(-time.Hour)))
	require.True(t, bundle.Metadata.LastExportedAt.Equal(exportedAt))

	currentTime = base
	_, markError = bundleStore.MarkExported("docs")
	require.NoError(t, markError)
	bundle, _ = bundleStore.Get("docs")
	require.False(t, bundleStore.Status(bundle).IsStale)

	require.NoError(t, os.Chtimes(memberPath, base.Add(time.Hour), base.Add(time.Hour)))
	require.True(t, bundleStore.Status(bundle).IsStale)
	unchanged, _ := bundleStore.Get("docs")
	require.True(t, unchanged.Metadata.LastExportedAt.Equal(base))
}

func TestBundleCorruptEntriesAreSkipped(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt")
	require.NoError(t, os.MkdirAll(fixture.metadataDirectory, 0o755))
	content := `[{"name":"ok","fileItems":[{"path":"a.txt"}],"metadata":{"createdTimestamp":"2024-01-01T00:00:00Z"}},{"name":7}]`
	require.NoError(t, os.WriteFile(filepath.Join(fixture.metadataDirectory, utils.BundlesFileName), []byte(content), 0o644))

	bundleStore, warnings, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	require.Len(t, types.FilterWarnings(warnings, types.WarningCorruptRecord), 1)
	require.Len(t, bundleStore.All(), 1)
}

func TestBundleFailedWriteKeepsPreviousState(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt", "b.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	_, _, saveError := bundleStore.Save("keep", []string{"a.txt", "b.txt"})
	require.NoError(t, saveError)

	recordPath := bundleStore.Path()
	require.NoError(t, os.Remove(recordPath))
	require.NoError(t, os.MkdirAll(recordPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(recordPath, "occupied"), []byte("x"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(fixture.root, "b.txt")))

	_, _, saveError = bundleStore.Save("fresh", []string{"a.txt"})
	require.Error(t, saveError)
	_, found := bundleStore.Get("fresh")
	require.False(t, found)

	_, deleteError := bundleStore.Delete("keep")
	require.Error(t, deleteError)
	_, found = bundleStore.Get("keep")
	require.True(t, found)

	_, renameError := bundleStore.Rename("keep", "other")
	require.Error(t, renameError)
	_, found = bundleStore.Get("other")
	require.False(t, found)

	_, markError := bundleStore.MarkExported("keep")
	require.Error(t, markError)
	kept, found := bundleStore.Get("keep")
	require.True(t, found)
	require.Nil(t, kept.Metadata.LastExportedAt)
	require.Equal(t, []string{"a.txt", "b.txt"}, kept.RelativePaths())
}

func TestBundleDeleteAndMarkExportedReportPrunedMembers(t *testing.T) {
	fixture := newProjectFixture(t, "a.txt", "b.txt", "c.txt")
	bundleStore, _, openError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, openError)
	_, _, saveError := bundleStore.Save("alpha", []string{"a.txt", "b.txt"})
	require.NoError(t, saveError)
	_, _, saveError = bundleStore.Save("beta", []string{"c.txt"})
	require.NoError(t, saveError)

	require.NoError(t, os.Remove(filepath.Join(fixture.root, "c.txt")))
	deleteWarnings, deleteError := bundleStore.Delete("alpha")
	require.NoError(t, deleteError)
	require.Len(t, deleteWarnings, 1)
	require.Equal(t, types.WarningMissingFile, deleteWarnings[0].Kind)
	require.Equal(t, "c.txt", deleteWarnings[0].Path)

	_, _, saveError = bundleStore.Save("gamma", []string{"a.txt", "b.txt"})
	require.NoError(t, saveError)
	require.NoError(t, os.Remove(filepath.Join(fixture.root, "b.txt")))
	markWarnings, markError := bundleStore.MarkExported("gamma")
	require.NoError(t, markError)
	require.Len(t, markWarnings, 1)
	require.Equal(t, "b.txt", markWarnings[0].Path)

	reopened, reopenWarnings, reopenError := store.OpenBundleStore(fixture.metadataDirectory, fixture.root, nil)
	require.NoError(t, reopenError)
	require.Empty(t, reopenWarnings)
	gamma, found := reopened.Get("gamma")
	require.True(t, found)
	require.Equal(t, []string{"a.txt"}, gamma.RelativePaths())
	require.NotNil(t, gamma.Metadata.LastExportedAt)
}
