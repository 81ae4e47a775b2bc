package reconcile_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/filebundler/internal/reconcile"
	"github.com/temirov/filebundler/internal/utils"
)

func TestValidateFirstRunIsValid(t *testing.T) {
	result := reconcile.Validate(t.TempDir(), "")
	require.True(t, result.Valid)
	require.Empty(t, result.Issues)
}

func TestValidateSamePathThroughSymlink(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if symlinkError := os.Symlink(root, link); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}
	result := reconcile.Validate(link, root)
	require.True(t, result.Valid)
	require.False(t, result.PathMismatch)
}

func TestValidateMovedProject(t *testing.T) {
	currentRoot := t.TempDir()
	storedRoot := filepath.Join(t.TempDir(), "old-location")

	result := reconcile.Validate(currentRoot, storedRoot)
	require.False(t, result.Valid)
	require.True(t, result.PathMismatch)
	require.False(t, result.PlatformChange)
	require.Len(t, result.Issues, 2)
}

func TestValidatePlatformChange(t *testing.T) {
	result := reconcile.Validate(t.TempDir(), `C:\Users\dev\project`)
	require.False(t, result.Valid)
	require.True(t, result.PathMismatch)
	require.True(t, result.PlatformChange)
}

func TestValidateMissingCurrentRoot(t *testing.T) {
	result := reconcile.Validate(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
}

func writeJSON(t *testing.T, path string, value interface{}) {
	t.Helper()
	content, encodeError := json.Marshal(value)
	require.NoError(t, encodeError)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func readJSON(t *testing.T, path string) interface{} {
	t.Helper()
	content, readError := os.ReadFile(path)
	require.NoError(t, readError)
	var value interface{}
	require.NoError(t, json.Unmarshal(content, &value))
	return value
}

func TestRewriteReferencesIsIdempotent(t *testing.T) {
	metadataDirectory := filepath.Join(t.TempDir(), utils.MetadataDirectoryName)
	oldRoot := "/home/old/project"
	newRoot := "/home/new/project"

	selectionsPath := filepath.Join(metadataDirectory, utils.SelectionsFileName)
	settingsPath := filepath.Join(metadataDirectory, utils.SettingsFileName)
	bundlesPath := filepath.Join(metadataDirectory, utils.BundlesFileName)
	writeJSON(t, selectionsPath, map[string]interface{}{"project": oldRoot, "selections": []string{"a.txt", oldRoot}})
	writeJSON(t, settingsPath, map[string]interface{}{"absolute_project_path": oldRoot, "max_files": 500, "nested": map[string]interface{}{"root": oldRoot + "/"}})
	writeJSON(t, bundlesPath, []interface{}{map[string]interface{}{"name": "docs", "fileItems": []interface{}{}}})

	first := reconcile.RewriteReferences(metadataDirectory, oldRoot, newRoot, nil)
	require.True(t, first.Success)
	require.Equal(t, 2, first.FilesUpdated)
	require.Zero(t, first.FilesFailed)

	require.Equal(t,
		map[string]interface{}{"project": newRoot, "selections": []interface{}{"a.txt", newRoot}},
		readJSON(t, selectionsPath))
	settings := readJSON(t, settingsPath).(map[string]interface{})
	require.Equal(t, newRoot, settings["absolute_project_path"])
	require.Equal(t, float64(500), settings["max_files"])
	require.Equal(t, newRoot, settings["nested"].(map[string]interface{})["root"])

	backup := readJSON(t, selectionsPath+utils.BackupSuffix).(map[string]interface{})
	require.Equal(t, oldRoot, backup["project"])
	_, statError := os.Stat(bundlesPath + utils.BackupSuffix)
	require.True(t, os.IsNotExist(statError))

	second := reconcile.RewriteReferences(metadataDirectory, oldRoot, newRoot, nil)
	require.True(t, second.Success)
	require.Zero(t, second.FilesUpdated)
}

func TestRewriteReferencesSkipsCorruptRecords(t *testing.T) {
	metadataDirectory := t.TempDir()
	oldRoot := "/old"
	writeJSON(t, filepath.Join(metadataDirectory, "good.json"), map[string]interface{}{"project": oldRoot})
	require.NoError(t, os.WriteFile(filepath.Join(metadataDirectory, "broken.json"), []byte("{oops"), 0o644))

	result := reconcile.RewriteReferences(metadataDirectory, oldRoot, "/new", nil)
	require.False(t, result.Success)
	require.Equal(t, 1, result.FilesUpdated)
	require.Equal(t, 1, result.FilesFailed)
	require.Equal(t, "/new", readJSON(t, filepath.Join(metadataDirectory, "good.json")).(map[string]interface{})["project"])
}

func TestRewriteReferencesWindowsRoot(t *testing.T) {
	metadataDirectory := t.TempDir()
	oldRoot := `C:\work\project`
	writeJSON(t, filepath.Join(metadataDirectory, "settings.json"), map[string]interface{}{"absolute_project_path": oldRoot})

	result := reconcile.RewriteReferences(metadataDirectory, oldRoot, "/srv/project", nil)
	require.True(t, result.Success)
	require.Equal(t, 1, result.FilesUpdated)
}
