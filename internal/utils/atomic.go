package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, permissions os.FileMode) (err error) {
	directory := filepath.Dir(path)
	temporaryFile, createError := os.CreateTemp(directory, "."+filepath.Base(path)+".tmp-*")
	if createError != nil {
		return fmt.Errorf("create temporary file for %s: %w", path, createError)
	}
	temporaryPath := temporaryFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(data); writeError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf("write %s: %w", temporaryPath, writeError)
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf("sync %s: %w", temporaryPath, syncError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return fmt.Errorf("close %s: %w", temporaryPath, closeError)
	}
	if chmodError := os.Chmod(temporaryPath, permissions); chmodError != nil {
		return fmt.Errorf("chmod %s: %w", temporaryPath, chmodError)
	}
	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		return fmt.Errorf("replace %s: %w", path, renameError)
	}
	return nil
}
