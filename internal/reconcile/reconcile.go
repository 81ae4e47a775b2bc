// Package reconcile detects a project that moved since its metadata was
// written and rewrites the stored root references after the move.
package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/utils"
)

const (
	issueCurrentMissingFormat = "current project path does not exist: %s"
	issueStoredMissingFormat  = "stored project path no longer exists: %s"
	issueMismatchFormat       = "project path mismatch: stored=%s, current=%s"
	issuePlatformChange       = "stored project path looks like it was written on a different platform"

	jsonExtension   = ".json"
	jsonIndent      = "  "
	filePermissions = 0o644
)

// ValidationResult describes how a stored project root relates to the current one.
type ValidationResult struct {
	Valid          bool
	CurrentPath    string
	StoredPath     string
	Issues         []string
	PathMismatch   bool
	PlatformChange bool
}

// RewriteResult reports the outcome of RewriteReferences.
type RewriteResult struct {
	Success      bool
	FilesUpdated int
	FilesFailed  int
}

// Validate compares the stored project root with the current one. An empty
// stored root means first use and is valid. Validate does not modify anything.
func Validate(currentRoot string, storedRoot string) ValidationResult {
	result := ValidationResult{Valid: true, CurrentPath: currentRoot, StoredPath: storedRoot}
	if strings.TrimSpace(storedRoot) == "" {
		return result
	}

	currentCanonical, currentExists := canonicalPath(currentRoot)
	if !currentExists {
		result.Valid = false
		result.Issues = append(result.Issues, fmt.Sprintf(issueCurrentMissingFormat, currentRoot))
		return result
	}
	storedCanonical, storedExists := canonicalPath(storedRoot)
	if !storedExists {
		result.Issues = append(result.Issues, fmt.Sprintf(issueStoredMissingFormat, storedRoot))
	}
	if currentCanonical != storedCanonical {
		result.PathMismatch = true
		result.Issues = append(result.Issues, fmt.Sprintf(issueMismatchFormat, storedRoot, currentRoot))
	}
	if looksLikeWindowsPath(storedRoot) != looksLikeWindowsPath(currentRoot) {
		result.PlatformChange = true
		result.Issues = append(result.Issues, issuePlatformChange)
	}
	result.Valid = len(result.Issues) == 0
	return result
}

// RewriteReferences replaces every JSON string value equal to oldRoot with
// newRoot in the *.json records below directory. Each modified record is first
// copied to <record>.backup. A record that cannot be processed is logged,
// counted and skipped; records already rewritten stay rewritten. Running it
// again with the same arguments changes nothing.
func RewriteReferences(directory string, oldRoot string, newRoot string, logger *zap.Logger) RewriteResult {
	logger = utils.LoggerOrNop(logger)
	result := RewriteResult{Success: true}
	oldValues := rootForms(oldRoot)
	newValue := utils.POSIXPath(filepath.Clean(newRoot))
	logger.Info("rewriting project path references", zap.String("from", oldRoot), zap.String("to", newValue))

	walkError := filepath.WalkDir(directory, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			logger.Error("unable to visit metadata entry", zap.String("path", path), zap.Error(entryError))
			result.FilesFailed++
			if directoryEntry != nil && directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if directoryEntry.IsDir() || filepath.Ext(path) != jsonExtension {
			return nil
		}
		updated, rewriteError := rewriteFile(path, oldValues, newValue)
		if rewriteError != nil {
			logger.Error("unable to rewrite metadata record", zap.String("path", path), zap.Error(rewriteError))
			result.FilesFailed++
			return nil
		}
		if updated {
			logger.Info("metadata record rewritten", zap.String("path", path))
			result.FilesUpdated++
		}
		return nil
	})
	if walkError != nil {
		logger.Error("unable to walk metadata directory", zap.String("path", directory), zap.Error(walkError))
		result.Success = false
	}
	if result.FilesFailed > 0 {
		result.Success = false
	}
	return result
}

func rewriteFile(path string, oldValues map[string]struct{}, newValue string) (bool, error) {
	originalContent, readError := os.ReadFile(path)
	if readError != nil {
		return false, fmt.Errorf("read %s: %w", path, readError)
	}
	decoder := json.NewDecoder(bytes.NewReader(originalContent))
	decoder.UseNumber()
	var document interface{}
	if decodeError := decoder.Decode(&document); decodeError != nil {
		return false, fmt.Errorf("parse %s: %w", path, decodeError)
	}

	rewritten, changed := replaceValues(document, oldValues, newValue)
	if !changed {
		return false, nil
	}
	encoded, encodeError := json.MarshalIndent(rewritten, "", jsonIndent)
	if encodeError != nil {
		return false, fmt.Errorf("encode %s: %w", path, encodeError)
	}
	encoded = append(encoded, '\n')

	if backupError := utils.WriteFileAtomic(path+utils.BackupSuffix, originalContent, filePermissions); backupError != nil {
		return false, fmt.Errorf("back up %s: %w", path, backupError)
	}
	if writeError := utils.WriteFileAtomic(path, encoded, filePermissions); writeError != nil {
		return false, fmt.Errorf("write %s: %w", path, writeError)
	}
	return true, nil
}

func replaceValues(value interface{}, oldValues map[string]struct{}, newValue string) (interface{}, bool) {
	switch typed := value.(type) {
	case string:
		if _, matches := oldValues[typed]; matches && typed != newValue {
			return newValue, true
		}
		return typed, false
	case map[string]interface{}:
		changed := false
		for key, nested := range typed {
			replaced, nestedChanged := replaceValues(nested, oldValues, newValue)
			if nestedChanged {
				typed[key] = replaced
				changed = true
			}
		}
		return typed, changed
	case []interface{}:
		changed := false
		for index, nested := range typed {
			replaced, nestedChanged := replaceValues(nested, oldValues, newValue)
			if nestedChanged {
				typed[index] = replaced
				changed = true
			}
		}
		return typed, changed
	default:
		return value, false
	}
}

// rootForms returns the spellings of root that count as a reference to it.
func rootForms(root string) map[string]struct{} {
	forms := map[string]struct{}{root: {}}
	forms[utils.POSIXPath(root)] = struct{}{}
	if trimmed := strings.TrimRight(utils.POSIXPath(root), "/"); trimmed != "" {
		forms[trimmed] = struct{}{}
		forms[trimmed+"/"] = struct{}{}
	}
	return forms
}

func canonicalPath(path string) (string, bool) {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return utils.POSIXPath(filepath.Clean(path)), false
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return utils.POSIXPath(absolutePath), false
	}
	return utils.POSIXPath(resolvedPath), true
}

func looksLikeWindowsPath(path string) bool {
	return strings.Contains(path, ":") && strings.Contains(path, "\\")
}
