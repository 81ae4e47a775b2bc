// Package utils contains general helper functions used across filebundler.
package utils

import (
	"path/filepath"
	"strings"
)

// Project metadata layout shared by the stores, the configuration loader and the reconciler.
const (
	// MetadataDirectoryName is the per-project directory holding persisted state.
	MetadataDirectoryName = ".filebundler"
	// PatternFileName is the include/exclude pattern file inside the metadata directory.
	PatternFileName = ".include"
	// SelectionsFileName stores the persisted selection.
	SelectionsFileName = "selections.json"
	// BundlesFileName stores the persisted bundles.
	BundlesFileName = "bundles.json"
	// SettingsFileName stores project-level settings.
	SettingsFileName = "settings.json"
	// BackupSuffix is appended to a persisted record before it is rewritten in place.
	BackupSuffix = ".backup"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// GitIgnoreFileName is the Git ignore file read when gitignore support is enabled.
	GitIgnoreFileName = ".gitignore"
	// GlobalConfigDirectoryName is the directory under the user home holding the global configuration.
	GlobalConfigDirectoryName = ".filebundler"
	// GlobalConfigFileName is the global configuration file name.
	GlobalConfigFileName = "config.yaml"
	// LocalConfigFileName is the configuration file looked up in the working directory.
	LocalConfigFileName = ".filebundler.yaml"
	// ProjectStructureFileName is the generated project structure document.
	ProjectStructureFileName = "project-structure.md"
)

const pathSegmentSeparator = "/"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// NormalizeRelativePath converts a user or LLM supplied relative path into the
// canonical POSIX form used as a persistence key: backslashes become slashes,
// a leading "./" or "/" is dropped and duplicate separators collapse.
func NormalizeRelativePath(relativePath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(relativePath), "\\", pathSegmentSeparator)
	for strings.HasPrefix(normalized, "./") {
		normalized = strings.TrimPrefix(normalized, "./")
	}
	normalized = strings.TrimLeft(normalized, pathSegmentSeparator)
	if normalized == "" {
		return ""
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(normalized)))
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// POSIXPath returns the path with forward slashes regardless of the host separator.
func POSIXPath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", pathSegmentSeparator)
}
