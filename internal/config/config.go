// Package config loads the project pattern file, the per-project settings and
// the global application configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/filebundler/internal/patterns"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	includeEverythingPattern = "**/*"
	patternFilePermissions   = 0o644
)

// DefaultIncludePatterns seeds a new .include file: everything is included
// except dependency trees, caches and common binary formats.
var DefaultIncludePatterns = []string{
	"# One glob per line. Lines starting with ! exclude and always win over inclusions.",
	"# A trailing / matches a directory and everything below it.",
	includeEverythingPattern,
	"!.git/",
	"!venv/",
	"!.venv/",
	"!node_modules/",
	"!**/__pycache__/**",
	"!**/.ipynb_checkpoints/**",
	"!**/.vscode/**",
	"!package-lock.json",
	"!yarn.lock",
	"!.DS_Store",
	"!*.pyc",
	"!*.so",
	"!*.dll",
	"!*.exe",
	"!*.bin",
	"!*.dat",
	"!*.zip",
	"!*.pdf",
	"!*.png",
	"!*.jpg",
	"!*.jpeg",
	"!*.gif",
}

// PatternOptions controls how the effective pattern list of a project is assembled.
type PatternOptions struct {
	ProjectRoot       string
	MetadataDirectory string
	// UseGitignore appends every .gitignore entry of the project root as an exclusion.
	UseGitignore bool
	// Exclusions are appended as "!"-prefixed patterns.
	Exclusions []string
}

// LoadPatternFile reads one pattern per line, skipping blank lines and # comments.
// A missing file yields no patterns.
//
// #nosec G304
func LoadPatternFile(patternFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(patternFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", patternFilePath, closeError)
		}
	}()

	var patternList []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, patterns.CommentPrefix) {
			continue
		}
		patternList = append(patternList, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patternList, nil
}

// EnsurePatternFile writes DefaultIncludePatterns to the metadata directory
// when no pattern file exists yet. It reports the file path and whether it was created.
func EnsurePatternFile(metadataDirectory string) (string, bool, error) {
	patternFilePath := filepath.Join(metadataDirectory, utils.PatternFileName)
	if _, statError := os.Stat(patternFilePath); statError == nil {
		return patternFilePath, false, nil
	} else if !os.IsNotExist(statError) {
		return "", false, fmt.Errorf("inspect pattern file %s: %w", patternFilePath, statError)
	}
	if mkdirError := os.MkdirAll(metadataDirectory, 0o755); mkdirError != nil {
		return "", false, fmt.Errorf("create metadata directory %s: %w", metadataDirectory, mkdirError)
	}
	content := strings.Join(DefaultIncludePatterns, "\n") + "\n"
	if writeError := utils.WriteFileAtomic(patternFilePath, []byte(content), patternFilePermissions); writeError != nil {
		return "", false, fmt.Errorf("write pattern file %s: %w", patternFilePath, writeError)
	}
	return patternFilePath, true, nil
}

// SavePatternFile replaces the pattern file with patternList.
func SavePatternFile(metadataDirectory string, patternList []string) error {
	if mkdirError := os.MkdirAll(metadataDirectory, 0o755); mkdirError != nil {
		return fmt.Errorf("create metadata directory %s: %w", metadataDirectory, mkdirError)
	}
	patternFilePath := filepath.Join(metadataDirectory, utils.PatternFileName)
	content := strings.Join(patternList, "\n") + "\n"
	if writeError := utils.WriteFileAtomic(patternFilePath, []byte(content), patternFilePermissions); writeError != nil {
		return fmt.Errorf("write pattern file %s: %w", patternFilePath, writeError)
	}
	return nil
}

// LoadProjectPatterns assembles the pattern list for a project from the
// .include file, optional .gitignore exclusions and extra exclusions. When only
// exclusions result, an include-everything pattern is prepended so that the
// exclusions narrow the tree instead of emptying it.
func LoadProjectPatterns(options PatternOptions) ([]string, error) {
	patternFilePath := filepath.Join(options.MetadataDirectory, utils.PatternFileName)
	combinedPatterns, loadError := LoadPatternFile(patternFilePath)
	if loadError != nil {
		return nil, fmt.Errorf("loading %s from %s: %w", utils.PatternFileName, options.MetadataDirectory, loadError)
	}

	if options.UseGitignore {
		gitIgnoreFilePath := filepath.Join(options.ProjectRoot, utils.GitIgnoreFileName)
		gitIgnorePatterns, gitIgnoreError := LoadPatternFile(gitIgnoreFilePath)
		if gitIgnoreError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", utils.GitIgnoreFileName, options.ProjectRoot, gitIgnoreError)
		}
		for _, pattern := range gitIgnorePatterns {
			// negations cannot override an exclusion
			if strings.HasPrefix(pattern, patterns.ExclusionPrefix) {
				continue
			}
			combinedPatterns = append(combinedPatterns, patterns.ExclusionPrefix+pattern)
		}
	}

	deduplicatedPatterns := utils.DeduplicatePatterns(combinedPatterns)
	for _, exclusion := range options.Exclusions {
		trimmedExclusion := strings.TrimSpace(exclusion)
		if trimmedExclusion == "" {
			continue
		}
		if !strings.HasPrefix(trimmedExclusion, patterns.ExclusionPrefix) {
			trimmedExclusion = patterns.ExclusionPrefix + trimmedExclusion
		}
		if !utils.ContainsString(deduplicatedPatterns, trimmedExclusion) {
			deduplicatedPatterns = append(deduplicatedPatterns, trimmedExclusion)
		}
	}
	if len(deduplicatedPatterns) > 0 && !hasInclusion(deduplicatedPatterns) {
		deduplicatedPatterns = append([]string{includeEverythingPattern}, deduplicatedPatterns...)
	}
	return deduplicatedPatterns, nil
}

func hasInclusion(patternList []string) bool {
	for _, pattern := range patternList {
		if !strings.HasPrefix(pattern, patterns.ExclusionPrefix) {
			return true
		}
	}
	return false
}
