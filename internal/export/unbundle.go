package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	warningEmptySourceFormat = "document %d has an empty <source> and was skipped"
	warningEscapingPath      = "path escapes the target directory and was skipped"

	unbundledFilePermissions = 0o644
)

// ParseXML reads a <documents> export back into files. Documents without a
// source are skipped with a warning; a document that is not XML or has a
// different root element is an error.
func ParseXML(data []byte) ([]File, []types.Warning, error) {
	var documents xmlDocuments
	if decodeError := xml.Unmarshal(data, &documents); decodeError != nil {
		return nil, nil, fmt.Errorf("parse documents: %w", decodeError)
	}
	var files []File
	var warnings []types.Warning
	for documentIndex, document := range documents.Documents {
		source := strings.TrimSpace(document.Source)
		if source == "" {
			warnings = append(warnings, types.NewWarning(types.WarningCorruptRecord, "", warningEmptySourceFormat, documentIndex+1))
			continue
		}
		files = append(files, File{RelativePath: source, Content: document.Content.Text})
	}
	return files, warnings, nil
}

// WriteFiles writes files below targetDirectory, creating parent directories.
// Absolute paths and paths leaving targetDirectory are skipped with a warning.
// It returns the written paths in input order.
func WriteFiles(targetDirectory string, files []File) ([]string, []types.Warning, error) {
	var writtenPaths []string
	var warnings []types.Warning
	for _, file := range files {
		localPath := filepath.FromSlash(utils.POSIXPath(file.RelativePath))
		if !filepath.IsLocal(localPath) {
			warnings = append(warnings, types.NewWarning(types.WarningAccess, file.RelativePath, warningEscapingPath))
			continue
		}
		destinationPath := filepath.Join(targetDirectory, localPath)
		if mkdirError := os.MkdirAll(filepath.Dir(destinationPath), 0o755); mkdirError != nil {
			return writtenPaths, warnings, fmt.Errorf("create directory for %s: %w", destinationPath, mkdirError)
		}
		if writeError := utils.WriteFileAtomic(destinationPath, []byte(file.Content), unbundledFilePermissions); writeError != nil {
			return writtenPaths, warnings, fmt.Errorf("write %s: %w", destinationPath, writeError)
		}
		writtenPaths = append(writtenPaths, destinationPath)
	}
	return writtenPaths, warnings, nil
}
