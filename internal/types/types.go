// Package types defines every cross‑package data structure used by filebundler.
package types

import (
	"fmt"
	"strings"
)

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"
	NodeTypeBinary    = "binary"

	FormatXML      = "xml"
	FormatRaw      = "raw"
	FormatMarkdown = "markdown"
)

// WarningKind classifies a recoverable condition reported alongside a result.
type WarningKind string

const (
	// WarningAccess marks an entry that could not be stat'ed or read during a walk.
	WarningAccess WarningKind = "access"
	// WarningTruncated marks a directory whose entries exceeded the configured limit.
	WarningTruncated WarningKind = "truncated"
	// WarningMissingFile marks a persisted reference whose file no longer resolves.
	WarningMissingFile WarningKind = "missing_file"
	// WarningProjectMismatch marks persisted state that belongs to another project root.
	WarningProjectMismatch WarningKind = "project_mismatch"
	// WarningCorruptRecord marks a persisted record that could not be decoded.
	WarningCorruptRecord WarningKind = "corrupt_record"
	// WarningPathValidation marks a stored project root that disagrees with the current one.
	WarningPathValidation WarningKind = "path_validation"
	// WarningUnreadable marks a file whose content cannot be exported as text.
	WarningUnreadable WarningKind = "unreadable"
)

// Warning is a recoverable condition. The operation that produced it still succeeded.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Path    string      `json:"path,omitempty"`
	Message string      `json:"message"`
}

// String renders the warning for terminal output.
func (warning Warning) String() string {
	if warning.Path == "" {
		return fmt.Sprintf("Warning: %s", warning.Message)
	}
	return fmt.Sprintf("Warning: %s: %s", warning.Path, warning.Message)
}

// NewWarning builds a warning with a formatted message.
func NewWarning(kind WarningKind, path string, format string, arguments ...interface{}) Warning {
	return Warning{Kind: kind, Path: path, Message: strings.TrimRight(fmt.Sprintf(format, arguments...), "\n")}
}

// FilterWarnings returns the warnings of the requested kind, preserving order.
func FilterWarnings(warnings []Warning, kind WarningKind) []Warning {
	var filtered []Warning
	for _, warning := range warnings {
		if warning.Kind == kind {
			filtered = append(filtered, warning)
		}
	}
	return filtered
}
