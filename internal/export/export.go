// Package export renders selected file contents as a single document and
// reads such documents back into files.
package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/temirov/filebundler/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	rawSectionHeaderFormat = "----- ./%s -----\n"
	rawSectionFooter       = "----- END -----\n"

	markdownFence        = "```"
	markdownHeaderFormat = "## %s\n\n"
)

// File is one exported file: its project-relative POSIX path and its text.
type File struct {
	RelativePath string
	Content      string
}

type xmlDocuments struct {
	XMLName   xml.Name      `xml:"documents"`
	Documents []xmlDocument `xml:"document"`
}

type xmlDocument struct {
	Index   int        `xml:"index,attr"`
	Source  string     `xml:"source"`
	Content xmlContent `xml:"document_content"`
}

type xmlContent struct {
	Text string `xml:",cdata"`
}

// Render formats files in the named format: xml, raw or markdown.
func Render(format string, files []File) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case types.FormatXML, "":
		return RenderXML(files)
	case types.FormatRaw:
		return RenderRaw(files), nil
	case types.FormatMarkdown:
		return RenderMarkdown(files), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// RenderXML wraps every file in a numbered <document> element of a single
// <documents> root. Contents are emitted as CDATA so they read verbatim.
func RenderXML(files []File) (string, error) {
	documents := xmlDocuments{Documents: make([]xmlDocument, 0, len(files))}
	for fileIndex, file := range files {
		documents.Documents = append(documents.Documents, xmlDocument{
			Index:   fileIndex + 1,
			Source:  file.RelativePath,
			Content: xmlContent{Text: file.Content},
		})
	}
	encoded, encodeError := xml.MarshalIndent(documents, indentPrefix, indentSpacer)
	if encodeError != nil {
		return "", fmt.Errorf("encode documents: %w", encodeError)
	}
	return string(encoded) + "\n", nil
}

// RenderRaw writes each file between a path header and an END footer.
func RenderRaw(files []File) string {
	var buffer bytes.Buffer
	for fileIndex, file := range files {
		if fileIndex > 0 {
			buffer.WriteString("\n")
		}
		fmt.Fprintf(&buffer, rawSectionHeaderFormat, file.RelativePath)
		buffer.WriteString(file.Content)
		if !strings.HasSuffix(file.Content, "\n") {
			buffer.WriteString("\n")
		}
		buffer.WriteString(rawSectionFooter)
	}
	return buffer.String()
}

// RenderMarkdown writes each file as a heading followed by a fenced code block.
func RenderMarkdown(files []File) string {
	var buffer bytes.Buffer
	for fileIndex, file := range files {
		if fileIndex > 0 {
			buffer.WriteString("\n")
		}
		fence := markdownFence
		for strings.Contains(file.Content, fence) {
			fence += "`"
		}
		fmt.Fprintf(&buffer, markdownHeaderFormat, file.RelativePath)
		buffer.WriteString(fence + strings.TrimPrefix(path.Ext(file.RelativePath), ".") + "\n")
		buffer.WriteString(file.Content)
		if !strings.HasSuffix(file.Content, "\n") {
			buffer.WriteString("\n")
		}
		buffer.WriteString(fence + "\n")
	}
	return buffer.String()
}
