package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	jsonObjectPrefix = "{"
	codeFenceMarker  = "```"
	commentPrefix    = "#"
)

// SuggestedFiles groups suggested paths by confidence.
type SuggestedFiles struct {
	VeryLikelyUseful []string `json:"very_likely_useful"`
	ProbablyUseful   []string `json:"probably_useful"`
}

// SuggestionResponse is the answer of a file-suggestion model.
type SuggestionResponse struct {
	Name    string         `json:"name"`
	Files   SuggestedFiles `json:"files"`
	Message string         `json:"message,omitempty"`
}

// Paths returns the very likely paths followed, when includeProbable is set,
// by the probable ones.
func (response SuggestionResponse) Paths(includeProbable bool) []string {
	paths := append([]string(nil), response.Files.VeryLikelyUseful...)
	if includeProbable {
		paths = append(paths, response.Files.ProbablyUseful...)
	}
	return paths
}

// ParseSuggestionResponse decodes a suggestion response. JSON objects may be
// wrapped in a markdown code fence. Any other input is read as a plain list of
// relative paths, one per line, with blank lines and "#" comments skipped.
func ParseSuggestionResponse(data []byte) (SuggestionResponse, error) {
	trimmed := strings.TrimSpace(stripCodeFence(string(data)))
	if strings.HasPrefix(trimmed, jsonObjectPrefix) {
		var response SuggestionResponse
		if decodeError := json.Unmarshal([]byte(trimmed), &response); decodeError != nil {
			return SuggestionResponse{}, fmt.Errorf("decode suggestion response: %w", decodeError)
		}
		return response, nil
	}

	var response SuggestionResponse
	scanner := bufio.NewScanner(bytes.NewReader([]byte(trimmed)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		response.Files.VeryLikelyUseful = append(response.Files.VeryLikelyUseful, line)
	}
	if scanError := scanner.Err(); scanError != nil {
		return SuggestionResponse{}, fmt.Errorf("read suggested paths: %w", scanError)
	}
	return response, nil
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, codeFenceMarker) {
		return text
	}
	firstLineEnd := strings.Index(trimmed, "\n")
	if firstLineEnd < 0 {
		return ""
	}
	body := trimmed[firstLineEnd+1:]
	if closing := strings.LastIndex(body, codeFenceMarker); closing >= 0 {
		body = body[:closing]
	}
	return body
}
