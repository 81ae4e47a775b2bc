package project_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/filebundler/internal/project"
)

func TestParseSuggestionResponse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		includeProbable bool
		expectedPaths   []string
		expectedName    string
		expectError     bool
	}{
		{
			name:            "json_object",
			input:           `{"name": "payments", "files": {"very_likely_useful": ["a.go"], "probably_useful": ["b.go"]}, "message": "check b"}`,
			includeProbable: true,
			expectedPaths:   []string{"a.go", "b.go"},
			expectedName:    "payments",
		},
		{
			name:          "likely_only",
			input:         `{"files": {"very_likely_useful": ["a.go"], "probably_useful": ["b.go"]}}`,
			expectedPaths: []string{"a.go"},
		},
		{
			name:            "fenced_json",
			input:           "```json\n{\"files\": {\"very_likely_useful\": [\"src/x.py\"]}}\n```\n",
			includeProbable: true,
			expectedPaths:   []string{"src/x.py"},
		},
		{
			name:            "plain_lines",
			input:           "# suggested\nsrc/a.go\n\n  docs/readme.md  \n",
			includeProbable: true,
			expectedPaths:   []string{"src/a.go", "docs/readme.md"},
		},
		{
			name:        "broken_json",
			input:       `{"files": [`,
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			response, parseError := project.ParseSuggestionResponse([]byte(testCase.input))
			if testCase.expectError {
				require.Error(t, parseError)
				return
			}
			require.NoError(t, parseError)
			require.Equal(t, testCase.expectedPaths, response.Paths(testCase.includeProbable))
			require.Equal(t, testCase.expectedName, response.Name)
		})
	}
}
