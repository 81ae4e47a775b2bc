package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestBooleanFlagLiterals(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		defaultValue bool
		arguments    []string
		expected     bool
		expectError  bool
	}{
		{name: "default_kept", defaultValue: true, arguments: []string{}, expected: true},
		{name: "bare_flag_is_true", arguments: []string{"--clipboard"}, expected: true},
		{name: "equals_false", defaultValue: true, arguments: []string{"--clipboard=false"}, expected: false},
		{name: "separate_no_literal", defaultValue: true, arguments: []string{"--clipboard", "no"}, expected: false},
		{name: "separate_on_literal", arguments: []string{"--clipboard", "on"}, expected: true},
		{name: "positional_after_flag_untouched", arguments: []string{"--clipboard", "notes"}, expected: true},
		{name: "invalid_literal_rejected", arguments: []string{"--clipboard=maybe"}, expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			command := &cobra.Command{Use: "flag-test"}
			flagValue := !testCase.defaultValue
			registerBooleanFlag(command.Flags(), &flagValue, "clipboard", testCase.defaultValue, "copy output")
			parseError := command.ParseFlags(normalizeBooleanFlagArguments(command, testCase.arguments))
			if testCase.expectError {
				if parseError == nil {
					t.Fatalf("expected parse error for %v", testCase.arguments)
				}
				return
			}
			if parseError != nil {
				t.Fatalf("unexpected parse error: %v", parseError)
			}
			if flagValue != testCase.expected {
				t.Fatalf("expected %t, got %t", testCase.expected, flagValue)
			}
		})
	}
}

func TestNormalizeStopsAtDoubleDash(t *testing.T) {
	t.Parallel()
	command := &cobra.Command{Use: "flag-test"}
	var flagValue bool
	registerBooleanFlag(command.Flags(), &flagValue, "write", false, "write file")

	normalized := normalizeBooleanFlagArguments(command, []string{"--write", "yes", "--", "--write", "no"})
	expected := []string{"--write=yes", "--", "--write", "no"}
	if len(normalized) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, normalized)
	}
	for argumentIndex := range expected {
		if normalized[argumentIndex] != expected[argumentIndex] {
			t.Fatalf("expected %v, got %v", expected, normalized)
		}
	}
}
