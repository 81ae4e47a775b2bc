package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeConfigurationTargets(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	workingDirectory := t.TempDir()

	testCases := []struct {
		name         string
		options      InitOptions
		expectedPath string
	}{
		{
			name:         "default target is local",
			options:      InitOptions{WorkingDirectory: workingDirectory},
			expectedPath: filepath.Join(workingDirectory, ".filebundler.yaml"),
		},
		{
			name:         "global target",
			options:      InitOptions{Target: InitTargetGlobal},
			expectedPath: filepath.Join(homeDirectory, ".filebundler", "config.yaml"),
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			writtenPath, initError := InitializeConfiguration(testCase.options)
			require.NoError(t, initError)
			require.Equal(t, testCase.expectedPath, writtenPath)

			loaded, loadError := loadConfigurationFromPath(writtenPath)
			require.NoError(t, loadError)
			require.Equal(t, "xml", loaded.Export.Format)
			require.NotNil(t, loaded.Tokens.Enabled)
			require.True(t, *loaded.Tokens.Enabled)
		})
	}
}

func TestInitializeConfigurationOverwriteRequiresForce(t *testing.T) {
	workingDirectory := t.TempDir()
	existingPath := filepath.Join(workingDirectory, ".filebundler.yaml")
	require.NoError(t, os.WriteFile(existingPath, []byte("existing"), 0o600))

	_, initError := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory})
	require.True(t, errors.Is(initError, ErrConfigurationExists))
	content, readError := os.ReadFile(existingPath)
	require.NoError(t, readError)
	require.Equal(t, "existing", string(content))

	_, initError = InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Force: true})
	require.NoError(t, initError)
	content, readError = os.ReadFile(existingPath)
	require.NoError(t, readError)
	require.Contains(t, string(content), "format: xml")
}

func TestInitializeConfigurationRejectsUnknownTarget(t *testing.T) {
	_, initError := InitializeConfiguration(InitOptions{Target: "remote"})
	require.Error(t, initError)
}
