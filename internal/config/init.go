package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/filebundler/internal/utils"
)

// InitTarget names the configuration file written by InitializeConfiguration.
type InitTarget string

const (
	// InitTargetLocal writes .filebundler.yaml into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes ~/.filebundler/config.yaml.
	InitTargetGlobal InitTarget = "global"

	configurationFilePermissions      = 0o600
	configurationDirectoryPermissions = 0o755

	starterConfiguration = `# filebundler defaults. Command-line flags override every value here.
export:
  # xml, raw or markdown
  format: xml
  clipboard: false
  workers: 8
tokens:
  enabled: true
  model: gpt-4o
paths:
  # extra exclusions appended to .filebundler/.include
  exclude: []
  use_gitignore: false
  include_git: false
`
)

// ErrConfigurationExists is returned when the target file exists and Force is unset.
var ErrConfigurationExists = errors.New("configuration file already exists")

// InitOptions selects the configuration file to write.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the starter configuration and returns its path.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, resolveError := initDestination(options)
	if resolveError != nil {
		return "", resolveError
	}

	_, statError := os.Stat(destinationPath)
	switch {
	case statError == nil && !options.Force:
		return "", fmt.Errorf("%w: %s", ErrConfigurationExists, destinationPath)
	case statError != nil && !errors.Is(statError, fs.ErrNotExist):
		return "", fmt.Errorf("inspect %s: %w", destinationPath, statError)
	}

	if mkdirError := os.MkdirAll(filepath.Dir(destinationPath), configurationDirectoryPermissions); mkdirError != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(destinationPath), mkdirError)
	}
	if writeError := utils.WriteFileAtomic(destinationPath, []byte(starterConfiguration), configurationFilePermissions); writeError != nil {
		return "", writeError
	}
	return destinationPath, nil
}

func initDestination(options InitOptions) (string, error) {
	switch options.Target {
	case "", InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			currentDirectory, workingDirectoryError := os.Getwd()
			if workingDirectoryError != nil {
				return "", fmt.Errorf("determine working directory: %w", workingDirectoryError)
			}
			workingDirectory = currentDirectory
		}
		return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return "", fmt.Errorf("resolve home directory: %w", homeError)
		}
		return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
