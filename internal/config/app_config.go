package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/filebundler/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds CLI defaults shared by every project.
type ApplicationConfiguration struct {
	Export ExportConfiguration `mapstructure:"export"`
	Tokens TokenConfiguration  `mapstructure:"tokens"`
	Paths  PathConfiguration   `mapstructure:"paths"`
}

// ExportConfiguration defines defaults for the export commands.
type ExportConfiguration struct {
	Format    string `mapstructure:"format"`
	Clipboard *bool  `mapstructure:"clipboard"`
	Workers   *int   `mapstructure:"workers"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// PathConfiguration adds exclusions on top of the project pattern file.
type PathConfiguration struct {
	Exclude      []string `mapstructure:"exclude"`
	UseGitignore *bool    `mapstructure:"use_gitignore"`
	IncludeGit   *bool    `mapstructure:"include_git"`
}

// LoadApplicationConfiguration loads configuration from the global file and
// then from the local or explicitly named file, later sources winning.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Paths.Exclude = utils.DeduplicatePatterns(merged.Paths.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Export = result.Export.merge(override.Export)
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config ExportConfiguration) merge(override ExportConfiguration) ExportConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.Workers != nil {
		result.Workers = cloneInt(override.Workers)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	return result
}

// BoolOrDefault dereferences value, returning fallback when it is unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// IntOrDefault dereferences value, returning fallback when it is unset.
func IntOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
