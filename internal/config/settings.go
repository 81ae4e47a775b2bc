package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	// DefaultMaxFiles caps the entries listed per directory.
	DefaultMaxFiles = 500
	// EnvironmentPrefix prefixes environment overrides such as FILEBUNDLER_MAX_FILES.
	EnvironmentPrefix = "FILEBUNDLER"

	settingsKeyMaxFiles            = "max_files"
	settingsKeySortFilesFirst      = "sort_files_first"
	settingsKeyUseGitignore        = "use_gitignore"
	settingsKeyAbsoluteProjectPath = "absolute_project_path"
	settingsKeyAutoRefresh         = "auto_bundle_settings.auto_refresh_project_structure"

	settingsFilePermissions = 0o644

	warningCorruptSettingsFormat = "project settings could not be parsed; defaults are used: %v"
)

// AutoBundleSettings groups options of the suggestion workflow.
type AutoBundleSettings struct {
	// AutoRefreshProjectStructure regenerates project-structure.md whenever the project is opened or refreshed.
	AutoRefreshProjectStructure bool `mapstructure:"auto_refresh_project_structure" json:"auto_refresh_project_structure"`
}

// ProjectSettings is the content of .filebundler/settings.json.
type ProjectSettings struct {
	MaxFiles            int                `mapstructure:"max_files" json:"max_files"`
	SortFilesFirst      bool               `mapstructure:"sort_files_first" json:"sort_files_first"`
	UseGitignore        bool               `mapstructure:"use_gitignore" json:"use_gitignore"`
	AbsoluteProjectPath string             `mapstructure:"absolute_project_path" json:"absolute_project_path,omitempty"`
	AutoBundleSettings  AutoBundleSettings `mapstructure:"auto_bundle_settings" json:"auto_bundle_settings"`
}

// DefaultProjectSettings returns the settings of a project without settings.json.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{MaxFiles: DefaultMaxFiles}
}

func newSettingsReader() *viper.Viper {
	reader := viper.New()
	reader.SetDefault(settingsKeyMaxFiles, DefaultMaxFiles)
	reader.SetDefault(settingsKeySortFilesFirst, false)
	reader.SetDefault(settingsKeyUseGitignore, false)
	reader.SetDefault(settingsKeyAbsoluteProjectPath, "")
	reader.SetDefault(settingsKeyAutoRefresh, false)
	reader.SetEnvPrefix(EnvironmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	reader.AutomaticEnv()
	return reader
}

// LoadProjectSettings reads settings.json from metadataDirectory with
// FILEBUNDLER_* environment overrides applied. A missing file yields defaults;
// an unparseable file yields defaults and a warning.
func LoadProjectSettings(metadataDirectory string) (ProjectSettings, []types.Warning, error) {
	settingsPath := filepath.Join(metadataDirectory, utils.SettingsFileName)
	reader := newSettingsReader()
	var warnings []types.Warning

	if _, statError := os.Stat(settingsPath); statError == nil {
		reader.SetConfigFile(settingsPath)
		reader.SetConfigType("json")
		if readError := reader.ReadInConfig(); readError != nil {
			warnings = append(warnings, types.NewWarning(types.WarningCorruptRecord, settingsPath, warningCorruptSettingsFormat, readError))
			reader = newSettingsReader()
		}
	} else if !os.IsNotExist(statError) {
		return ProjectSettings{}, nil, fmt.Errorf("stat project settings %s: %w", settingsPath, statError)
	}

	var settings ProjectSettings
	if decodeError := reader.Unmarshal(&settings); decodeError != nil {
		warnings = append(warnings, types.NewWarning(types.WarningCorruptRecord, settingsPath, warningCorruptSettingsFormat, decodeError))
		settings = DefaultProjectSettings()
	}
	return settings, warnings, nil
}

// SaveProjectSettings writes settings to settings.json atomically.
func SaveProjectSettings(metadataDirectory string, settings ProjectSettings) error {
	if mkdirError := os.MkdirAll(metadataDirectory, 0o755); mkdirError != nil {
		return fmt.Errorf("create metadata directory %s: %w", metadataDirectory, mkdirError)
	}
	settingsPath := filepath.Join(metadataDirectory, utils.SettingsFileName)
	encoded, encodeError := json.MarshalIndent(settings, "", "  ")
	if encodeError != nil {
		return fmt.Errorf("encode project settings: %w", encodeError)
	}
	encoded = append(encoded, '\n')
	if writeError := utils.WriteFileAtomic(settingsPath, encoded, settingsFilePermissions); writeError != nil {
		return fmt.Errorf("write project settings %s: %w", settingsPath, writeError)
	}
	return nil
}
