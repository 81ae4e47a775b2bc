package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/filebundler/internal/config"
	"github.com/temirov/filebundler/internal/project"
)

const (
	suggestUse              = "suggest <response-file>"
	suggestShortDescription = "select the files named by a file-suggestion response"
	suggestLongDescription  = `Read a file-suggestion response and replace the selection with the files it
names. The response is either a JSON object with "files.very_likely_useful" and
"files.probably_useful" path lists, optionally inside a markdown code fence, or
plain text with one relative path per line. Use "-" to read from stdin.`
	likelyOnlyFlagName        = "likely-only"
	likelyOnlyFlagDescription = "ignore the probably_useful paths"
	saveBundleFlagName        = "save-bundle"
	saveBundleFlagDescription = "also save the matched files as a bundle with this name"
	suggestionAppliedFormat   = "%d of %d suggested file(s) selected\n"
	suggestionMessageFormat   = "message: %s\n"

	migrateUse              = "migrate"
	migrateShortDescription = "rewrite stored project paths after the project was moved"
	migrateLongDescription  = `Replace references to the previous project root in the metadata files with the
current root and record the current root in the settings. Every rewritten file is
first copied to <file>.backup.`
	fromFlagName        = "from"
	fromFlagDescription = "previous project root (defaults to the stored project path)"
	migrateNoopMessage  = "no stored project path; nothing to migrate\n"
	migrateDoneFormat   = "migrated %s -> %s: %d file(s) updated\n"

	initUse               = "init"
	initShortDescription  = "write a default configuration file"
	globalFlagName        = "global"
	globalFlagDescription = "write the configuration into the home directory"
	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"
	initWrittenFormat     = "configuration written to %s\n"
)

// createSuggestCommand returns the suggest subcommand.
func createSuggestCommand(app *application) *cobra.Command {
	var likelyOnly bool
	var bundleName string
	suggestCommand := &cobra.Command{
		Use:   suggestUse,
		Short: suggestShortDescription,
		Long:  suggestLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			content, readError := readInput(command.InOrStdin(), arguments[0])
			if readError != nil {
				return readError
			}
			response, parseError := project.ParseSuggestionResponse(content)
			if parseError != nil {
				return parseError
			}
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			suggestedPaths := response.Paths(!likelyOnly)
			matched, warnings, applyError := opened.ApplySuggestions(suggestedPaths)
			if applyError != nil {
				return applyError
			}
			app.printWarnings(warnings)
			if bundleName != "" {
				savedBundle, bundleWarnings, saveError := opened.SaveBundle(bundleName, matched)
				if saveError != nil {
					return saveError
				}
				app.printWarnings(bundleWarnings)
				if printError := app.print(fmt.Sprintf(bundleSavedFormat, savedBundle.Name, len(savedBundle.FileItems))); printError != nil {
					return printError
				}
			}
			if response.Message != "" {
				if printError := app.print(fmt.Sprintf(suggestionMessageFormat, response.Message)); printError != nil {
					return printError
				}
			}
			return app.print(fmt.Sprintf(suggestionAppliedFormat, len(matched), len(suggestedPaths)))
		},
	}
	registerBooleanFlag(suggestCommand.Flags(), &likelyOnly, likelyOnlyFlagName, false, likelyOnlyFlagDescription)
	suggestCommand.Flags().StringVar(&bundleName, saveBundleFlagName, "", saveBundleFlagDescription)
	return suggestCommand
}

// createMigrateCommand returns the migrate subcommand.
func createMigrateCommand(app *application) *cobra.Command {
	var previousRoot string
	migrateCommand := &cobra.Command{
		Use:   migrateUse,
		Short: migrateShortDescription,
		Long:  migrateLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			result, warnings, migrateError := opened.Migrate(previousRoot)
			if migrateError != nil {
				return migrateError
			}
			app.printWarnings(warnings)
			if result.OldRoot == "" {
				return app.print(migrateNoopMessage)
			}
			return app.print(fmt.Sprintf(migrateDoneFormat, result.OldRoot, result.NewRoot, result.Rewrite.FilesUpdated))
		},
	}
	migrateCommand.Flags().StringVar(&previousRoot, fromFlagName, "", fromFlagDescription)
	return migrateCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.options.projectPath,
			})
			if initError != nil {
				return initError
			}
			return app.print(fmt.Sprintf(initWrittenFormat, destinationPath))
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
