package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	treeUse              = "tree"
	treeAlias            = "t"
	treeShortDescription = "display the project tree with selection markers (" + treeAlias + ")"
	treeLongDescription  = `Render the filtered project tree. Selected nodes are marked [x], directories
with some selected files [~] and unselected nodes [ ].`

	selectUse                 = "select <paths...>"
	selectShortDescription    = "select files or directories by relative path"
	deselectUse               = "deselect <paths...>"
	deselectShortDescription  = "deselect files or directories by relative path"
	toggleUse                 = "toggle <path>"
	toggleShortDescription    = "flip the selection of a file or directory"
	selectAllUse              = "select-all"
	selectAllShortDescription = "select every file of the tree"
	clearUse                  = "clear"
	clearShortDescription     = "deselect everything"
	selectedUse               = "selected"
	selectedShortDescription  = "list the selected files"

	// selectionUsageExample demonstrates the selection commands.
	selectionUsageExample = `  # Select a directory and one extra file
  filebundler select src README.md

  # Flip a single file
  filebundler toggle src/main.go`

	selectionSummaryFormat = "%d file(s) selected\n"
	toggledFormat          = "%s: %s\n"
	selectedLabel          = "selected"
	deselectedLabel        = "deselected"
)

// createTreeCommand returns the tree subcommand.
func createTreeCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			if printError := app.print(app.renderer.Tree(opened.Tree())); printError != nil {
				return printError
			}
			return app.print(fmt.Sprintf(selectionSummaryFormat, len(opened.SelectedFiles())))
		},
	}
}

func createSelectCommand(app *application) *cobra.Command {
	return createSetSelectionCommand(app, selectUse, selectShortDescription, true)
}

func createDeselectCommand(app *application) *cobra.Command {
	return createSetSelectionCommand(app, deselectUse, deselectShortDescription, false)
}

func createSetSelectionCommand(app *application, use string, short string, value bool) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Example: selectionUsageExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			if selectError := opened.Select(arguments, value); selectError != nil {
				return selectError
			}
			return app.print(fmt.Sprintf(selectionSummaryFormat, len(opened.SelectedFiles())))
		},
	}
}

// createToggleCommand returns the toggle subcommand.
func createToggleCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     toggleUse,
		Short:   toggleShortDescription,
		Example: selectionUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			selected, toggleError := opened.Toggle(arguments[0])
			if toggleError != nil {
				return toggleError
			}
			label := deselectedLabel
			if selected {
				label = selectedLabel
			}
			return app.print(fmt.Sprintf(toggledFormat, arguments[0], label))
		},
	}
}

// createSelectAllCommand returns the select-all subcommand.
func createSelectAllCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   selectAllUse,
		Short: selectAllShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			if selectError := opened.SelectAll(); selectError != nil {
				return selectError
			}
			return app.print(fmt.Sprintf(selectionSummaryFormat, len(opened.SelectedFiles())))
		},
	}
}

// createClearCommand returns the clear subcommand.
func createClearCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   clearUse,
		Short: clearShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			if clearError := opened.ClearAll(); clearError != nil {
				return clearError
			}
			return app.print(fmt.Sprintf(selectionSummaryFormat, 0))
		},
	}
}

// createSelectedCommand returns the selected subcommand.
func createSelectedCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   selectedUse,
		Short: selectedShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			return app.print(app.renderer.Selection(opened.SelectedFiles()))
		},
	}
}
