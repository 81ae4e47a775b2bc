package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/filebundler/internal/tree"
)

const (
	bundleUse              = "bundle"
	bundleAlias            = "b"
	bundleShortDescription = "manage named bundles of files (" + bundleAlias + ")"
	bundleLongDescription  = `Bundles are named lists of project files stored in ` + "`.filebundler/bundles.json`" + `.
Names are lowercase letters, digits and hyphens. Members whose file disappears
are dropped the next time the bundles are loaded.`

	// bundleUsageExample demonstrates bundle command usage.
	bundleUsageExample = `  # Save the current selection as a bundle
  filebundler bundle save api-handlers

  # Save specific paths and export the bundle to the clipboard
  filebundler bundle save docs README.md docs
  filebundler bundle export docs --clipboard`

	bundleSaveUse              = "save <name> [paths...]"
	bundleSaveShortDescription = "save the selection, or the given paths, as a bundle"
	bundleListUse              = "list"
	bundleListShortDescription = "list bundles with size, tokens and staleness"
	bundleShowUse              = "show <name>"
	bundleShowShortDescription = "show the details and members of a bundle"
	bundleDeleteUse            = "delete <name>"
	bundleDeleteShortDesc      = "delete a bundle"
	bundleRenameUse            = "rename <old> <new>"
	bundleRenameShortDesc      = "rename a bundle, replacing any bundle with the new name"
	bundleLoadUse              = "load <name>"
	bundleLoadShortDescription = "replace the selection with the members of a bundle"
	bundleExportUse            = "export <name>"
	bundleExportShortDesc      = "export the members of a bundle and mark it exported"

	bundleSavedFormat   = "saved bundle %q with %d file(s)\n"
	bundleDeletedFormat = "deleted bundle %q\n"
	bundleRenamedFormat = "renamed bundle %q to %q\n"
	bundleLoadedFormat  = "loaded bundle %q: %d file(s) selected\n"
)

// createBundleCommand returns the bundle command group.
func createBundleCommand(app *application) *cobra.Command {
	bundleCommand := &cobra.Command{
		Use:     bundleUse,
		Aliases: []string{bundleAlias},
		Short:   bundleShortDescription,
		Long:    bundleLongDescription,
		Example: bundleUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	bundleCommand.AddCommand(
		createBundleSaveCommand(app),
		createBundleListCommand(app),
		createBundleShowCommand(app),
		createBundleDeleteCommand(app),
		createBundleRenameCommand(app),
		createBundleLoadCommand(app),
		createBundleExportCommand(app),
	)
	return bundleCommand
}

func createBundleSaveCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleSaveUse,
		Short: bundleSaveShortDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			var nodes []*tree.Node
			for _, relativePath := range arguments[1:] {
				node, lookupError := opened.Lookup(relativePath)
				if lookupError != nil {
					return lookupError
				}
				nodes = append(nodes, node)
			}
			savedBundle, warnings, saveError := opened.SaveBundle(arguments[0], nodes)
			if saveError != nil {
				return saveError
			}
			app.printWarnings(warnings)
			return app.print(fmt.Sprintf(bundleSavedFormat, savedBundle.Name, len(savedBundle.FileItems)))
		},
	}
}

func createBundleListCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleListUse,
		Short: bundleListShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(true)
			if openError != nil {
				return openError
			}
			return app.print(app.renderer.BundleList(opened.BundleReports()))
		},
	}
}

func createBundleShowCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleShowUse,
		Short: bundleShowShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(true)
			if openError != nil {
				return openError
			}
			report, reportError := opened.BundleReport(arguments[0])
			if reportError != nil {
				return reportError
			}
			return app.print(app.renderer.BundleReport(report))
		},
	}
}

func createBundleDeleteCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleDeleteUse,
		Short: bundleDeleteShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			warnings, deleteError := opened.DeleteBundle(arguments[0])
			if deleteError != nil {
				return deleteError
			}
			app.printWarnings(warnings)
			return app.print(fmt.Sprintf(bundleDeletedFormat, arguments[0]))
		},
	}
}

func createBundleRenameCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleRenameUse,
		Short: bundleRenameShortDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			warnings, renameError := opened.RenameBundle(arguments[0], arguments[1])
			if renameError != nil {
				return renameError
			}
			app.printWarnings(warnings)
			return app.print(fmt.Sprintf(bundleRenamedFormat, arguments[0], arguments[1]))
		},
	}
}

func createBundleLoadCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   bundleLoadUse,
		Short: bundleLoadShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			warnings, loadError := opened.LoadBundle(arguments[0])
			if loadError != nil {
				return loadError
			}
			app.printWarnings(warnings)
			return app.print(fmt.Sprintf(bundleLoadedFormat, arguments[0], len(opened.SelectedFiles())))
		},
	}
}

func createBundleExportCommand(app *application) *cobra.Command {
	var delivery deliveryOptions
	exportCommand := &cobra.Command{
		Use:   bundleExportUse,
		Short: bundleExportShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			format, formatError := app.exportFormat(delivery.format)
			if formatError != nil {
				return formatError
			}
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			rendered, warnings, exportError := opened.ExportBundle(command.Context(), arguments[0], format)
			if exportError != nil {
				return exportError
			}
			app.printWarnings(warnings)
			return app.deliver(command, rendered, delivery)
		},
	}
	addDeliveryFlags(exportCommand, &delivery)
	return exportCommand
}
