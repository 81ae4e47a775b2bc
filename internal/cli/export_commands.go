package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/config"
	"github.com/temirov/filebundler/internal/export"
	"github.com/temirov/filebundler/internal/tree"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	formatFlagName           = "format"
	formatFlagShorthand      = "f"
	formatFlagDescription    = "output format: xml, raw or markdown (defaults to the configured format)"
	clipboardFlagName        = "clipboard"
	clipboardFlagDescription = "copy the output to the system clipboard"
	outputFlagName           = "output"
	outputFlagShorthand      = "o"
	outputFlagDescription    = "write the output to a file instead of stdout"

	exportUse              = "export [paths...]"
	exportAlias            = "x"
	exportShortDescription = "export the selected files, or the given paths, for an LLM prompt (" + exportAlias + ")"
	exportLongDescription  = `Concatenate the contents of the selected files into one document.
The xml format wraps each file in a <document> element with its source path; raw
separates files with "----- ./path -----" markers; markdown uses fenced blocks.
Binary and unreadable files are skipped with a warning.`

	// exportUsageExample demonstrates export command usage.
	exportUsageExample = `  # Export the selection as XML to the clipboard
  filebundler export --clipboard

  # Export a directory in raw format to a file
  filebundler export internal --format raw --output context.txt`

	unbundleUse              = "unbundle <file>"
	unbundleShortDescription = "write the files of an exported XML document to disk"
	unbundleLongDescription  = `Parse a document produced by "export --format xml" and write each file below
the target directory. Use "-" to read from stdin. Paths escaping the target are skipped.`
	targetFlagName        = "target"
	targetFlagDescription = "directory to write the files into"
	defaultUnbundleTarget = "."
	standardInputArgument = "-"

	structureUse              = "structure"
	structureShortDescription = "print the project structure as markdown"
	writeFlagName             = "write"
	writeFlagDescription      = "also store the document as " + utils.MetadataDirectoryName + "/" + utils.ProjectStructureFileName

	rankingUse              = "ranking"
	rankingShortDescription = "list the files and directories with the most tokens"
	limitFlagName           = "limit"
	limitFlagDescription    = "number of entries per list; 0 lists everything"
	defaultRankingLimit     = 10

	clipboardServiceMissingMessage = "clipboard service is not configured"
	clipboardCopyErrorFormat       = "copy output to clipboard: %w"
	writeOutputErrorFormat         = "write output %s: %w"
	readInputErrorFormat           = "read %s: %w"
	outputWrittenFormat            = "wrote %s\n"
	clipboardCopiedMessage         = "copied to clipboard"
	unbundledFormat                = "wrote %d file(s) to %s\n"
	structureWrittenFormat         = "wrote %s\n"
)

// deliveryOptions says where rendered output goes.
type deliveryOptions struct {
	format     string
	clipboard  bool
	outputPath string
}

func addDeliveryFlags(command *cobra.Command, options *deliveryOptions) {
	command.Flags().StringVarP(&options.format, formatFlagName, formatFlagShorthand, "", formatFlagDescription)
	command.Flags().StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	registerBooleanFlag(command.Flags(), &options.clipboard, clipboardFlagName, false, clipboardFlagDescription)
}

// deliver writes rendered to the output file or stdout and, when requested or
// configured, to the clipboard.
func (app *application) deliver(command *cobra.Command, rendered string, options deliveryOptions) error {
	copyRequested := options.clipboard
	if !command.Flags().Changed(clipboardFlagName) {
		copyRequested = config.BoolOrDefault(app.configuration.Export.Clipboard, false)
	}
	if copyRequested {
		if app.dependencies.Clipboard == nil {
			return errors.New(clipboardServiceMissingMessage)
		}
		if copyError := app.dependencies.Clipboard.Copy(rendered); copyError != nil {
			return fmt.Errorf(clipboardCopyErrorFormat, copyError)
		}
		app.logger.Info(clipboardCopiedMessage)
	}

	if options.outputPath != "" {
		if writeError := utils.WriteFileAtomic(options.outputPath, []byte(rendered), 0o644); writeError != nil {
			return fmt.Errorf(writeOutputErrorFormat, options.outputPath, writeError)
		}
		fmt.Fprintf(app.dependencies.ErrorWriter, outputWrittenFormat, options.outputPath)
		return nil
	}
	if copyRequested {
		return nil
	}
	if printError := app.print(rendered); printError != nil {
		return printError
	}
	if !strings.HasSuffix(rendered, "\n") {
		return app.print("\n")
	}
	return nil
}

// createExportCommand returns the export subcommand.
func createExportCommand(app *application) *cobra.Command {
	var delivery deliveryOptions
	exportCommand := &cobra.Command{
		Use:     exportUse,
		Aliases: []string{exportAlias},
		Short:   exportShortDescription,
		Long:    exportLongDescription,
		Example: exportUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			format, formatError := app.exportFormat(delivery.format)
			if formatError != nil {
				return formatError
			}
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			nodes := opened.SelectedFiles()
			if len(arguments) > 0 {
				nodes = make([]*tree.Node, 0, len(arguments))
				for _, relativePath := range arguments {
					node, lookupError := opened.Lookup(relativePath)
					if lookupError != nil {
						return lookupError
					}
					nodes = append(nodes, node)
				}
			}
			files, warnings, readError := opened.ExportFiles(command.Context(), nodes)
			if readError != nil {
				return readError
			}
			app.printWarnings(warnings)
			rendered, renderError := export.Render(format, files)
			if renderError != nil {
				return renderError
			}
			return app.deliver(command, rendered, delivery)
		},
	}
	addDeliveryFlags(exportCommand, &delivery)
	return exportCommand
}

// createUnbundleCommand returns the unbundle subcommand.
func createUnbundleCommand(app *application) *cobra.Command {
	targetDirectory := defaultUnbundleTarget
	unbundleCommand := &cobra.Command{
		Use:   unbundleUse,
		Short: unbundleShortDescription,
		Long:  unbundleLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			content, readError := readInput(command.InOrStdin(), arguments[0])
			if readError != nil {
				return readError
			}
			files, parseWarnings, parseError := export.ParseXML(content)
			if parseError != nil {
				return parseError
			}
			app.printWarnings(parseWarnings)
			written, writeWarnings, writeError := export.WriteFiles(targetDirectory, files)
			if writeError != nil {
				return writeError
			}
			app.printWarnings(writeWarnings)
			for _, writtenPath := range written {
				app.logger.Debug("file unbundled", zap.String("path", writtenPath))
			}
			return app.print(fmt.Sprintf(unbundledFormat, len(written), targetDirectory))
		},
	}
	unbundleCommand.Flags().StringVar(&targetDirectory, targetFlagName, defaultUnbundleTarget, targetFlagDescription)
	return unbundleCommand
}

func readInput(standardInput io.Reader, source string) ([]byte, error) {
	if source == standardInputArgument {
		content, readError := io.ReadAll(standardInput)
		if readError != nil {
			return nil, fmt.Errorf(readInputErrorFormat, "stdin", readError)
		}
		return content, nil
	}
	content, readError := os.ReadFile(filepath.Clean(source))
	if readError != nil {
		return nil, fmt.Errorf(readInputErrorFormat, source, readError)
	}
	return content, nil
}

// createStructureCommand returns the structure subcommand.
func createStructureCommand(app *application) *cobra.Command {
	var writeDocument bool
	structureCommand := &cobra.Command{
		Use:   structureUse,
		Short: structureShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(false)
			if openError != nil {
				return openError
			}
			if writeDocument {
				structurePath, writeError := opened.WriteProjectStructure()
				if writeError != nil {
					return writeError
				}
				fmt.Fprintf(app.dependencies.ErrorWriter, structureWrittenFormat, structurePath)
			}
			return app.print(opened.ProjectStructure())
		},
	}
	registerBooleanFlag(structureCommand.Flags(), &writeDocument, writeFlagName, false, writeFlagDescription)
	return structureCommand
}

// createRankingCommand returns the ranking subcommand.
func createRankingCommand(app *application) *cobra.Command {
	limit := defaultRankingLimit
	rankingCommand := &cobra.Command{
		Use:   rankingUse,
		Short: rankingShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			opened, openError := app.openProject(true)
			if openError != nil {
				return openError
			}
			return app.print(app.renderer.Ranking(opened.Ranking(limit)))
		},
	}
	rankingCommand.Flags().IntVar(&limit, limitFlagName, defaultRankingLimit, limitFlagDescription)
	return rankingCommand
}
