// Package cli provides the filebundler command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/config"
	"github.com/temirov/filebundler/internal/output"
	"github.com/temirov/filebundler/internal/project"
	"github.com/temirov/filebundler/internal/services/clipboard"
	"github.com/temirov/filebundler/internal/tokenizer"
	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

const (
	projectFlagName        = "project"
	projectFlagShorthand   = "p"
	configFlagName         = "config"
	verboseFlagName        = "verbose"
	versionFlagName        = "version"
	projectFlagDescription = "project root directory"
	configFlagDescription  = "path to a configuration file (defaults to ./" + utils.LocalConfigFileName + ")"
	verboseFlagDescription = "enable debug logging"
	versionFlagDescription = "display application version"
	versionTemplate        = "filebundler version: %s\n"
	defaultProjectPath     = "."

	rootUse              = "filebundler"
	rootShortDescription = "select project files and bundle them for LLM prompts"
	rootLongDescription  = `filebundler keeps a filtered tree of a project, a persistent selection of
its files and named bundles of files. Selections and bundles are stored in the
` + utils.MetadataDirectoryName + ` directory of the project and survive between sessions.
Files are included by the patterns in ` + utils.MetadataDirectoryName + `/` + utils.PatternFileName + `; "!" patterns exclude.`

	errorLoggerFormat        = "initialize logger: %w"
	errorConfigurationFormat = "load configuration: %w"
	errorFormatMessage       = "invalid format value '%s'; expected xml, raw or markdown"
	warningTokenizerFormat   = "tokenizer unavailable, estimating tokens: %v"
)

// commandDependencies are the collaborators of the commands. Execute wires the
// process streams and the system clipboard; tests substitute their own.
type commandDependencies struct {
	Writer      io.Writer
	ErrorWriter io.Writer
	Clipboard   clipboard.Copier
	// Counter replaces the configured tokenizer when set.
	Counter tokenizer.Counter
	Styled  bool
}

type rootOptions struct {
	projectPath string
	configPath  string
	verbose     bool
	showVersion bool
}

// application is the state shared by the commands of one invocation.
type application struct {
	dependencies  commandDependencies
	options       rootOptions
	configuration config.ApplicationConfiguration
	logger        *zap.Logger
	renderer      output.Renderer
}

// Execute runs the filebundler application.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCommand := createRootCommand(commandDependencies{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Clipboard:   clipboard.NewService(),
		Styled:      true,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies commandDependencies) *cobra.Command {
	app := &application{
		dependencies: dependencies,
		logger:       zap.NewNop(),
		renderer:     output.NewRenderer(dependencies.Styled),
	}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if app.options.showVersion {
				fmt.Fprintf(app.dependencies.Writer, versionTemplate, utils.ApplicationVersion())
				os.Exit(0)
			}
			return app.initialize()
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			_ = app.logger.Sync()
		},
	}
	rootCommand.SetOut(dependencies.Writer)
	rootCommand.SetErr(dependencies.ErrorWriter)

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVarP(&app.options.projectPath, projectFlagName, projectFlagShorthand, defaultProjectPath, projectFlagDescription)
	persistentFlags.StringVar(&app.options.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(persistentFlags, &app.options.verbose, verboseFlagName, false, verboseFlagDescription)
	registerBooleanFlag(persistentFlags, &app.options.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(
		createTreeCommand(app),
		createSelectCommand(app),
		createDeselectCommand(app),
		createToggleCommand(app),
		createSelectAllCommand(app),
		createClearCommand(app),
		createSelectedCommand(app),
		createBundleCommand(app),
		createExportCommand(app),
		createSuggestCommand(app),
		createStructureCommand(app),
		createRankingCommand(app),
		createMigrateCommand(app),
		createUnbundleCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func (app *application) initialize() error {
	logger, loggerError := utils.NewApplicationLogger(app.options.verbose)
	if loggerError != nil {
		return fmt.Errorf(errorLoggerFormat, loggerError)
	}
	app.logger = logger
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: app.options.projectPath,
		ExplicitFilePath: app.options.configPath,
	})
	if configurationError != nil {
		return fmt.Errorf(errorConfigurationFormat, configurationError)
	}
	app.configuration = configuration
	return nil
}

// openProject opens the project named by --project and prints its load warnings.
func (app *application) openProject(withCounter bool) (*project.Project, error) {
	options := project.Options{
		Root:          app.options.projectPath,
		Exclusions:    app.configuration.Paths.Exclude,
		UseGitignore:  app.configuration.Paths.UseGitignore,
		IncludeGit:    config.BoolOrDefault(app.configuration.Paths.IncludeGit, false),
		ExportWorkers: config.IntOrDefault(app.configuration.Export.Workers, 0),
		Logger:        app.logger,
	}
	if withCounter {
		options.Counter = app.tokenCounter()
	}
	opened, warnings, openError := project.Open(options)
	if openError != nil {
		return nil, openError
	}
	app.printWarnings(warnings)
	return opened, nil
}

// tokenCounter resolves the configured tokenizer. When token counting is
// disabled it returns nil; when the encoding cannot be loaded it estimates.
func (app *application) tokenCounter() tokenizer.Counter {
	if app.dependencies.Counter != nil {
		return app.dependencies.Counter
	}
	if !config.BoolOrDefault(app.configuration.Tokens.Enabled, true) {
		return nil
	}
	counter, model, counterError := tokenizer.NewCounter(tokenizer.Config{Model: app.configuration.Tokens.Model})
	if counterError != nil {
		app.logger.Warn(fmt.Sprintf(warningTokenizerFormat, counterError))
		return tokenizer.EstimateCounter{}
	}
	app.logger.Debug("tokenizer ready", zap.String("model", model))
	return counter
}

// exportFormat validates the requested format, falling back to the configured one.
func (app *application) exportFormat(requested string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(requested))
	if format == "" {
		format = strings.ToLower(strings.TrimSpace(app.configuration.Export.Format))
	}
	if format == "" {
		format = types.FormatXML
	}
	switch format {
	case types.FormatXML, types.FormatRaw, types.FormatMarkdown:
		return format, nil
	default:
		return "", fmt.Errorf(errorFormatMessage, format)
	}
}

func (app *application) printWarnings(warnings []types.Warning) {
	app.renderer.Warnings(app.dependencies.ErrorWriter, warnings)
}

func (app *application) print(text string) error {
	if _, writeError := io.WriteString(app.dependencies.Writer, text); writeError != nil {
		return writeError
	}
	return nil
}
