// Package cli defines the ngscope command tree.
//
// Every command except "serve" and "config init" loads the configuration,
// freezes the project root, runs one engine call and prints the same markdown
// the MCP tools return.
package cli

import (
	"errors"
	"fmt"
	"io"

	"ngscope/internal/config"
	"ngscope/internal/logging"
	"ngscope/internal/scope"
	"ngscope/internal/ui"
	"ngscope/pkg/fileops"

	"github.com/spf13/cobra"
)

// app carries global flag values and the state built from them.
type app struct {
	version    string
	configPath string
	rootDir    string
	verbose    bool
	plain      bool

	logger  *logging.AppLogger
	printer *ui.Printer
}

// NewRootCommand builds the command tree. Each call returns fresh commands so
// tests can run them in isolation.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	cmd := &cobra.Command{
		Use:   "ngscope",
		Short: "Explore an Angular project from the terminal or over MCP",
		Long: `ngscope indexes one Angular project and answers questions about it:
text search, file reading, structure extraction and component usage.

Run "ngscope serve" to expose the same operations to an AI assistant over the
Model Context Protocol on stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setup(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ngscope/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.rootDir, "root", "", "project root, overrides the configured one")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&a.plain, "plain", false, "print raw markdown without styling")

	cmd.AddCommand(
		newServeCommand(a),
		newSearchCommand(a),
		newReadCommand(a),
		newUsageCommand(a),
		newStructureCommand(a),
		newComponentsCommand(a),
		newServicesCommand(a),
		newConfigCommand(a),
	)
	return cmd
}

// Execute runs the command tree and reports a failure on stderr. It returns
// the process exit code.
func Execute(version string, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(version)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		ui.NewPrinter(stdout, stderr, true).Error(err)
		return 1
	}
	return 0
}

func (a *app) setup(stdout, stderr io.Writer) {
	if a.verbose {
		a.logger = logging.NewVerboseLogger()
	} else {
		a.logger = logging.NewAppLogger()
	}
	logging.SetDefault(a.logger)
	a.printer = ui.NewPrinter(stdout, stderr, a.plain)
}

// loadConfig reads the config file named by --config or the standard one and
// applies --root on top.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(fileops.ExpandPath(a.configPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if a.rootDir != "" {
		cfg.ProjectRoot = fileops.ExpandPath(a.rootDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a.logger.DebugObject("config", *cfg)
	return cfg, nil
}

// openRoot loads the configuration and freezes the project root.
func (a *app) openRoot() (*config.Config, *scope.Root, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	root, err := scope.FromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open project root: %w", err)
	}
	return cfg, root, nil
}

var errNoRoot = errors.New("--root is required")
