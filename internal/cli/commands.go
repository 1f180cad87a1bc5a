package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"ngscope/internal/config"
	"ngscope/internal/extract"
	"ngscope/internal/mcp"
	"ngscope/internal/report"
	"ngscope/internal/search"
	"ngscope/internal/usage"
	"ngscope/pkg/fileops"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mcp.NewServer(cfg, a.logger, a.version)
			defer a.stop(srv)
			return srv.Start(ctx)
		},
	}
}

type stopper interface {
	Stop() error
}

// stop shuts srv down; a failure is only logged since the command is exiting.
func (a *app) stop(srv stopper) {
	if err := srv.Stop(); err != nil {
		a.logger.Warn("Failed to stop MCP server", "error", err)
	}
}

func newSearchCommand(a *app) *cobra.Command {
	var (
		types []string
		dir   string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search project files for a literal, case-insensitive substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, root, err := a.openRoot()
			if err != nil {
				return err
			}
			engine := search.NewEngine(root, cfg.SearchLimit, a.logger)

			req := search.Request{Query: args[0], Directory: dir, FileTypes: types}
			res, err := engine.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			total, err := engine.CountSearchableFiles(cmd.Context(), dir, types)
			if err != nil {
				total = -1
			}
			return a.printer.Markdown(report.SearchResults(res, total))
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "file suffix to search, repeatable (e.g. --type .ts --type .html)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "subdirectory to search, relative to the project root")
	return cmd
}

func newReadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "Print a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, root, err := a.openRoot()
			if err != nil {
				return err
			}
			content, abs, err := root.ReadFile(args[0])
			if err != nil {
				return err
			}
			var meta map[string]any
			if filepath.Ext(abs) == ".md" {
				if meta, err = extract.Frontmatter(content); err != nil {
					a.logger.Debug("No valid frontmatter found", "file", args[0], "error", err)
				}
			}
			return a.printer.Markdown(report.FileContent(root.Relative(abs), content, meta))
		},
	}
}

func newUsageCommand(a *app) *cobra.Command {
	var (
		groupBy    string
		hideUnused bool
	)
	cmd := &cobra.Command{
		Use:   "usage [component]",
		Short: "Show where components are used",
		Long: `Discovers every component declared in a *.component.ts file, then scans
templates and scripts for its selector and class name. The optional argument
keeps only components whose name or selector contains it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if groupBy != report.GroupByCategory && groupBy != report.GroupByNone {
				return fmt.Errorf("--group-by must be %q or %q", report.GroupByCategory, report.GroupByNone)
			}
			cfg, root, err := a.openRoot()
			if err != nil {
				return err
			}

			var opts usage.Options
			if len(args) == 1 {
				opts.Component = args[0]
			}
			components, err := usage.NewBuilder(root, cfg.Categories, a.logger).Build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printer.Markdown(report.ComponentUsage(components, groupBy, !hideUnused))
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", report.GroupByCategory, "group components by \"category\" or \"none\"")
	cmd.Flags().BoolVar(&hideUnused, "hide-unused", false, "leave out components with no usages")
	return cmd
}

func newStructureCommand(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "structure <path>",
		Short: "Summarize imports, exports, methods and dependencies of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, root, err := a.openRoot()
			if err != nil {
				return err
			}
			content, abs, err := root.ReadFile(args[0])
			if err != nil {
				return err
			}

			k := extract.ResolveKind(kind, abs)
			summary := extract.ExtractKind(string(content), k)
			return a.printer.Markdown(report.Structure(root.Relative(abs), k, summary))
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "script, template or interface (guessed from the name by default; other kinds find nothing)")
	return cmd
}

func newComponentsCommand(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "components",
		Short: "List declared components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && !slices.Contains(usage.Categories, usage.Category(category)) {
				return fmt.Errorf("unknown category %q", category)
			}
			cfg, root, err := a.openRoot()
			if err != nil {
				return err
			}
			components, err := usage.NewBuilder(root, cfg.Categories, a.logger).Discover(cmd.Context())
			if err != nil {
				return err
			}
			if category != "" {
				components = usage.ByCategory(components)[usage.Category(category)]
			}
			return a.printer.Markdown(report.ComponentList(components, category))
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "ui, layout, feature or external")
	return cmd
}

func newServicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List injectable services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, root, err := a.openRoot()
			if err != nil {
				return err
			}
			services, err := usage.NewBuilder(root, cfg.Categories, a.logger).Services(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.Markdown(report.ServiceList(services))
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file for the project given by --root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.rootDir == "" {
				return errNoRoot
			}
			if a.configPath == "" {
				cfg, err := config.CreateNewConfig(a.rootDir)
				if err != nil {
					return err
				}
				path, _ := config.FindConfigFile()
				a.printer.Success(fmt.Sprintf("Wrote %s (project root %s)", path, cfg.ProjectRoot))
				return nil
			}

			cfg, err := config.NewProjectConfig(a.rootDir)
			if err != nil {
				return err
			}
			path := fileops.ExpandPath(a.configPath)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			a.printer.Success(fmt.Sprintf("Wrote %s (project root %s)", path, cfg.ProjectRoot))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return a.printer.Markdown("# Configuration\n\n```yaml\n" + string(data) + "```\n")
		},
	})
	return cmd
}
