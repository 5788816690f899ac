// Package main provides the docgraph CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"docgraph/internal/config"
	"docgraph/internal/logging"
	"docgraph/internal/pipeline"
	"docgraph/internal/scan"
)

// Version is the current docgraph version.
var Version = "0.4.0"

var (
	configPath    string
	workers       int
	noAutoImports bool
	cacheEnabled  bool
	cacheDir      string
	clearCache    bool
	checkOnly     bool
	logLevel      string
	logFormat     string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "docgraph [flags] <dir> [dir...] <output.json>",
	Short: "Build a documentation graph from annotated files",
	Long: `docgraph walks the given directories for files annotated with @name,
@imports, @forks, @uses and @notes tags, links them into a graph, colors
each connected group and writes a JSON document for the graph viewer.

The last argument is the output path unless --check is given. An output
path ending in .zst is written zstd-compressed.`,
	Version:       Version,
	Args:          validateArgs,
	RunE:          runGenerate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to config file (default: ./"+config.DefaultFile+" if present)")
	flags.IntVarP(&workers, "workers", "j", 0, "Number of files parsed in parallel (default: number of CPUs)")
	flags.BoolVar(&noAutoImports, "no-auto-imports", false, "Drop AUTO import markers without reading source files")
	flags.BoolVar(&cacheEnabled, "cache", false, "Reuse parse results from earlier runs")
	flags.StringVar(&cacheDir, "cache-dir", "", "Directory for the parse cache (implies --cache)")
	flags.BoolVar(&clearCache, "clear-cache", false, "Empty the parse cache before scanning")
	flags.BoolVar(&checkOnly, "check", false, "Validate only: every argument is a directory, nothing is written, dangling edges fail")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log every file (same as --log-level debug)")
}

// validateArgs requires a directory and an output path, or only
// directories in check mode.
func validateArgs(cmd *cobra.Command, args []string) error {
	check, _ := cmd.Flags().GetBool("check")
	var err error
	switch {
	case check && len(args) < 1:
		err = fmt.Errorf("requires at least one directory, received %d argument(s)", len(args))
	case !check && len(args) < 2:
		err = fmt.Errorf("requires at least one directory and an output path, received %d argument(s)", len(args))
	}
	if err != nil {
		cmd.Usage()
	}
	return err
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())

	req := pipeline.Request{Check: checkOnly, ClearCache: clearCache}
	if checkOnly {
		req.Dirs = args
	} else {
		req.Dirs = args[:len(args)-1]
		req.Output = args[len(args)-1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sum, err := pipeline.Run(ctx, cfg, req, logger)
	if errors.Is(err, scan.ErrNoAnnotatedFiles) && sum != nil {
		return fmt.Errorf("%w in %d file(s); not writing output", err, sum.Files)
	}
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), sum)
	return nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultFile)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if noAutoImports {
		cfg.AutoImports = false
	}
	if cacheEnabled || flags.Changed("cache-dir") {
		cfg.Cache.Enabled = true
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = cacheDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(w io.Writer, sum *pipeline.Summary) {
	fmt.Fprintf(w, "Extracted %d nodes with %d edges from %d files\n", sum.Nodes, sum.Edges, sum.Files)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
