package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pagesift/internal/config"
	"pagesift/internal/extract"
	"pagesift/internal/fetcher"
	"pagesift/internal/paginate"
	"pagesift/internal/pipeline"
	"pagesift/internal/sink"
)

var (
	cfgFile     string
	verbose     bool
	outputPath  string
	sinkType    string
	fetcherType string
	strategy    string
	maxPages    int
	placeholder string
	marker      string
	nextSel     string
	waitTimeout string
	headless    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pagesift",
		Short: "pagesift — incremental paginated extraction pipeline",
		Long: `pagesift walks a paginated site page by page, extracts a fixed
schema of fields from repeated containers, and appends each record to
the output as it is produced. Partial results survive a failed run.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [base-url]",
		Short: "Run the extraction pipeline",
		Long: `Run the pipeline against a base address. For templated pagination the
address must contain the page placeholder (default "{page}"); for
interactive pagination it is the starting page.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPipeline,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (csv sink)")
	cmd.Flags().StringVar(&sinkType, "sink", "", "sink backend: csv, mongo")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http, browser")
	cmd.Flags().StringVar(&strategy, "strategy", "", "pagination strategy: templated, interactive")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "n", 0, "maximum number of pages to visit")
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "page index placeholder token")
	cmd.Flags().StringVar(&marker, "marker", "", "marker element locator (browser fetcher)")
	cmd.Flags().StringVar(&nextSel, "next", "", "next affordance locator (interactive pagination)")
	cmd.Flags().StringVar(&waitTimeout, "wait-timeout", "", "bounded wait for the marker element, e.g. 20s")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")

	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyCLIOverrides(cfg, args)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting run",
		"base_url", cfg.Paginate.BaseURL,
		"strategy", cfg.Paginate.Strategy,
		"fetcher", cfg.Fetcher.Type,
		"max_pages", cfg.Paginate.MaxPages,
		"sink", cfg.Sink.Type,
	)

	extractor, err := extract.New(&cfg.Extract, logger)
	if err != nil {
		return fmt.Errorf("build extractor: %w", err)
	}

	var (
		ftch fetcher.Fetcher
		pag  pipeline.Paginator
	)
	switch cfg.Fetcher.Type {
	case "browser":
		bf, err := fetcher.NewBrowserFetcher(cfg, logger)
		if err != nil {
			return fmt.Errorf("create browser fetcher: %w", err)
		}
		ftch = bf
		if cfg.Paginate.Strategy == "interactive" {
			pag = paginate.NewInteractive(cfg, bf, logger)
		}
	default:
		hf, err := fetcher.NewHTTPFetcher(cfg, logger)
		if err != nil {
			return fmt.Errorf("create fetcher: %w", err)
		}
		ftch = hf
	}
	if pag == nil {
		pag = paginate.NewTemplated(&cfg.Paginate, logger)
	}

	snk, err := sink.New(&cfg.Sink, logger)
	if err != nil {
		// The fetcher may already own a browser session.
		_ = ftch.Close()
		return fmt.Errorf("create sink: %w", err)
	}

	driver := pipeline.New(ftch, extractor, pag, snk, logger)

	// Cancellation is checked at iteration boundaries and still runs
	// the guaranteed-cleanup path.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := driver.Run(ctx)

	fmt.Printf("\nRun %s in %s\n", res.State, res.Elapsed.Round(time.Millisecond))
	fmt.Printf("   Pages:   %d visited\n", res.PagesVisited)
	fmt.Printf("   Records: %d written\n", res.RecordsWritten)
	if cfg.Sink.Type == "csv" {
		fmt.Printf("   Output:  %s\n", cfg.Sink.Path)
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Type:             %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:  %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Body Size:    %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:      %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:         %v\n", cfg.Browser.Headless)
			fmt.Printf("  Viewport:         %dx%d\n", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
			fmt.Printf("  Suppress Signal:  %v\n", cfg.Browser.SuppressAutomation)
			fmt.Printf("  Wait Timeout:     %s\n", cfg.Browser.WaitTimeout)
			fmt.Printf("  Marker:           %s (%s)\n", cfg.Browser.Marker, cfg.Browser.MarkerType)
			fmt.Printf("\nExtract:\n")
			fmt.Printf("  Container:        %s (%s)\n", cfg.Extract.Container, cfg.Extract.ContainerType)
			fmt.Printf("  Fields:           %d declared\n", len(cfg.Extract.Fields))
			fmt.Printf("\nPaginate:\n")
			fmt.Printf("  Strategy:         %s\n", cfg.Paginate.Strategy)
			fmt.Printf("  Max Pages:        %d\n", cfg.Paginate.MaxPages)
			fmt.Printf("  Placeholder:      %s\n", cfg.Paginate.Placeholder)
			fmt.Printf("\nSink:\n")
			fmt.Printf("  Type:             %s\n", cfg.Sink.Type)
			fmt.Printf("  Path:             %s\n", cfg.Sink.Path)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pagesift %s\n", config.Version)
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Paginate.BaseURL = args[0]
	}
	if outputPath != "" {
		cfg.Sink.Path = outputPath
	}
	if sinkType != "" {
		cfg.Sink.Type = sinkType
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
	if strategy != "" {
		cfg.Paginate.Strategy = strategy
	}
	if maxPages > 0 {
		cfg.Paginate.MaxPages = maxPages
	}
	if placeholder != "" {
		cfg.Paginate.Placeholder = placeholder
	}
	if marker != "" {
		cfg.Browser.Marker = marker
	}
	if nextSel != "" {
		cfg.Paginate.NextSelector = nextSel
	}
	if waitTimeout != "" {
		if d, err := time.ParseDuration(waitTimeout); err == nil {
			cfg.Browser.WaitTimeout = d
		}
	}
	cfg.Browser.Headless = headless
	if verbose {
		cfg.Logging.Level = "debug"
	}
}
