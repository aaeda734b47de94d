package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-bursaries/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries state shared by every command.
type app struct {
	cfg *config.Config

	configFile    string
	listingURL    string
	output        string
	format        string
	parallel      int
	delay         time.Duration
	freshOnly     bool
	noEmail       bool
	respectRobots bool
	verbose       bool
	metricsAddr   string

	// transport replaces the HTTP transport when set.
	transport http.RoundTripper
}

func newRootCmd(a *app) *cobra.Command {
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrapes the bursary listing, exports a spreadsheet and mails it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, level := newLogger(cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScrape(cmd.Context(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Optional YAML config file")
	pf.StringVar(&a.listingURL, "url", defaults.ListingURL, "Listing page to scrape")
	pf.BoolVar(&a.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	pf.BoolVarP(&a.verbose, "verbose", "v", defaults.Verbose, "Enable verbose logging")

	f := root.Flags()
	f.StringVar(&a.output, "output", defaults.OutputFile, "Output file path")
	f.StringVar(&a.format, "format", defaults.OutputFormat, "Output format: xlsx, csv, json, or dual")
	f.IntVar(&a.parallel, "parallel", defaults.Parallelism, "Number of concurrent detail fetches")
	f.DurationVar(&a.delay, "delay", defaults.Delay, "Courtesy delay before each detail fetch")
	f.BoolVar(&a.freshOnly, "fresh-only", defaults.FreshOnly, "Keep only pages updated within the freshness window")
	f.BoolVar(&a.noEmail, "no-email", false, "Skip mailing the report")
	f.StringVar(&a.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	root.AddCommand(newInspectCmd(a))
	return root
}

// loadConfig layers defaults, the optional config file, SCRAPER_* variables
// and finally the flags the user actually set.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if a.configFile != "" {
		if err := cfg.LoadFile(a.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.ListingURL = a.listingURL
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobotsTxt = a.respectRobots
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("output") {
		cfg.OutputFile = a.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(a.format)
	}
	if flags.Changed("parallel") {
		cfg.Parallelism = a.parallel
	}
	if flags.Changed("delay") {
		cfg.Delay = a.delay
	}
	if flags.Changed("fresh-only") {
		cfg.FreshOnly = a.freshOnly
	}
	if flags.Changed("no-email") && a.noEmail {
		cfg.SendEmail = false
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
