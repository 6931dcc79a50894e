// Package cmd defines the CLI commands for the site-insight executable.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/config"
	"github.com/JakeFAU/site-insight/internal/server"
)

// Analyzer is the orchestrator surface used by the analyze command.
type Analyzer interface {
	Analyze(
		ctx context.Context,
		url string,
		kind analysis.Kind,
		flags analysis.AgentFlags,
		useCache bool,
	) (*analysis.Record, error)
}

// PageScraper is the scraper surface used by the scrape command.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*analysis.PageData, error)
}

// Factories are variables so tests can replace the wired application.
var (
	runServer = func(ctx context.Context, cfg *config.Config) error {
		app, err := server.Build(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application services: %w", err)
		}
		return app.Run(ctx)
	}

	newAnalyzer = func(ctx context.Context, cfg *config.Config) (Analyzer, func(), error) {
		app, err := server.Build(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize application services: %w", err)
		}
		return app.Orchestrator(), func() { _ = app.Close(ctx) }, nil
	}

	newScraper = func(cfg *config.Config) (PageScraper, func(), error) {
		app, err := server.BuildScraper(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize scraper: %w", err)
		}
		return app.Scraper(), func() { _ = app.Close(context.Background()) }, nil
	}
)

type rootOptions struct {
	configFile string
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "site-insight",
		Short: "Scrape websites and analyze them with LLM agents.",
		Long: `site-insight scrapes a web page and runs a pipeline of LLM agents over it:
a classifier, a summarizer, a UX reviewer and, for landing pages, a design advisor.
It runs as an HTTP service or as a one-shot command.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (YAML); SITEINSIGHT_* environment variables override it")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newScrapeCmd(opts))
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
