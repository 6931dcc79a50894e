package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/api"
)

type analyzeOptions struct {
	quick   bool
	agents  string
	noCache bool
	format  string
}

// newAnalyzeCmd runs one analysis and prints the formatted record.
func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a single URL and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, flags, err := opts.selection()
			if err != nil {
				return err
			}
			format, err := api.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			analyzer, closeFn, err := newAnalyzer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := analyzer.Analyze(cmd.Context(), args[0], kind, flags, !opts.noCache)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), api.FormatRecord(rec, format))
		},
	}
	cmd.Flags().BoolVar(&opts.quick, "quick", false, "run only classification and summary")
	cmd.Flags().StringVar(&opts.agents, "agents", "",
		"comma-separated agents for a custom run: "+strings.Join(analysis.AgentOrder, ","))
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the result cache")
	cmd.Flags().StringVar(&opts.format, "format", api.FormatJSON,
		"output format: json, summary or detailed")
	cmd.MarkFlagsMutuallyExclusive("quick", "agents")
	return cmd
}

func (o *analyzeOptions) selection() (analysis.Kind, analysis.AgentFlags, error) {
	switch {
	case o.quick:
		return analysis.KindQuick, analysis.QuickAgents(), nil
	case o.agents != "":
		flags, err := analysis.ParseAgentList(o.agents)
		if err != nil {
			return "", analysis.AgentFlags{}, err
		}
		if !flags.Any() {
			return "", analysis.AgentFlags{}, fmt.Errorf("--agents must name at least one agent")
		}
		return analysis.KindCustom, flags, nil
	default:
		return analysis.KindFull, analysis.AllAgents(), nil
	}
}
