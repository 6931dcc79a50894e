package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-insight/internal/scraper"
)

// newScrapeCmd fetches one page and prints its extracted data.
func newScrapeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape a single URL and print the page data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := scraper.ValidateURL(args[0]); err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			s, closeFn, err := newScraper(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			page, err := s.Scrape(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scrape %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
}
