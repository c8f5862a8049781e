package cli

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/report"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

func newQueryCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query WORD...",
		Short: "Search the corpus once and print the report",
		Example: `  corpus-search query --root ./books cat dog
  corpus-search query --format markdown whale`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatHTML && format != formatMarkdown {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatHTML, formatMarkdown)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			out, err := a.service.Handle(ctx, searcher.Request{Segments: args, Method: "CLI"})
			if err != nil {
				return err
			}
			if format == formatMarkdown {
				if out, err = report.ToMarkdown(out); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatHTML, "output format: html or markdown")
	return cmd
}
