package cli

import (
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/loadtest"
	"github.com/spf13/cobra"
)

func newLoadtestCommand() *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "loadtest PATH...",
		Short: "Send concurrent searches to a running server",
		Example: `  corpus-search loadtest --url http://localhost:5050 cat dog/fish
  corpus-search loadtest -c 50 -n 1000 whale`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Paths = args
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "Paths:       %d\n\n", len(cfg.Paths))

			report, err := loadtest.Run(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			report.Print(out)
			if report.Total == 0 {
				return fmt.Errorf("no requests completed; is the server running at %s?", cfg.BaseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:5050", "base URL of the search server")
	cmd.Flags().IntVarP(&cfg.Concurrency, "concurrency", "c", 10, "number of concurrent workers")
	cmd.Flags().DurationVarP(&cfg.Duration, "duration", "d", 10*time.Second, "maximum test duration")
	cmd.Flags().IntVarP(&cfg.Requests, "requests", "n", 0, "total request budget (0 = until duration)")
	return cmd
}
