// Package cli implements the corpus-search command line: a long-running HTTP
// server and a one-shot query command sharing the same search pipeline.
package cli

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	root       string
}

// NewRootCommand builds the corpus-search command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "corpus-search",
		Short: "Search a directory of text files for words over HTTP",
		Long: `corpus-search counts word occurrences across the *.txt files under a
directory and serves the results as HTML. A request for /cat/dog searches for
"cat" and "dog"; responses are cached per path for the life of the process.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (CS_* env vars override it)")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "corpus root directory (default: corpus.root or the working directory)")

	cmd.AddCommand(newServeCommand(opts), newQueryCommand(opts), newLoadtestCommand())
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads the config and resolves the corpus root. The --root flag wins
// over the config file, which wins over the working directory.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.root != "" {
		cfg.Corpus.Root = o.root
	}
	if cfg.Corpus.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		cfg.Corpus.Root = wd
	}
	return cfg, nil
}
