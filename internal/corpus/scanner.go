// Package corpus enumerates the text files under a root directory and counts
// query-word occurrences in them, one goroutine per file.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/resilience"
	"golang.org/x/sync/errgroup"
)

// FileOccurrence is one matched file. Count is the sum over all query words.
// Path is relative to the scanner root; Name is its base name.
type FileOccurrence struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Count int    `json:"count"`
}

type Scanner struct {
	root        string
	pattern     string
	maxWorkers  int
	policy      string
	scanTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New returns a Scanner over root. m may be nil.
func New(root string, cfg config.CorpusConfig, m *metrics.Metrics) *Scanner {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "*.txt"
	}
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = config.FailFast
	}
	return &Scanner{
		root:        root,
		pattern:     pattern,
		maxWorkers:  cfg.MaxWorkers,
		policy:      policy,
		scanTimeout: cfg.ScanTimeout,
		metrics:     m,
		logger:      slog.Default().With("component", "corpus-scanner"),
	}
}

func (s *Scanner) Root() string {
	return s.root
}

// Check verifies the root is a readable directory.
func (s *Scanner) Check() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperrors.ErrCorpusUnavailable, s.root)
	}
	return nil
}

// Files returns the root-relative paths of every file matching the pattern,
// in lexical walk order.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	files := make([]string, 0)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if s.policy == config.SkipFile && path != s.root {
				s.logger.Warn("skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return fmt.Errorf("%w: walking %s: %w", apperrors.ErrCorpusRead, path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(s.pattern, d.Name())
		if err != nil {
			return fmt.Errorf("matching pattern %q: %w", s.pattern, err)
		}
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Scan counts occurrences of words in every corpus file and returns the
// files with a positive total, in the order their counting tasks finished.
// Each word is split with the tokenizer's rule before matching, and
// repeated words are counted once per repetition. Under the fail-fast
// policy a single unreadable file aborts the scan.
func (s *Scanner) Scan(ctx context.Context, words []string) ([]FileOccurrence, error) {
	var results []FileOccurrence
	err := resilience.WithTimeout(ctx, s.scanTimeout, "corpus scan", func(ctx context.Context) error {
		var err error
		results, err = s.scan(ctx, words)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scanner) scan(ctx context.Context, words []string) ([]FileOccurrence, error) {
	start := time.Now()
	terms := QueryTerms(words)
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.maxWorkers > 0 {
		g.SetLimit(s.maxWorkers)
	}

	var (
		mu      sync.Mutex
		total   int
		results = make([]FileOccurrence, 0)
	)
	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			count, err := s.countFile(rel, terms)
			if err != nil {
				if s.metrics != nil {
					s.metrics.FileReadErrorsTotal.Inc()
				}
				if s.policy == config.SkipFile {
					s.logger.Warn("skipping unreadable file", "file", rel, "error", err)
					return nil
				}
				return fmt.Errorf("%w: %s: %w", apperrors.ErrCorpusRead, rel, err)
			}
			mu.Lock()
			total += count
			running := total
			if count > 0 {
				results = append(results, FileOccurrence{
					Name:  filepath.Base(rel),
					Path:  rel,
					Count: count,
				})
			}
			mu.Unlock()
			s.logger.Debug("file scanned", "file", rel, "occurrences", count, "running_total", running)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("corpus scan aborted", "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
		s.metrics.FilesScannedTotal.Add(float64(len(files)))
		s.metrics.MatchedFiles.Observe(float64(len(results)))
	}
	s.logger.Info("corpus scan complete",
		"files", len(files),
		"matched", len(results),
		"total_occurrences", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

func (s *Scanner) countFile(rel string, terms []string) (int, error) {
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		return 0, err
	}
	tokens := tokenizer.Tokenize(string(data))
	count := 0
	for _, term := range terms {
		count += tokenizer.Count(tokens, term)
	}
	return count, nil
}

// QueryTerms tokenizes each query word with the scanner's rule and
// concatenates the results, keeping duplicates. A word such as "don't"
// contributes two terms; an empty word contributes none.
func QueryTerms(words []string) []string {
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, tokenizer.Tokenize(w)...)
	}
	return terms
}
