// Package report renders scanner results as an HTML page. The renderer
// re-reads every matched file and recounts each query word with the line
// rule (whitespace split, case-insensitive), which can disagree with the
// scanner's non-word split on punctuated text.
package report

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"golang.org/x/net/html"
)

const (
	header = "<html><body><h1>Search results: </h1>"
	footer = "</body></html>"

	// maxLineSize bounds a single line read back from a corpus file.
	maxLineSize = 16 << 20
)

type Renderer struct {
	root   string
	logger *slog.Logger
}

func New(root string) *Renderer {
	return &Renderer{
		root:   root,
		logger: slog.Default().With("component", "report-renderer"),
	}
}

// Render builds the report for matched, in the given order. For every file
// each word in words is reported, duplicates and empty words included,
// either with its count or as not found.
func (r *Renderer) Render(ctx context.Context, words []string, matched []corpus.FileOccurrence) (string, error) {
	var b strings.Builder
	b.WriteString(header)
	for _, file := range matched {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		counts, err := r.countWords(file.Path, words)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", apperrors.ErrCorpusRead, file.Path, err)
		}
		writeFile(&b, file.Name, words, counts)
	}
	b.WriteString(footer)
	r.logger.Debug("report rendered", "files", len(matched), "words", len(words), "bytes", b.Len())
	return b.String(), nil
}

func writeFile(b *strings.Builder, name string, words []string, counts []int) {
	b.WriteString("<p>File name: <strong> ")
	b.WriteString(html.EscapeString(name))
	b.WriteString("</strong></p>")
	for i, word := range words {
		escaped := html.EscapeString(word)
		if counts[i] > 0 {
			b.WriteString(`<p style="background-color:powderblue;">Number of word repetitions: `)
			b.WriteString(escaped)
			b.WriteString(" is ")
			b.WriteString(strconv.Itoa(counts[i]))
			b.WriteString("</p>")
			continue
		}
		b.WriteString(`<p style="background-color:red;">The word `)
		b.WriteString(escaped)
		b.WriteString(" you searched for does not exist in the file!</p>")
	}
}

// countWords reads rel line by line and returns, per word, the number of
// whitespace-separated tokens equal to it ignoring case.
func (r *Renderer) countWords(rel string, words []string) ([]int, error) {
	f, err := os.Open(filepath.Join(r.root, rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	counts := make([]int, len(words))
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		fields := tokenizer.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		for i, word := range words {
			counts[i] += tokenizer.CountFold(fields, word)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
