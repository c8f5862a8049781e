package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func parse(t *testing.T, report string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(report))
	require.NoError(t, err)
	return doc
}

func paragraphs(doc *goquery.Document) []string {
	var out []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

func TestRenderEndToEndScenario(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "cat dog cat", "b.txt": "fish"})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"cat"}, []corpus.FileOccurrence{
		{Name: "a.txt", Path: "a.txt", Count: 2},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`<html><body><h1>Search results: </h1>`+
			`<p>File name: <strong> a.txt</strong></p>`+
			`<p style="background-color:powderblue;">Number of word repetitions: cat is 2</p>`+
			`</body></html>`,
		got)
	assert.NotContains(t, got, "b.txt")
}

func TestRenderEmptyResult(t *testing.T) {
	r := New(t.TempDir())
	got, err := r.Render(context.Background(), []string{"cat"}, nil)
	require.NoError(t, err)

	doc := parse(t, got)
	assert.Equal(t, "Search results: ", doc.Find("h1").Text())
	assert.Zero(t, doc.Find("p").Length())
}

func TestRenderPerWordBreakdown(t *testing.T) {
	root := writeFiles(t, map[string]string{"pets.txt": "cat sat\nthe CAT ran"})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"cat", "dog"}, []corpus.FileOccurrence{
		{Name: "pets.txt", Path: "pets.txt", Count: 2},
	})
	require.NoError(t, err)

	doc := parse(t, got)
	assert.Equal(t, []string{
		"File name:  pets.txt",
		"Number of word repetitions: cat is 2",
		"The word dog you searched for does not exist in the file!",
	}, paragraphs(doc))

	style, _ := doc.Find("p").Eq(2).Attr("style")
	assert.Equal(t, "background-color:red;", style)
}

func TestRenderCaseInsensitiveLineCount(t *testing.T) {
	root := writeFiles(t, map[string]string{"go.txt": "Go go GO"})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"go"}, []corpus.FileOccurrence{
		{Name: "go.txt", Path: "go.txt", Count: 3},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "Number of word repetitions: go is 3")
}

// The line rule does not strip punctuation, so "cat," is not "cat" here even
// though the scanner counted it.
func TestRenderLineRuleIgnoresPunctuatedTokens(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "cat, dog"})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"cat"}, []corpus.FileOccurrence{
		{Name: "a.txt", Path: "a.txt", Count: 1},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "The word cat you searched for does not exist in the file!")
}

func TestRenderKeepsOrderAndDuplicates(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"z.txt":        "cat",
		"nested/a.txt": "dog cat",
	})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"cat", "cat"}, []corpus.FileOccurrence{
		{Name: "z.txt", Path: "z.txt", Count: 2},
		{Name: "a.txt", Path: filepath.Join("nested", "a.txt"), Count: 2},
	})
	require.NoError(t, err)

	var names []string
	parse(t, got).Find("strong").Each(func(_ int, s *goquery.Selection) {
		names = append(names, strings.TrimSpace(s.Text()))
	})
	assert.Equal(t, []string{"z.txt", "a.txt"}, names, "scanner order is preserved")
	assert.Equal(t, 4, strings.Count(got, "Number of word repetitions: cat is 1"))
}

func TestRenderEscapesHTML(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "<b>"})
	r := New(root)

	got, err := r.Render(context.Background(), []string{"<b>"}, []corpus.FileOccurrence{
		{Name: "a.txt", Path: "a.txt", Count: 1},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "Number of word repetitions: &lt;b&gt; is 1")
	assert.Zero(t, parse(t, got).Find("b").Length())
}

func TestRenderMissingFile(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Render(context.Background(), []string{"cat"}, []corpus.FileOccurrence{
		{Name: "gone.txt", Path: "gone.txt", Count: 1},
	})
	assert.ErrorIs(t, err, apperrors.ErrCorpusRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestToMarkdown(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "cat dog cat"})
	html, err := New(root).Render(context.Background(), []string{"cat", "fish"}, []corpus.FileOccurrence{
		{Name: "a.txt", Path: "a.txt", Count: 2},
	})
	require.NoError(t, err)

	md, err := ToMarkdown(html)
	require.NoError(t, err)
	assert.Contains(t, md, "Search results:")
	assert.Contains(t, md, "a.txt")
	assert.NotContains(t, md, "<p")
	assert.Contains(t, md, "Number of word repetitions: cat is 2")
	assert.Contains(t, md, "The word fish you searched for does not exist in the file!")
}
