package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpusDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("cat dog cat"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("fish"), 0o644))
	return root
}

func runQuery(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"query"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryHTML(t *testing.T) {
	out, err := runQuery(t, "--root", corpusDir(t), "cat")
	require.NoError(t, err)
	assert.Equal(t,
		`<html><body><h1>Search results: </h1>`+
			`<p>File name: <strong> a.txt</strong></p>`+
			`<p style="background-color:powderblue;">Number of word repetitions: cat is 2</p>`+
			"</body></html>\n",
		out)
}

func TestQueryMarkdown(t *testing.T) {
	out, err := runQuery(t, "--root", corpusDir(t), "--format", "markdown", "cat", "whale")
	require.NoError(t, err)
	assert.Contains(t, out, "Number of word repetitions: cat is 2")
	assert.Contains(t, out, "The word whale you searched for does not exist in the file!")
	assert.NotContains(t, out, "<p")
}

func TestQueryUnknownFormat(t *testing.T) {
	_, err := runQuery(t, "--root", corpusDir(t), "--format", "pdf", "cat")
	assert.ErrorContains(t, err, "unknown format")
}

func TestQueryMissingRoot(t *testing.T) {
	_, err := runQuery(t, "--root", filepath.Join(t.TempDir(), "nope"), "cat")
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
}

func TestQueryRequiresWords(t *testing.T) {
	_, err := runQuery(t, "--root", corpusDir(t))
	assert.Error(t, err)
}

func TestServeAnswersAndShutsDown(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.Root = corpusDir(t)
	cfg.Admin.Enabled = false
	cfg.Server.ShutdownTimeout = time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, ln) }()

	base := "http://" + ln.Addr().String()
	for _, path := range []string{"/cat", "/cat"} {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		assert.Contains(t, string(body), "cat is 2")
	}

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
