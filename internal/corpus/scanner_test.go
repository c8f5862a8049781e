package corpus

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCorpus lays out files (relative path -> content) under a temp root.
func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func sortByPath(occ []FileOccurrence) []FileOccurrence {
	sort.Slice(occ, func(i, j int) bool { return occ[i].Path < occ[j].Path })
	return occ
}

func TestScanEndToEndScenario(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"a.txt": "cat dog cat",
		"b.txt": "fish",
	})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, []FileOccurrence{{Name: "a.txt", Path: "a.txt", Count: 2}}, got)
}

func TestScanCaseInsensitive(t *testing.T) {
	root := writeCorpus(t, map[string]string{"go.txt": "Go go GO"})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"go"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Count)

	got, err = s.Scan(context.Background(), []string{"GO"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Count, "query words are lowercased too")
}

func TestScanSumsAllWordsPerFile(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"pets.txt":  "cat dog cat, dog! bird",
		"birds.txt": "bird bird",
		"none.txt":  "nothing to see",
	})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"cat", "dog"})
	require.NoError(t, err)
	assert.Equal(t, []FileOccurrence{{Name: "pets.txt", Path: "pets.txt", Count: 4}}, got)
}

func TestScanDuplicateWordsCountTwice(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "cat"})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"cat", "cat"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Count)
}

func TestScanRecursesAndFiltersPattern(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"top.txt":            "needle",
		"nested/deep/in.txt": "needle needle",
		"nested/skip.md":     "needle",
		"nested/notes.TXT":   "needle",
	})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"needle"})
	require.NoError(t, err)
	assert.Equal(t, []FileOccurrence{
		{Name: "in.txt", Path: filepath.Join("nested", "deep", "in.txt"), Count: 2},
		{Name: "top.txt", Path: "top.txt", Count: 1},
	}, sortByPath(got))
}

func TestScanNoMatches(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"gamma"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanPunctuatedQueryWord(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "don't stop, don t"})
	s := New(root, config.CorpusConfig{}, nil)

	got, err := s.Scan(context.Background(), []string{"don't"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Count, "\"don't\" becomes the terms don and t")
}

func TestScanBoundedWorkers(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 40; i++ {
		files[filepath.Join("d", string(rune('a'+i%26))+string(rune('a'+i/26))+".txt")] = "word"
	}
	root := writeCorpus(t, files)
	s := New(root, config.CorpusConfig{MaxWorkers: 3}, nil)

	got, err := s.Scan(context.Background(), []string{"word"})
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func unreadableCorpus(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for this user")
	}
	root := writeCorpus(t, map[string]string{
		"ok.txt":     "cat",
		"locked.txt": "cat",
	})
	locked := filepath.Join(root, "locked.txt")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o644) })
	return root
}

func TestScanFailFastOnUnreadableFile(t *testing.T) {
	root := unreadableCorpus(t)
	m := metrics.New()
	s := New(root, config.CorpusConfig{}, m)

	got, err := s.Scan(context.Background(), []string{"cat"})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrCorpusRead)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileReadErrorsTotal))
}

func TestScanSkipPolicyContinues(t *testing.T) {
	root := unreadableCorpus(t)
	s := New(root, config.CorpusConfig{FailurePolicy: config.SkipFile}, nil)

	got, err := s.Scan(context.Background(), []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, []FileOccurrence{{Name: "ok.txt", Path: "ok.txt", Count: 1}}, got)
}

func TestScanMissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"), config.CorpusConfig{}, nil)
	_, err := s.Scan(context.Background(), []string{"cat"})
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
}

func TestScanCancelledContext(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "cat"})
	s := New(root, config.CorpusConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Scan(ctx, []string{"cat"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanTimeout(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "cat"})
	s := New(root, config.CorpusConfig{ScanTimeout: time.Nanosecond}, nil)

	// The deadline may or may not beat a tiny scan; both outcomes are valid
	// but a failure must be classified as a timeout.
	_, err := s.Scan(context.Background(), []string{"cat"})
	if err != nil {
		assert.True(t, apperrors.Is(err, apperrors.ErrTimeout) || apperrors.Is(err, context.DeadlineExceeded))
	}
}

func TestScanRecordsMetrics(t *testing.T) {
	root := writeCorpus(t, map[string]string{"a.txt": "cat", "b.txt": "dog"})
	m := metrics.New()
	s := New(root, config.CorpusConfig{}, m)

	_, err := s.Scan(context.Background(), []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesScannedTotal))
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"cat", "dog", "cat"}, QueryTerms([]string{"Cat", "DOG", "cat"}))
	assert.Equal(t, []string{"don", "t"}, QueryTerms([]string{"don't"}))
	assert.Empty(t, QueryTerms([]string{"", "!!"}))
}

func BenchmarkScan(b *testing.B) {
	root := b.TempDir()
	for i := 0; i < 64; i++ {
		name := filepath.Join(root, "f"+string(rune('a'+i%26))+string(rune('a'+i/26))+".txt")
		content := []byte("the quick brown fox jumps over the lazy dog\n")
		for j := 0; j < 6; j++ {
			content = append(content, content...)
		}
		if err := os.WriteFile(name, content, 0o644); err != nil {
			b.Fatal(err)
		}
	}
	s := New(root, config.CorpusConfig{}, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Scan(context.Background(), []string{"fox", "dog"}); err != nil {
			b.Fatal(err)
		}
	}
}
