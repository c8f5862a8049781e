// Package loadtest drives concurrent search requests against a running
// server and summarises latency and status codes. Repeated paths exercise
// the response cache; many workers on a cold key exercise the miss path.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// Requests caps the total number of requests. Zero means run until
	// Duration elapses.
	Requests int
	Paths    []string
}

// Report is the outcome of a run. Latencies are sorted ascending.
type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	Elapsed     time.Duration
	StatusCodes map[int]int64
	Latencies   []time.Duration
}

type recorder struct {
	mu     sync.Mutex
	report Report
}

func (r *recorder) record(d time.Duration, status int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Total++
	if err != nil {
		r.report.Errors++
		return
	}
	if status >= 200 && status < 300 {
		r.report.Success++
	} else {
		r.report.Errors++
	}
	r.report.Latencies = append(r.report.Latencies, d)
	r.report.StatusCodes[status]++
}

// Run issues GET requests for cfg.Paths round-robin from cfg.Concurrency
// workers until the duration or request budget is exhausted.
func Run(ctx context.Context, cfg Config, client *http.Client) (*Report, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("loadtest needs at least one path")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	rec := &recorder{report: Report{StatusCodes: make(map[int]int64)}}
	budget := make(chan struct{}, max(cfg.Requests, 0))
	for i := 0; i < cfg.Requests; i++ {
		budget <- struct{}{}
	}
	close(budget)
	base := strings.TrimRight(cfg.BaseURL, "/")

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ; i++ {
				if ctx.Err() != nil {
					return
				}
				if cfg.Requests > 0 {
					if _, ok := <-budget; !ok {
						return
					}
				}
				path := "/" + strings.TrimLeft(cfg.Paths[i%len(cfg.Paths)], "/")
				status, d, err := get(ctx, client, base+path)
				if err != nil && ctx.Err() != nil {
					return
				}
				rec.record(d, status, err)
			}
		}()
	}
	wg.Wait()

	report := rec.report
	report.Elapsed = time.Since(start)
	sort.Slice(report.Latencies, func(i, j int) bool { return report.Latencies[i] < report.Latencies[j] })
	return &report, nil
}

func get(ctx context.Context, client *http.Client, url string) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

// Percentile returns the p-th percentile latency (nearest rank).
func (r *Report) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(r.Latencies)))) - 1
	idx = min(max(idx, 0), len(r.Latencies)-1)
	return r.Latencies[idx]
}

// Print writes a human-readable summary to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 && r.Elapsed > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Elapsed.Seconds())
	}

	if n := len(r.Latencies); n > 0 {
		var sum time.Duration
		for _, l := range r.Latencies {
			sum += l
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(n))
		fmt.Fprintf(w, "P50:    %s\n", r.Percentile(50))
		fmt.Fprintf(w, "P95:    %s\n", r.Percentile(95))
		fmt.Fprintf(w, "P99:    %s\n", r.Percentile(99))
		fmt.Fprintf(w, "Max:    %s\n", r.Latencies[n-1])
	}

	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
