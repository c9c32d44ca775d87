package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ReadLinks reads one video URL per non-blank line; lines starting with '#'
// are comments.
func ReadLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read links file: %w", err)
	}
	return urls, nil
}

// runVideo is swapped out in tests.
var runVideo = Run

// RunBatch converts every URL, at most maxConcurrent videos at a time. The
// pipelines share the client's rate gate on the rewrite capability, so
// concurrency here never overruns the API. Per-video failures land in their
// Result; only cancellation stops the batch.
func RunBatch(ctx context.Context, urls []string, maxConcurrent int, opts Options) ([]Result, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	slog.Info("starting batch", "videos", len(urls), "max_concurrent", maxConcurrent)

	results := make([]Result, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, url := range urls {
		g.Go(func() error {
			res, err := runVideo(gctx, url, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	Report(results)
	return results, nil
}

// Report logs a per-video outcome summary.
func Report(results []Result) {
	success, degraded, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			success++
			slog.Info("video ok", "run", r.RunID, "title", r.Title, "output", r.OutputPath)
		case StatusDegraded:
			degraded++
			slog.Warn("video degraded", "run", r.RunID, "title", r.Title,
				"output", r.OutputPath, "reason", r.Reason)
		default:
			failed++
			slog.Error("video failed", "run", r.RunID, "url", r.URL, "reason", r.Reason)
		}
	}
	slog.Info("batch complete", "success", success, "degraded", degraded, "failed", failed)
}
