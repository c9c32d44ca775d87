package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NeelM47/video-to-book/internal/groq"
)

// Rewriter is the external rewrite capability: given both transcript texts
// (either may be empty) and a lookback tail of the previous rewritten chunk,
// it returns corrected book-style prose.
type Rewriter interface {
	Rewrite(ctx context.Context, captions, transcribed, lookback string) (string, error)
}

const (
	// DefaultMaxRetries bounds rewrite attempts per chunk.
	DefaultMaxRetries = 3

	// lookbackChars is roughly how much of the previous rewritten chunk is
	// carried into the next synthesis instruction.
	lookbackChars = 300

	// Response length sanity bounds, relative to the longer input
	// transcript. Guards against truncated or runaway output.
	minLengthRatio = 0.3
	maxLengthRatio = 3.0
)

// Reconciler rewrites chunks one at a time, in index order, with retry and
// degraded fallback.
type Reconciler struct {
	Rewriter   Rewriter
	MaxRetries int

	// Backoff overrides the retry delay schedule; nil means groq.Backoff.
	Backoff func(attempt int) time.Duration
}

// NewReconciler returns a Reconciler with the default retry budget.
func NewReconciler(rw Rewriter) *Reconciler {
	return &Reconciler{Rewriter: rw, MaxRetries: DefaultMaxRetries}
}

// Reconcile processes chunks strictly in increasing index order; each call
// may reference the tail of the previous result, so later chunks are never
// issued before earlier ones complete. A chunk that exhausts its retries
// falls back to its higher-trust raw text and is marked degraded rather than
// failing the run.
func (r *Reconciler) Reconcile(ctx context.Context, chunks []Chunk) ([]RewrittenChunk, error) {
	retries := r.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	results := make([]RewrittenChunk, 0, len(chunks))
	lookback := ""

	for _, chunk := range chunks {
		prose, err := r.rewriteChunk(ctx, chunk, lookback, retries)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("chunk rewrite failed, using raw fallback",
				"chunk", chunk.Index, "err", err)
			results = append(results, RewrittenChunk{
				Index:    chunk.Index,
				Prose:    chunk.Primary(),
				Degraded: true,
			})
			lookback = tail(chunk.Primary(), lookbackChars)
			continue
		}

		results = append(results, RewrittenChunk{Index: chunk.Index, Prose: prose})
		lookback = tail(prose, lookbackChars)
	}

	return results, nil
}

func (r *Reconciler) rewriteChunk(ctx context.Context, chunk Chunk, lookback string, retries int) (string, error) {
	var lastErr error

	for attempt := 0; attempt < retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		prose, err := r.Rewriter.Rewrite(ctx, chunk.Captions, chunk.Transcribed, lookback)
		if err == nil {
			prose = strings.TrimSpace(prose)
			if verr := validateProse(prose, chunk); verr != nil {
				err = verr
			} else {
				return prose, nil
			}
		}

		lastErr = err
		if !retryable(err) {
			return "", fmt.Errorf("chunk %d: %w", chunk.Index, err)
		}
		if attempt < retries-1 {
			delay := r.Backoff
			if delay == nil {
				delay = groq.Backoff
			}
			backoff := delay(attempt)
			slog.Warn("chunk rewrite attempt failed, retrying",
				"chunk", chunk.Index,
				"attempt", attempt+1,
				"backoff", backoff.Round(time.Millisecond),
				"err", err)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}

	return "", fmt.Errorf("chunk %d failed after %d attempts: %w", chunk.Index, retries, lastErr)
}

// degenerateError marks a response rejected by validation; it is retried like
// a transient call failure.
type degenerateError struct {
	reason string
}

func (e *degenerateError) Error() string { return "degenerate response: " + e.reason }

func retryable(err error) bool {
	if groq.IsTransient(err) {
		return true
	}
	var de *degenerateError
	return errors.As(err, &de)
}

// validateProse applies the length sanity checks against the longer input
// transcript.
func validateProse(prose string, chunk Chunk) error {
	if prose == "" {
		return &degenerateError{reason: "empty"}
	}

	ref := len(chunk.Captions)
	if len(chunk.Transcribed) > ref {
		ref = len(chunk.Transcribed)
	}
	if ref == 0 {
		return nil
	}

	n := float64(len(prose))
	if n < minLengthRatio*float64(ref) {
		return &degenerateError{reason: fmt.Sprintf("too short (%d of %d chars)", len(prose), ref)}
	}
	if n > maxLengthRatio*float64(ref) {
		return &degenerateError{reason: fmt.Sprintf("too long (%d of %d chars)", len(prose), ref)}
	}
	return nil
}

// tail returns the last n bytes of s, trimmed forward to a word boundary so
// the lookback never starts mid-word.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[len(s)-n:]
	if i := strings.IndexByte(cut, ' '); i >= 0 {
		cut = cut[i+1:]
	}
	return cut
}
