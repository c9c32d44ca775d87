package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/NeelM47/video-to-book/internal/groq"
)

// stubRewriter is a deterministic stand-in for the rewrite capability.
type stubRewriter struct {
	responses map[int]string // keyed by call count per invocation order
	errs      map[int]error
	calls     int
	seen      []string // transcribed text of each call, in order
	lookbacks []string
}

func (s *stubRewriter) Rewrite(ctx context.Context, captions, transcribed, lookback string) (string, error) {
	call := s.calls
	s.calls++
	s.seen = append(s.seen, transcribed)
	s.lookbacks = append(s.lookbacks, lookback)

	if err, ok := s.errs[call]; ok {
		return "", err
	}
	if resp, ok := s.responses[call]; ok {
		return resp, nil
	}
	return "rewritten: " + transcribed, nil
}

func noBackoff(int) time.Duration { return 0 }

func testChunks(n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{
			Index:       i,
			Captions:    fmt.Sprintf("captions text for part %d", i),
			Transcribed: fmt.Sprintf("transcribed text for part %d", i),
			Budget:      6000,
		}
	}
	return chunks
}

func TestReconcile_ProcessesInIndexOrder(t *testing.T) {
	stub := &stubRewriter{}
	r := &Reconciler{Rewriter: stub, MaxRetries: 1, Backoff: noBackoff}

	results, err := r.Reconcile(context.Background(), testChunks(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Calls must have been issued strictly in chunk order.
	for i, seen := range stub.seen {
		want := fmt.Sprintf("transcribed text for part %d", i)
		if seen != want {
			t.Errorf("call %d saw %q, want %q", i, seen, want)
		}
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
		if res.Degraded {
			t.Errorf("result %d unexpectedly degraded", i)
		}
	}
}

func TestReconcile_LookbackCarriesPreviousProse(t *testing.T) {
	stub := &stubRewriter{}
	r := &Reconciler{Rewriter: stub, MaxRetries: 1, Backoff: noBackoff}

	if _, err := r.Reconcile(context.Background(), testChunks(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.lookbacks[0] != "" {
		t.Errorf("first chunk should have no lookback, got %q", stub.lookbacks[0])
	}
	if !strings.Contains(stub.lookbacks[1], "rewritten: transcribed text for part 0") {
		t.Errorf("second chunk lookback = %q, want tail of first result", stub.lookbacks[1])
	}
}

func TestReconcile_RetriesTransientThenSucceeds(t *testing.T) {
	stub := &stubRewriter{
		errs: map[int]error{
			0: &groq.TransientError{StatusCode: 429, Message: "rate limited"},
		},
	}
	r := &Reconciler{Rewriter: stub, MaxRetries: 3, Backoff: noBackoff}

	results, err := r.Reconcile(context.Background(), testChunks(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 success), got %d", stub.calls)
	}
	if results[0].Degraded {
		t.Error("chunk should not be degraded after a successful retry")
	}
}

func TestReconcile_DegradedFallbackAfterExhaustedRetries(t *testing.T) {
	stub := &stubRewriter{
		errs: map[int]error{
			0: &groq.TransientError{StatusCode: 500, Message: "boom"},
			1: &groq.TransientError{StatusCode: 500, Message: "boom"},
			2: &groq.TransientError{StatusCode: 500, Message: "boom"},
		},
	}
	r := &Reconciler{Rewriter: stub, MaxRetries: 3, Backoff: noBackoff}

	chunks := testChunks(2)
	results, err := r.Reconcile(context.Background(), chunks)
	if err != nil {
		t.Fatalf("run should not fail on a degraded chunk: %v", err)
	}

	if !results[0].Degraded {
		t.Fatal("chunk 0 should be degraded")
	}
	if results[0].Prose != chunks[0].Primary() {
		t.Errorf("degraded prose = %q, want raw fallback %q", results[0].Prose, chunks[0].Primary())
	}
	// The run continues: chunk 1 is processed normally.
	if results[1].Degraded {
		t.Error("chunk 1 should not be degraded")
	}
}

func TestReconcile_PermanentErrorSkipsRetries(t *testing.T) {
	stub := &stubRewriter{
		errs: map[int]error{
			0: &groq.PermanentError{StatusCode: 401, Message: "bad key"},
		},
	}
	r := &Reconciler{Rewriter: stub, MaxRetries: 3, Backoff: noBackoff}

	results, err := r.Reconcile(context.Background(), testChunks(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", stub.calls)
	}
	if !results[0].Degraded {
		t.Error("chunk should fall back degraded on a permanent error")
	}
}

func TestReconcile_RejectsDegenerateResponses(t *testing.T) {
	longInput := strings.Repeat("input words here ", 20)
	chunk := Chunk{Index: 0, Transcribed: longInput, Captions: longInput}

	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"too short", "x"},
		{"too long", strings.Repeat(longInput, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRewriter{responses: map[int]string{0: tt.response, 1: tt.response, 2: tt.response}}
			r := &Reconciler{Rewriter: stub, MaxRetries: 3, Backoff: noBackoff}

			results, err := r.Reconcile(context.Background(), []Chunk{chunk})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stub.calls != 3 {
				t.Errorf("degenerate responses should be retried, got %d calls", stub.calls)
			}
			if !results[0].Degraded {
				t.Error("chunk should be degraded when every response is degenerate")
			}
		})
	}
}

func TestReconcile_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubRewriter{}
	r := NewReconciler(stub)

	_, err := r.Reconcile(ctx, testChunks(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestValidateProse(t *testing.T) {
	chunk := Chunk{Captions: strings.Repeat("a", 100), Transcribed: strings.Repeat("b", 200)}

	tests := []struct {
		name  string
		prose string
		ok    bool
	}{
		{"within bounds", strings.Repeat("c", 200), true},
		{"lower bound", strings.Repeat("c", 60), true},
		{"below lower bound", strings.Repeat("c", 59), false},
		{"upper bound", strings.Repeat("c", 600), true},
		{"above upper bound", strings.Repeat("c", 601), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProse(tt.prose, chunk)
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestReconcile_EndToEndScenario(t *testing.T) {
	// The canonical single-chunk ensemble: captions and transcription
	// disagree on one word, the stub resolves it.
	chunk := Chunk{
		Index:       0,
		Captions:    "the cat sat on the mat",
		Transcribed: "the cat sad on the mat",
	}
	stub := &stubRewriter{responses: map[int]string{0: "The cat sat on the mat."}}
	r := &Reconciler{Rewriter: stub, MaxRetries: 3, Backoff: noBackoff}

	results, err := r.Reconcile(context.Background(), []Chunk{chunk})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	narrative, err := Assemble(results)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if narrative != "The cat sat on the mat." {
		t.Fatalf("narrative = %q", narrative)
	}

	tokens := BionicTokens(narrative)
	var words []BionicToken
	for _, tok := range tokens {
		if tok.Word != "" {
			words = append(words, tok)
		}
	}
	if len(words) != 6 {
		t.Fatalf("expected 6 word tokens, got %d", len(words))
	}

	// ceil(n/2) over each word's core: The=2, cat=2, sat=2, on=1, the=2, mat=2.
	wantBold := []int{2, 2, 2, 1, 2, 2}
	for i, tok := range words {
		if tok.Bold != wantBold[i] {
			t.Errorf("word %d (%q) bold = %d, want %d", i, tok.Word, tok.Bold, wantBold[i])
		}
	}
}
