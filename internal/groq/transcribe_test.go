package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "chat-model", "stt-model", 0)
	c.baseURL = srv.URL
	return c
}

func writeAudioFixture(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0}, size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe_ParsesSegments(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(map[string]any{
			"text": "hello world",
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.5, "text": "hello"},
				{"start": 2.5, "end": 4.0, "text": "world"},
			},
		})
	})

	segs, err := c.Transcribe(context.Background(), writeAudioFixture(t, 64), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[1].Start != 2.5 || segs[1].Text != "world" {
		t.Errorf("segment 1 = %+v", segs[1])
	}
}

func TestTranscribe_FlatTextFallback(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(map[string]any{"text": "just text"})
	})

	segs, err := c.Transcribe(context.Background(), writeAudioFixture(t, 64), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "just text" {
		t.Errorf("got %+v, want single flat-text segment", segs)
	}
}

// A server that rejects an upload before reading the whole body aborts the
// multipart pipe. The classified status error must win over the pipe error.
func TestTranscribe_EarlyRejectReportsStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, `{"error":{"message":"file too large"}}`)
	})

	// Large enough that the server gives up draining the unread body and
	// closes the connection mid-upload.
	big := writeAudioFixture(t, 2<<20)

	_, err := c.Transcribe(context.Background(), big, "en")
	if err == nil {
		t.Fatal("expected error")
	}
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("got %v (%T), want PermanentError", err, err)
	}
	if perm.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", perm.StatusCode, http.StatusRequestEntityTooLarge)
	}
}

func TestTranscribe_RateLimitedIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Transcribe(context.Background(), writeAudioFixture(t, 64), "en")
	if !IsTransient(err) {
		t.Errorf("got %v, want transient", err)
	}
}
