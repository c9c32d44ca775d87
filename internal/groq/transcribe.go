package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/NeelM47/video-to-book/internal/transcript"
)

// whisperResponse is the verbose JSON transcription payload.
type whisperResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads an audio file to the Whisper endpoint and returns its
// timestamped segments. Verbose JSON output is requested so segment timing
// survives into the transcript.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	// Stream the multipart body through a pipe so large files are never
	// buffered in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer mw.Close()

		if err := mw.WriteField("model", c.sttModel); err != nil {
			errCh <- err
			return
		}
		if err := mw.WriteField("response_format", "verbose_json"); err != nil {
			errCh <- err
			return
		}
		if language != "" && strings.ToLower(language) != "auto" {
			if err := mw.WriteField("language", language); err != nil {
				errCh <- err
				return
			}
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(audioPath)))
		h.Set("Content-Type", mimeFromExt(filepath.Ext(audioPath)))
		part, err := mw.CreatePart(h)
		if err != nil {
			errCh <- err
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			errCh <- err
			return
		}

		errCh <- nil
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A server that rejects the upload early aborts the pipe mid-write;
		// the status carries the real cause, so drain the writer and report
		// the classified error.
		<-errCh
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, classifyStatus(resp.StatusCode, string(body))
	}

	if writeErr := <-errCh; writeErr != nil {
		return nil, fmt.Errorf("multipart write: %w", writeErr)
	}

	var wr whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	segs := make([]transcript.Segment, 0, len(wr.Segments))
	for _, s := range wr.Segments {
		segs = append(segs, transcript.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	// Some responses omit segment timing entirely; fall back to the flat
	// text as a single segment.
	if len(segs) == 0 && strings.TrimSpace(wr.Text) != "" {
		segs = append(segs, transcript.Segment{Text: wr.Text})
	}

	return segs, nil
}

func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/m4a"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
