package epub

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NeelM47/video-to-book/internal/pipeline"
)

func TestRenderTokens(t *testing.T) {
	tokens := pipeline.BionicTokens("The cat sat.")
	got := RenderTokens(tokens)
	want := "<b>Th</b>e <b>ca</b>t <b>sa</b>t."
	if got != want {
		t.Errorf("RenderTokens = %q, want %q", got, want)
	}
}

func TestRenderTokens_EscapesMarkup(t *testing.T) {
	tokens := pipeline.BionicTokens("a<b> & c")
	got := RenderTokens(tokens)
	if strings.Contains(got, "<b>a<b>") || !strings.Contains(got, "&amp;") {
		t.Errorf("markup not escaped: %q", got)
	}
	if strings.Contains(got, "&lt;") == false {
		t.Errorf("angle brackets not escaped: %q", got)
	}
}

func TestRenderTokens_NewlinesBecomeBreaks(t *testing.T) {
	tokens := pipeline.BionicTokens("one\ntwo")
	got := RenderTokens(tokens)
	if !strings.Contains(got, "<br/>") {
		t.Errorf("newline not rendered as break: %q", got)
	}
}

func TestRenderTokens_PunctuationUnstyled(t *testing.T) {
	tokens := pipeline.BionicTokens("(word) —")
	got := RenderTokens(tokens)
	if !strings.HasPrefix(got, "(<b>wo</b>rd)") {
		t.Errorf("punctuation leaked into emphasis: %q", got)
	}
	if strings.Contains(got, "<b>—") {
		t.Errorf("punctuation-only token emphasized: %q", got)
	}
}

func TestSplitChapters(t *testing.T) {
	text := strings.Repeat("word ", 2500)
	tokens := pipeline.BionicTokens(strings.TrimSpace(text))

	chapters := splitChapters(tokens)
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters for 2500 words, got %d", len(chapters))
	}

	count := func(ch []pipeline.BionicToken) int {
		n := 0
		for _, tok := range ch {
			if tok.Word != "" {
				n++
			}
		}
		return n
	}
	if n := count(chapters[0]); n != 1000 {
		t.Errorf("chapter 1 has %d words, want 1000", n)
	}
	if n := count(chapters[2]); n != 500 {
		t.Errorf("chapter 3 has %d words, want 500", n)
	}
}

func TestWrite_ContainerLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")

	tokens := pipeline.BionicTokens("A short book body with several words in it.")
	if err := Write(path, "Test Book", tokens); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open epub: %v", err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		t.Fatal("empty archive")
	}

	// The mimetype entry must be first and stored uncompressed.
	first := zr.File[0]
	if first.Name != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", first.Name)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype must be stored, got method %d", first.Method)
	}

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/nav.xhtml", "OEBPS/chap_1.xhtml", "OEBPS/style.css"} {
		if !names[want] {
			t.Errorf("missing entry %q", want)
		}
	}

	// Title lands in the package metadata.
	opf := readEntry(t, &zr.Reader, "OEBPS/content.opf")
	if !strings.Contains(opf, "<dc:title>Test Book</dc:title>") {
		t.Errorf("title missing from OPF:\n%s", opf)
	}

	// Chapter body carries the bionic emphasis.
	chap := readEntry(t, &zr.Reader, "OEBPS/chap_1.xhtml")
	if !strings.Contains(chap, "<b>") {
		t.Errorf("chapter has no emphasis markup:\n%s", chap)
	}
}

func TestWrite_NoContent(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "x.epub"), "Empty", nil); err == nil {
		t.Error("expected error for empty token stream")
	}
}

func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found", name)
	return ""
}
