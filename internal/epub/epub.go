package epub

import (
	"archive/zip"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/NeelM47/video-to-book/internal/pipeline"
)

// wordsPerChapter bounds chapter size so readers paginate reasonably.
const wordsPerChapter = 1000

const css = `body { font-family: sans-serif; line-height: 1.6; padding: 5%; }
b { font-weight: bold; }
`

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

// Write assembles the bionic token stream into an EPUB file at path. The
// book is written to a temporary file first and renamed into place, so a
// cancelled or failed run never leaves a partial book behind.
func Write(path, title string, tokens []pipeline.BionicToken) error {
	chapters := splitChapters(tokens)
	if len(chapters) == 0 {
		return fmt.Errorf("epub: no content to write")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".epub-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeContainer(tmp, title, chapters); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename epub into place: %w", err)
	}
	return nil
}

func writeContainer(f *os.File, title string, chapters [][]pipeline.BionicToken) error {
	zw := zip.NewWriter(f)

	// The mimetype entry must be first and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return err
	}

	files := map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/style.css":        css,
		"OEBPS/content.opf":      packageOPF(title, len(chapters)),
		"OEBPS/nav.xhtml":        navDoc(title, len(chapters)),
	}
	for i, ch := range chapters {
		files[fmt.Sprintf("OEBPS/chap_%d.xhtml", i+1)] = chapterXHTML(i+1, ch)
	}

	// Deterministic entry order: metadata first, then chapters.
	order := []string{"META-INF/container.xml", "OEBPS/style.css", "OEBPS/content.opf", "OEBPS/nav.xhtml"}
	for i := range chapters {
		order = append(order, fmt.Sprintf("OEBPS/chap_%d.xhtml", i+1))
	}

	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			return err
		}
	}

	return zw.Close()
}

// splitChapters breaks the token stream into chapters of wordsPerChapter
// word-bearing tokens.
func splitChapters(tokens []pipeline.BionicToken) [][]pipeline.BionicToken {
	var chapters [][]pipeline.BionicToken
	var current []pipeline.BionicToken
	words := 0

	for _, tok := range tokens {
		current = append(current, tok)
		if tok.Word != "" {
			words++
		}
		if words >= wordsPerChapter {
			chapters = append(chapters, current)
			current = nil
			words = 0
		}
	}
	if len(current) > 0 {
		chapters = append(chapters, current)
	}
	return chapters
}

func packageOPF(title string, chapterCount int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&b, "    <dc:identifier id=\"bookid\">urn:uuid:%s</dc:identifier>\n", uuid.NewString())
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", html.EscapeString(title))
	b.WriteString(`    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="style" href="style.css" media-type="text/css"/>
`)
	for i := 1; i <= chapterCount; i++ {
		fmt.Fprintf(&b, "    <item id=\"chap%d\" href=\"chap_%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i, i)
	}
	b.WriteString("  </manifest>\n  <spine>\n")
	for i := 1; i <= chapterCount; i++ {
		fmt.Fprintf(&b, "    <itemref idref=\"chap%d\"/>\n", i)
	}
	b.WriteString("  </spine>\n</package>\n")
	return b.String()
}

func navDoc(title string, chapterCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>%s</title></head>
<body>
  <nav epub:type="toc">
    <ol>
`, html.EscapeString(title))
	for i := 1; i <= chapterCount; i++ {
		fmt.Fprintf(&b, "      <li><a href=\"chap_%d.xhtml\">Part %d</a></li>\n", i, i)
	}
	b.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return b.String()
}

func chapterXHTML(index int, tokens []pipeline.BionicToken) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>Part %d</title>
  <link rel="stylesheet" type="text/css" href="style.css"/>
</head>
<body><p>`, index)
	b.WriteString(RenderTokens(tokens))
	b.WriteString("</p></body>\n</html>\n")
	return b.String()
}

// RenderTokens renders a token sequence as XHTML, wrapping each word's
// emphasized core prefix in <b>. Leading and trailing punctuation stays
// unstyled and separators are preserved, with newlines shown as breaks.
func RenderTokens(tokens []pipeline.BionicToken) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Word != "" {
			lead, core, trail := pipeline.SplitCore(tok.Word)
			b.WriteString(html.EscapeString(lead))
			if tok.Bold > 0 {
				runes := []rune(core)
				n := tok.Bold
				if n > len(runes) {
					n = len(runes)
				}
				b.WriteString("<b>")
				b.WriteString(html.EscapeString(string(runes[:n])))
				b.WriteString("</b>")
				b.WriteString(html.EscapeString(string(runes[n:])))
			} else {
				b.WriteString(html.EscapeString(core))
			}
			b.WriteString(html.EscapeString(trail))
		}
		b.WriteString(strings.ReplaceAll(html.EscapeString(tok.Sep), "\n", "<br/>\n"))
	}
	return b.String()
}
