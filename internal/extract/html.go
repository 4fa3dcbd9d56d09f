package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose text content is never shown.
var invisibleElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// HTMLExtractor keeps visible text nodes, each trimmed and joined by
// newlines, and collects img sources.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(_ context.Context, src Source) (*Result, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src.FileName, err)
	}
	defer f.Close()

	return extractHTML(f)
}

func extractHTML(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	z := html.NewTokenizer(strings.NewReader(decodeUTF8(data)))
	var (
		parts  []string
		images []string
		hidden int
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return &Result{Text: strings.Join(parts, "\n"), Images: images}, nil
			}
			return nil, fmt.Errorf("tokenizing html: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Img && hasAttr {
				if src := imgSrc(z); src != "" {
					images = append(images, src)
				}
			}
			if tt == html.StartTagToken && invisibleElements[a] {
				hidden++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if invisibleElements[atom.Lookup(name)] && hidden > 0 {
				hidden--
			}

		case html.TextToken:
			if hidden > 0 {
				continue
			}
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
}

func imgSrc(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "src" {
			return strings.TrimSpace(string(val))
		}
		if !more {
			return ""
		}
	}
}
