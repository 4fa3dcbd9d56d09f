package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

var errMissingDocxBody = errors.New("word/document.xml not found")

// DOCXExtractor joins top-level paragraph text with newlines, in document
// order. Paragraphs nested in tables are not part of the body sequence.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Extract(_ context.Context, src Source) (*Result, error) {
	zr, err := zip.OpenReader(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening docx %s: %w", src.FileName, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != docxBodyPart {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", docxBodyPart, err)
		}
		text, err := parseDocumentXML(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return &Result{Text: text}, nil
	}

	return nil, errMissingDocxBody
}

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// parseDocumentXML walks the body token by token. Every w:t under a
// top-level paragraph counts, including runs wrapped in hyperlinks,
// insertions, smart tags and content controls. Run-level tabs and breaks
// become "\t" and "\n".
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		path       []xml.Name
		paragraphs []string
		para       *strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decoding %s: %w", docxBodyPart, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			var parent xml.Name
			if len(path) > 0 {
				parent = path[len(path)-1]
			}
			path = append(path, el.Name)
			if el.Name.Space != wordNS {
				continue
			}
			switch {
			case el.Name.Local == "p" && isBodyChild(path):
				para = new(strings.Builder)
			case para == nil || parent.Space != wordNS || parent.Local != "r":
			case el.Name.Local == "tab":
				para.WriteByte('\t')
			case el.Name.Local == "br", el.Name.Local == "cr":
				para.WriteByte('\n')
			}

		case xml.EndElement:
			if para != nil && el.Name.Local == "p" && isBodyChild(path) {
				paragraphs = append(paragraphs, para.String())
				para = nil
			}
			if len(path) > 0 {
				path = path[:len(path)-1]
			}

		case xml.CharData:
			if para != nil && len(path) > 0 && path[len(path)-1] == (xml.Name{Space: wordNS, Local: "t"}) {
				para.Write(el)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// isBodyChild reports whether path ends at document/body/<element>, which
// excludes paragraphs inside tables and text boxes.
func isBodyChild(path []xml.Name) bool {
	return len(path) == 3 && path[1] == xml.Name{Space: wordNS, Local: "body"}
}
