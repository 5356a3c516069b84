package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const documentPart = "word/document.xml"

var runsOfSpace = regexp.MustCompile(`\s{2,}`)

// DOCX extracts a Word document with the default limits.
func DOCX(blob []byte) (string, error) {
	return Extractor{}.DOCX(blob)
}

// DOCX returns the visible paragraph text of a Word document in document
// order. Empty paragraphs are dropped and runs of whitespace collapse to a
// single space. A body that inflates past MaxDocumentBytes is ErrCorrupt.
func (e Extractor) DOCX(blob []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", fmt.Errorf("%w: docx is not a zip archive: %w", ErrCorrupt, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: docx has no %s", ErrCorrupt, documentPart)
	}

	limit := e.maxDocumentBytes()
	tooLarge := fmt.Errorf("%w: %s inflates past %d bytes", ErrCorrupt, documentPart, limit)

	// the declared size is checked up front; the reader limit covers the rest
	if part.UncompressedSize64 > uint64(limit) {
		return "", tooLarge
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer rc.Close()

	body := &io.LimitedReader{R: rc, N: limit + 1}

	paragraphs, err := wordParagraphs(body)
	if body.N <= 0 {
		return "", tooLarge
	}
	if err != nil {
		return "", err
	}

	text := strings.Join(paragraphs, "\n")

	return runsOfSpace.ReplaceAllString(text, " "), nil
}

// wordParagraphs walks WordprocessingML and returns the trimmed text of each
// non-empty w:p element. Tabs and breaks inside a paragraph become spaces.
func wordParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		depth      int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: docx body: %w", ErrCorrupt, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = true
			case "tab", "br", "cr":
				current.WriteByte(' ')
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				depth--
				if depth > 0 {
					continue
				}
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
