package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// XML returns every non-blank text node of an XML document, trimmed, one per
// line in document order.
func XML(blob []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(blob))
	dec.Strict = true

	var (
		lines   []string
		sawRoot bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: xml: %w", ErrCorrupt, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
		case xml.CharData:
			if line := strings.TrimSpace(string(t)); line != "" {
				lines = append(lines, line)
			}
		}
	}

	if !sawRoot {
		return "", fmt.Errorf("%w: xml has no root element", ErrCorrupt)
	}

	return strings.Join(lines, "\n"), nil
}
