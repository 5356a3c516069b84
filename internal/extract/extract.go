// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupported is returned for file types with no extractor.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrCorrupt is returned when a document cannot be parsed.
	ErrCorrupt = errors.New("unreadable document")
)

// DefaultMaxDocumentBytes bounds the decompressed size of a document body
// when no other limit is set.
const DefaultMaxDocumentBytes = 200 << 20

// Extractor extracts text within size limits.
type Extractor struct {
	// MaxDocumentBytes bounds how far a compressed document body is
	// inflated. Zero means DefaultMaxDocumentBytes.
	MaxDocumentBytes int64
}

// Text extracts with the default limits.
func Text(ctx context.Context, filename string, blob []byte) (string, error) {
	return Extractor{}.Text(ctx, filename, blob)
}

// Text returns the text content of blob, choosing the extractor by the
// extension of filename.
func (e Extractor) Text(ctx context.Context, filename string, blob []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		return PDF(ctx, blob)
	case ".docx":
		return e.DOCX(blob)
	case ".xml":
		return XML(blob)
	case ".txt":
		return TXT(blob), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

func (e Extractor) maxDocumentBytes() int64 {
	if e.MaxDocumentBytes > 0 {
		return e.MaxDocumentBytes
	}
	return DefaultMaxDocumentBytes
}

// TXT decodes blob as UTF-8, replacing invalid sequences with U+FFFD.
func TXT(blob []byte) string {
	if utf8.Valid(blob) {
		return string(blob)
	}
	return strings.ToValidUTF8(string(blob), string(utf8.RuneError))
}
