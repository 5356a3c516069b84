package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// pageWorkers bounds how many pages are decoded at once.
const pageWorkers = 8

var disableConfigDir sync.Once

// PDF returns the text shown on each page, pages separated by a newline.
// Scanned or image-only PDFs yield an empty string.
func PDF(ctx context.Context, blob []byte) (text string, err error) {
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf parser: %v", ErrCorrupt, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(blob), conf)
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrCorrupt, err)
	}

	// pdfcpu has no notion of font encodings; fonts are resolved a second
	// time here so glyph codes can be mapped through /Encoding and ToUnicode
	fontReader, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		// strings fall back to Latin-1
		fontReader = nil
	}

	// the xref tables are not safe for concurrent reads, so content streams
	// and fonts are pulled serially and only the decoding fans out
	streams := make([][]byte, pdfCtx.PageCount)
	fonts := make([]map[string]pdf.TextEncoding, pdfCtx.PageCount)
	for i := range streams {
		fonts[i] = pageFonts(fontReader, i+1)

		r, err := pdfcpu.ExtractPageContent(pdfCtx, i+1)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %w", ErrCorrupt, i+1, err)
		}
		if r == nil {
			continue
		}
		if streams[i], err = io.ReadAll(r); err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %w", ErrCorrupt, i+1, err)
		}
	}

	pages := make([]string, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageWorkers)

	for i, stream := range streams {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages[i] = contentText(stream, fonts[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, page := range pages {
		if page == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(page)
	}

	return out.String(), nil
}

// pageFonts returns the text encoding of every font in the resources of the
// given 1-based page, keyed by resource name. A font dictionary the reader
// cannot make sense of leaves the page on the Latin-1 fallback.
func pageFonts(r *pdf.Reader, page int) (fonts map[string]pdf.TextEncoding) {
	if r == nil {
		return nil
	}

	defer func() {
		if recover() != nil {
			fonts = nil
		}
	}()

	if page > r.NumPage() {
		return nil
	}

	p := r.Page(page)
	if p.V.IsNull() {
		return nil
	}

	names := p.Fonts()
	fonts = make(map[string]pdf.TextEncoding, len(names))
	for _, name := range names {
		fonts[name] = p.Font(name).Encoder()
	}

	return fonts
}
