// Package conversion implements the HTTP contract of the document conversion
// service: one multipart upload per operation, answered by either an audio
// stream or a plain-text body.
package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/pkg/uictl"
)

const (
	// DefaultBaseURL is where the service listens in local development.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a whole request, including speech synthesis.
	DefaultTimeout = 5 * time.Minute
	// DefaultMaxResponseBytes caps the body read from the service.
	DefaultMaxResponseBytes = 256 << 20

	detailLimit = 4096
)

// ProgressFunc receives upload progress as bytes sent out of total.
type ProgressFunc func(sent, total int64)

// Config holds client settings. Zero values fall back to the defaults.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	HTTPClient       *http.Client
}

// Response is a successfully interpreted service reply.
type Response struct {
	Kind        operation.ResponseKind
	ContentType string
	Body        []byte
}

// Text returns the body as text. Only meaningful for Text responses.
func (r *Response) Text() string {
	return string(r.Body)
}

// Client talks to the conversion service.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	maxResponse int64
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}

	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid service URL %q: scheme must be http or https", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxResponse := cfg.MaxResponseBytes
	if maxResponse <= 0 {
		maxResponse = DefaultMaxResponseBytes
	}

	return &Client{
		baseURL:     base,
		http:        httpClient,
		maxResponse: maxResponse,
	}, nil
}

// Convert uploads a document to the endpoint bound to op and interprets the
// reply according to op's response kind.
func (c *Client) Convert(
	ctx context.Context,
	op operation.Operation,
	filename string,
	document []byte,
	progress ProgressFunc,
) (*Response, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unsupported operation %s", op)
	}

	body, contentType, err := encodeDocument(filename, document)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(op), newProgressReader(body, progress))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Detail: readDetail(resp.Body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	if int64(len(data)) > c.maxResponse {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, c.maxResponse)
	}

	return interpret(op.ResponseKind(), resp.Header.Get("Content-Type"), data)
}

func (c *Client) endpoint(op operation.Operation) string {
	return c.baseURL.JoinPath(op.Endpoint()).String()
}

// encodeDocument builds the multipart body with the document in field "file".
func encodeDocument(filename string, document []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	partType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if partType == "" {
		partType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filename,
	}))
	header.Set("Content-Type", partType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

// interpret checks a successful body against the declared response kind.
func interpret(kind operation.ResponseKind, contentType string, data []byte) (*Response, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s body", ErrMalformedResponse, kind)
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch kind {
	case operation.Audio:
		if strings.HasPrefix(mediaType, "text/") || mediaType == "application/json" {
			return nil, fmt.Errorf("%w: expected audio, got %s", ErrMalformedResponse, mediaType)
		}
	case operation.Text:
		if strings.HasPrefix(mediaType, "audio/") || mediaType == "application/json" {
			return nil, fmt.Errorf("%w: expected text, got %s", ErrMalformedResponse, mediaType)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: text body is not valid UTF-8", ErrMalformedResponse)
		}
	default:
		return nil, fmt.Errorf("%w: unknown response kind", ErrMalformedResponse)
	}

	return &Response{
		Kind:        kind,
		ContentType: contentType,
		Body:        data,
	}, nil
}

// readDetail pulls the "detail" field out of an error body, if present.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, detailLimit))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	if detail, ok := payload.Detail.(string); ok {
		return strings.TrimSpace(detail)
	}

	return ""
}

// progressReader reports bytes handed to the transport.
type progressReader struct {
	r       io.Reader
	counter *uictl.Counter
	fn      ProgressFunc
}

func newProgressReader(body []byte, fn ProgressFunc) io.Reader {
	return &progressReader{
		r:       bytes.NewReader(body),
		counter: uictl.NewCounter(int64(len(body))),
		fn:      fn,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.counter.Add(int64(n))
		if p.fn != nil {
			p.fn(p.counter.Cap())
		}
	}

	return n, err
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
