package server_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alkime/docvoice/internal/config"
	"github.com/alkime/docvoice/internal/controller"
	"github.com/alkime/docvoice/internal/conversion"
	"github.com/alkime/docvoice/internal/extract"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/server"
	"github.com/alkime/docvoice/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	got     []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.got = append(f.got, text)
	return f.summary, f.err
}

type fakeSynthesizer struct {
	mu  sync.Mutex
	err error
	got []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.got = append(f.got, text)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3" + text), nil
}

func (f *fakeSynthesizer) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

type fixture struct {
	srv   *server.Server
	sum   *fakeSummarizer
	synth *fakeSynthesizer
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		Port:           "8000",
		HSTSMaxAge:     31536000,
		CSPMode:        "relaxed",
		LogLevel:       "info",
		MaxUploadBytes: 1 << 20,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelError, // Only show errors during tests
		AddSource:   false,
		ReplaceAttr: nil,
	}))
}

func newFixture(t *testing.T, mutate ...func(*config.Config, *server.Deps)) *fixture {
	t.Helper()

	f := &fixture{
		sum:   &fakeSummarizer{summary: "Q3 revenue grew 12%."},
		synth: &fakeSynthesizer{},
	}

	cfg := testConfig()
	deps := server.Deps{
		Summarizer:  f.sum,
		Synthesizer: f.synth,
		Store:       storage.NewStream(),
	}
	for _, m := range mutate {
		m(cfg, &deps)
	}

	f.srv = server.New(cfg, testLogger(), deps)

	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body.Detail
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := f.do(httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
		assert.Contains(t, w.Body.String(), "healthy")
		assert.Contains(t, w.Body.String(), "docvoice")
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "/api/v1/upload", "notes.txt", []byte("Dear team,\nwe shipped.")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text": "Dear team,\nwe shipped."}`, w.Body.String())
}

func TestUpload_Validation(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *server.Deps) {
		cfg.MaxUploadBytes = 512
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
		w := f.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No file provided", detail(t, w))
	})

	t.Run("unsupported type", func(t *testing.T) {
		for _, path := range []string{"/api/v1/upload", "/api/v1/to-audio", "/api/v1/summarise", "/api/v1/summarise-audio"} {
			w := f.do(uploadRequest(t, path, "photo.png", []byte{0x89, 'P', 'N', 'G'}))

			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Equal(t, "Unsupported file type", detail(t, w), path)
		}
	})

	t.Run("too large", func(t *testing.T) {
		w := f.do(uploadRequest(t, "/api/v1/upload", "big.txt", bytes.Repeat([]byte("a"), 4096)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "File too large", detail(t, w))
	})

	t.Run("unparseable document", func(t *testing.T) {
		w := f.do(uploadRequest(t, "/api/v1/upload", "broken.xml", []byte("<open>")))

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, detail(t, w), "unreadable document")
	})
}

func TestUpload_InflatedDocxIs415(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *server.Deps) {
		cfg.MaxExtractBytes = 1 << 10
	})

	var docx bytes.Buffer
	zw := zip.NewWriter(&docx)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write(append([]byte(`<w:document><w:body><w:p><w:r><w:t>`), bytes.Repeat([]byte("z"), 64<<10)...))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resp := f.do(uploadRequest(t, "/api/v1/upload", "bomb.docx", docx.Bytes()))

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)
	assert.Contains(t, detail(t, resp), "inflates past 1024 bytes")
}

func TestUpload_UnexpectedExtractionFailure(t *testing.T) {
	f := newFixture(t, func(_ *config.Config, deps *server.Deps) {
		deps.Extract = func(context.Context, string, []byte) (string, error) {
			return "", errors.New("disk on fire")
		}
	})

	w := f.do(uploadRequest(t, "/api/v1/upload", "a.txt", []byte("x")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Extraction failed: disk on fire", detail(t, w))
}

func TestSummarise(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "/api/v1/summarise", "report.txt", []byte("Quarterly report")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Q3 revenue grew 12%.", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, []string{"Quarterly report"}, f.sum.got)
}

func TestSummarise_EmptyTextIs422(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/v1/summarise", "/api/v1/summarise-audio", "/api/v1/to-audio"} {
		w := f.do(uploadRequest(t, path, "scan.txt", []byte(" \n\t ")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, path)
		assert.Contains(t, detail(t, w), "run OCR first", path)
	}
	assert.Empty(t, f.sum.got)
	assert.Empty(t, f.synth.got)
}

func TestSummarise_ProviderFailureIs502(t *testing.T) {
	f := newFixture(t)
	f.sum.err = errors.New("connection refused")

	w := f.do(uploadRequest(t, "/api/v1/summarise", "a.txt", []byte("text")))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, detail(t, w), "connection refused")
}

func TestToAudio(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "/api/v1/to-audio", "notes.txt", []byte("Hello there")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="speech.mp3"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID3Hello there", w.Body.String())
	assert.Empty(t, f.sum.got)
}

func TestToAudio_TempFileStorage(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, func(_ *config.Config, deps *server.Deps) {
		store, err := storage.NewTempFile(dir, time.Minute, testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		deps.Store = store
	})

	w := f.do(uploadRequest(t, "/api/v1/to-audio", "notes.txt", []byte("Hello")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3Hello", w.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "audio waits in the temp dir until its TTL")
}

func TestSummariseAudio(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "/api/v1/summarise-audio", "report.txt", []byte("Quarterly report")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="summary.mp3"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID3Q3 revenue grew 12%.", w.Body.String())
	assert.Equal(t, []string{"Q3 revenue grew 12%."}, f.synth.got)
}

func TestSpeechFailureIs502(t *testing.T) {
	f := newFixture(t)
	f.synth.err = errors.New("quota exceeded")

	for _, path := range []string{"/api/v1/to-audio", "/api/v1/summarise-audio"} {
		w := f.do(uploadRequest(t, path, "a.txt", []byte("text")))

		assert.Equal(t, http.StatusBadGateway, w.Code, path)
		assert.Contains(t, detail(t, w), "TTS failed", path)
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/summarise", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := f.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticFrontEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>docvoice</h1>"), 0o600))

	f := newFixture(t, func(cfg *config.Config, _ *server.Deps) {
		cfg.StaticDir = dir
	})

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>docvoice</h1>")
}

// TestControllerAgainstService drives the client-side workflow against the
// real handlers.
func TestControllerAgainstService(t *testing.T) {
	f := newFixture(t, func(_ *config.Config, deps *server.Deps) {
		deps.Extract = func(ctx context.Context, filename string, blob []byte) (string, error) {
			if filename == "report.pdf" {
				return "Quarterly report", nil
			}
			return extract.Text(ctx, filename, blob)
		}
	})

	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	client, err := conversion.NewClient(conversion.Config{BaseURL: ts.URL})
	require.NoError(t, err)

	ctrl := controller.New(client, controller.WithLogger(testLogger()))
	defer ctrl.Close()

	t.Run("summary", func(t *testing.T) {
		err := ctrl.Submit(context.Background(), controller.Document{Name: "report.pdf", Data: []byte("%PDF")}, operation.Summarize)
		require.NoError(t, err)

		assert.Equal(t, controller.Succeeded{
			Operation: operation.Summarize,
			FileName:  "report.pdf",
			Result:    controller.TextResult{Content: "Q3 revenue grew 12%."},
		}, ctrl.State())
	})

	t.Run("speech", func(t *testing.T) {
		err := ctrl.Submit(context.Background(), controller.Document{Name: "notes.txt", Data: []byte("Hi")}, operation.ToSpeech)
		require.NoError(t, err)

		succeeded, ok := ctrl.State().(controller.Succeeded)
		require.True(t, ok)
		audio, ok := succeeded.Result.(controller.AudioResult)
		require.True(t, ok)
		assert.Equal(t, len("ID3Hi"), audio.Ref.Size())
	})

	t.Run("validation detail reaches the user", func(t *testing.T) {
		err := ctrl.Submit(context.Background(), controller.Document{Name: "scan.txt", Data: []byte("  ")}, operation.Summarize)
		require.NoError(t, err)

		failed, ok := ctrl.State().(controller.Failed)
		require.True(t, ok)
		assert.Contains(t, failed.Message, "run OCR first")
	})

	t.Run("server error", func(t *testing.T) {
		f.synth.fail(errors.New("boom"))
		defer f.synth.fail(nil)

		err := ctrl.Submit(context.Background(), controller.Document{Name: "notes.txt", Data: []byte("Hi")}, operation.SummarizeToSpeech)
		require.NoError(t, err)

		failed, ok := ctrl.State().(controller.Failed)
		require.True(t, ok)
		assert.Equal(t, "notes.txt", failed.FileName)
		assert.NotEmpty(t, failed.Message)
	})
}
