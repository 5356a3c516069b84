package summarize_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alkime/docvoice/internal/summarize"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	prompt := summarize.Prompt(150, "body text")

	assert.Contains(t, prompt, "about 150 words")
	assert.Contains(t, prompt, "perspective the document was written")
	assert.Contains(t, prompt, "\n\nbody text")
}

// captured records the JSON body of the last provider request.
type captured struct {
	path string
	body map[string]any
}

func providerServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		got.path = r.URL.Path
		_ = json.Unmarshal(raw, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestOpenAI_Summarize(t *testing.T) {
	var got captured
	srv := providerServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4o-mini",
		"choices": [{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": "  Q3 revenue grew 12%.\n"}
		}]
	}`, &got)

	s, err := summarize.NewOpenAI("sk-test", "", 100,
		openaioption.WithBaseURL(srv.URL), openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	summary, err := s.Summarize(context.Background(), "The report text")
	require.NoError(t, err)

	assert.Equal(t, "Q3 revenue grew 12%.", summary)
	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, summarize.DefaultOpenAIModel, got.body["model"])
	assert.InDelta(t, 300, got.body["max_tokens"], 0)
}

func TestOpenAI_UpstreamError(t *testing.T) {
	var got captured
	srv := providerServer(t, http.StatusUnauthorized,
		`{"error": {"message": "bad key", "type": "invalid_request_error"}}`, &got)

	s, err := summarize.NewOpenAI("sk-test", "gpt-4o", 0,
		openaioption.WithBaseURL(srv.URL), openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, summarize.ErrUpstream)
}

func TestOpenAI_EmptySummary(t *testing.T) {
	var got captured
	srv := providerServer(t, http.StatusOK, `{
		"id": "x", "object": "chat.completion", "created": 1, "model": "m",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "   "}}]
	}`, &got)

	s, err := summarize.NewOpenAI("sk-test", "", 0,
		openaioption.WithBaseURL(srv.URL), openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, summarize.ErrUpstream)
}

func TestAnthropic_Summarize(t *testing.T) {
	var got captured
	srv := providerServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5-20250929",
		"content": [{"type": "text", "text": "We shipped early."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 4}
	}`, &got)

	s, err := summarize.NewAnthropic("key", "", 200,
		anthropicoption.WithBaseURL(srv.URL), anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)

	summary, err := s.Summarize(context.Background(), "Dear team, we shipped early.")
	require.NoError(t, err)

	assert.Equal(t, "We shipped early.", summary)
	assert.Equal(t, "/v1/messages", got.path)
	assert.InDelta(t, 600, got.body["max_tokens"], 0)
}

func TestAnthropic_UpstreamError(t *testing.T) {
	var got captured
	srv := providerServer(t, http.StatusInternalServerError,
		`{"type": "error", "error": {"type": "api_error", "message": "boom"}}`, &got)

	s, err := summarize.NewAnthropic("key", "claude-haiku-4-5", 0,
		anthropicoption.WithBaseURL(srv.URL), anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, summarize.ErrUpstream)
}

func TestConstructorsRequireKeys(t *testing.T) {
	_, err := summarize.NewOpenAI("", "", 0)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = summarize.NewAnthropic("", "", 0)
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = summarize.NewVertex(context.Background(), "", "", "", 0)
	assert.ErrorContains(t, err, "project and region")
}
