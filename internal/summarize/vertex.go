package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// DefaultVertexModel is used when no model is configured.
const DefaultVertexModel = "gemini-1.5-flash"

// Vertex summarizes with Gemini on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  *genai.GenerativeModel
	words  int
}

// NewVertex creates a Vertex AI summarizer. Close releases the client.
func NewVertex(ctx context.Context, projectID, region, model string, words int, opts ...option.ClientOption) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, errors.New("vertex: project and region are required")
	}
	if model == "" {
		model = DefaultVertexModel
	}
	if words <= 0 {
		words = DefaultWords
	}

	client, err := genai.NewClient(ctx, projectID, region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.SetMaxOutputTokens(int32(maxTokens(words))) //nolint:gosec // bounded by config
	gm.SetTemperature(0.2)

	return &Vertex{client: client, model: gm, words: words}, nil
}

// Summarize implements Summarizer.
func (v *Vertex) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(Prompt(v.words, text)))
	if err != nil {
		return "", upstream("vertex", err)
	}

	return finish("vertex", responseText(resp))
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			out.WriteString(string(t))
		}
	}

	return out.String()
}
