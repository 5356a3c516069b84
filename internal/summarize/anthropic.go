package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = anthropic.ModelClaudeSonnet4_5_20250929

// Anthropic summarizes with the Messages API.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
	words  int
}

// NewAnthropic creates an Anthropic summarizer.
func NewAnthropic(apiKey, model string, words int, opts ...option.RequestOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY")
	}
	if words <= 0 {
		words = DefaultWords
	}

	m := DefaultAnthropicModel
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Anthropic{
		client: anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  m,
		words:  words,
	}, nil
}

// Summarize implements Summarizer.
func (a *Anthropic) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens(a.words),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(a.words, text))),
		},
	})
	if err != nil {
		return "", upstream("anthropic", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(textBlock.Text)
		}
	}

	return finish("anthropic", out.String())
}
