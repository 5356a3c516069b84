package summarize

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = string(openai.ChatModelGPT4oMini)

// OpenAI summarizes with the Chat Completions API.
type OpenAI struct {
	client openai.Client
	model  string
	words  int
}

// NewOpenAI creates an OpenAI summarizer. Extra options are passed to the
// SDK client.
func NewOpenAI(apiKey, model string, words int, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if words <= 0 {
		words = DefaultWords
	}

	return &OpenAI{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
		words:  words,
	}, nil
}

// Summarize implements Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(o.words, text)),
		},
		MaxTokens: openai.Int(maxTokens(o.words)),
	})
	if err != nil {
		return "", upstream("openai", err)
	}

	if len(resp.Choices) == 0 {
		return "", upstream("openai", errors.New("no choices in response"))
	}

	return finish("openai", resp.Choices[0].Message.Content)
}
