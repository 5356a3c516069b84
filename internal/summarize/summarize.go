// Package summarize produces short plain-language summaries of document text
// through a configurable LLM provider.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultWords is the target summary length.
const DefaultWords = 200

// ErrUpstream marks failures of the summary provider.
var ErrUpstream = errors.New("summary provider failed")

// Summarizer turns document text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Prompt builds the instruction for a summary of about words words.
func Prompt(words int, text string) string {
	return fmt.Sprintf(
		"Summarise the following document in about %d words, using plain language "+
			"and write in the perspective the document was written (eg. first person, etc):\n\n%s",
		words, text)
}

// maxTokens leaves headroom over the word target.
func maxTokens(words int) int64 {
	return int64(words * 3)
}

func upstream(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, provider, err)
}

func finish(provider, summary string) (string, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: %s returned an empty summary", ErrUpstream, provider)
	}

	return summary, nil
}
