// Package speech turns text into MP3 audio with OpenAI text-to-speech.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is the TTS model used when none is configured.
	DefaultModel = string(openai.SpeechModelTTS1)
	// DefaultVoice is the voice used when none is configured.
	DefaultVoice = "alloy"
	// MaxInputChars is the longest input the API accepts in one request.
	MaxInputChars = 4096

	parallelChunks = 4
)

var (
	// ErrUpstream marks failures of the speech provider.
	ErrUpstream = errors.New("speech synthesis failed")
	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("no text to synthesize")
)

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// OpenAI synthesizes MP3 audio. Long inputs are split at sentence
// boundaries and the MP3 segments are concatenated in order.
type OpenAI struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAI creates a synthesizer with the given model and voice.
func NewOpenAI(apiKey, model, voice string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}
	if voice == "" {
		voice = DefaultVoice
	}

	return &OpenAI{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
		voice:  voice,
	}, nil
}

// Synthesize implements Synthesizer.
func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := Chunk(text, MaxInputChars)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	segments := make([][]byte, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelChunks)

	for i, chunk := range chunks {
		g.Go(func() error {
			audio, err := o.synthesizeChunk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
			}
			segments[i] = audio
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bytes.Join(segments, nil), nil
}

func (o *OpenAI) synthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %w", ErrUpstream, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrUpstream)
	}

	return audio, nil
}

// Chunk splits text into pieces of at most limit runes, preferring sentence
// ends, then whitespace. Blank input yields no chunks.
func Chunk(text string, limit int) []string {
	var chunks []string
	rest := []rune(strings.TrimSpace(text))

	for len(rest) > 0 {
		if len(rest) <= limit {
			chunks = append(chunks, string(rest))
			break
		}

		cut := splitPoint(rest[:limit])
		chunks = append(chunks, strings.TrimSpace(string(rest[:cut])))
		rest = []rune(strings.TrimLeftFunc(string(rest[cut:]), unicode.IsSpace))
	}

	return chunks
}

// splitPoint returns where to end a chunk inside window.
func splitPoint(window []rune) int {
	space := -1
	for i := len(window) - 1; i > 0; i-- {
		if !unicode.IsSpace(window[i]) {
			continue
		}
		switch window[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
		if space < 0 {
			space = i
		}
	}
	if space > 0 {
		return space
	}

	return len(window)
}
