package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/alkime/docvoice/internal/conversion"
	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server error hides details",
			err:  &conversion.StatusError{Code: http.StatusBadGateway, Detail: "TTS failed: openai 401"},
			want: msgServer,
		},
		{
			name: "client error shows service detail",
			err:  &conversion.StatusError{Code: http.StatusBadRequest, Detail: "Unsupported file type"},
			want: "Unsupported file type",
		},
		{
			name: "client error without detail",
			err:  &conversion.StatusError{Code: http.StatusRequestEntityTooLarge},
			want: "The conversion service rejected this document (HTTP 413).",
		},
		{
			name: "transport",
			err:  fmt.Errorf("%w: dial tcp: connection refused", conversion.ErrTransport),
			want: msgUnreachable,
		},
		{
			name: "timeout",
			err:  fmt.Errorf("%w: %w", conversion.ErrTransport, context.DeadlineExceeded),
			want: msgTimeout,
		},
		{
			name: "malformed",
			err:  fmt.Errorf("%w: empty body", conversion.ErrMalformedResponse),
			want: msgMalformed,
		},
		{
			name: "anything else",
			err:  errors.New("mystery"),
			want: msgGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}
