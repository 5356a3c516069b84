package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/alkime/docvoice/internal/conversion"
)

const (
	msgUnreachable = "Could not reach the conversion service. Check that it is running and try again."
	msgTimeout     = "The conversion service took too long to respond."
	msgServer      = "The conversion service failed to process the document. Please try again later."
	msgMalformed   = "The conversion service returned an unexpected response."
	msgAudioStore  = "The audio result could not be stored."
	msgUnexpected  = "Something went wrong while processing the document."
	msgGeneric     = "The document could not be processed."
)

// userMessage turns a conversion error into a short message for display.
// Raw transport errors are never shown.
func userMessage(err error) string {
	var statusErr *conversion.StatusError

	switch {
	case errors.As(err, &statusErr):
		if !statusErr.ClientError() {
			return msgServer
		}
		if statusErr.Detail != "" {
			return statusErr.Detail
		}
		return fmt.Sprintf("The conversion service rejected this document (HTTP %d).", statusErr.Code)

	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout

	case errors.Is(err, conversion.ErrMalformedResponse):
		return msgMalformed

	case conversion.IsTransport(err):
		return msgUnreachable

	default:
		return msgGeneric
	}
}
