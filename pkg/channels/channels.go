// Package channels provides small helpers for delivering values over channels
// without blocking the sender.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrChannelFull   = errors.New("channel full")
)
