package channels

// SendNonBlock attempts to send a message without blocking.
// Returns error if the channel is full or closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// Replace drops any value still pending in a single-slot channel and sends
// msg in its place. The caller must be the channel's only sender.
func Replace[T any](ch chan T, msg T) error {
	select {
	case <-ch:
	default:
	}

	return SendNonBlock(ch, msg)
}
