// Package storage holds synthesized audio between generation and delivery,
// either in memory, in a temp directory or in a Cloud Storage bucket.
package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stored is audio ready to be sent. Callers must close Reader.
type Stored struct {
	Reader   io.ReadCloser
	Size     int64
	Location string
}

// Store keeps audio for delivery.
type Store interface {
	Save(ctx context.Context, data []byte) (*Stored, error)
	Close() error
}

// Stream hands the bytes straight back without keeping them.
type Stream struct{}

// NewStream creates a pass-through store.
func NewStream() *Stream {
	return &Stream{}
}

// Save implements Store.
func (*Stream) Save(_ context.Context, data []byte) (*Stored, error) {
	return &Stored{
		Reader:   io.NopCloser(bytes.NewReader(data)),
		Size:     int64(len(data)),
		Location: "memory",
	}, nil
}

// Close implements Store.
func (*Stream) Close() error {
	return nil
}

func objectName() string {
	return uuid.NewString() + ".mp3"
}

// reaper runs a deletion for each saved item once its TTL expires. Flush
// runs the pending ones immediately.
type reaper struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func newReaper(ttl time.Duration) *reaper {
	return &reaper{ttl: ttl, pending: make(map[string]*time.Timer)}
}

func (r *reaper) schedule(key string, remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		go remove()
		return
	}

	r.pending[key] = time.AfterFunc(r.ttl, func() {
		r.mu.Lock()
		_, ok := r.pending[key]
		delete(r.pending, key)
		r.mu.Unlock()

		if ok {
			remove()
		}
	})
}

func (r *reaper) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// flush stops all timers and returns the keys that were still pending.
func (r *reaper) flush() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	keys := make([]string, 0, len(r.pending))
	for key, timer := range r.pending {
		timer.Stop()
		keys = append(keys, key)
		delete(r.pending, key)
	}

	return keys
}
