package channels

import "sync"

// Latest publishes values to any number of subscribers, keeping only the most
// recent undelivered value per subscriber. Publish never blocks, so a slow
// reader sees fewer intermediate values but always the newest one.
type Latest[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewLatest creates an empty publisher.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new subscriber and returns its channel together with
// a function that unsubscribes and closes the channel. The unsubscribe
// function may be called more than once.
func (l *Latest[T]) Subscribe() (<-chan T, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan T, 1)
	if l.closed {
		close(ch)
		return ch, func() {}
	}

	id := l.nextID
	l.nextID++
	l.subs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
}

// Publish hands msg to every subscriber, replacing values they have not read.
func (l *Latest[T]) Publish(msg T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	for _, ch := range l.subs {
		// only Publish sends while holding the lock, so Replace cannot
		// observe a full slot after draining it.
		_ = Replace(ch, msg)
	}
}

// Subscribers returns the number of active subscribers.
func (l *Latest[T]) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true

	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
