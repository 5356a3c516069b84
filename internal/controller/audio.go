package controller

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
)

// AudioStore keeps audio bytes somewhere playable until they are released.
type AudioStore interface {
	// Hold stores data and returns a location a player can open.
	Hold(name string, data []byte) (string, error)
	// Open reads back held audio.
	Open(location string) (io.ReadCloser, error)
	// Release frees the stored audio.
	Release(location string) error
}

// AudioRef is a short-lived handle on held audio. Release is idempotent.
type AudioRef struct {
	store    AudioStore
	location string
	size     int
	once     sync.Once
	released atomic.Bool
}

func newAudioRef(store AudioStore, location string, size int) *AudioRef {
	return &AudioRef{
		store:    store,
		location: location,
		size:     size,
	}
}

// PlayableURL returns where the audio can be played from while the
// reference is alive.
func (a *AudioRef) PlayableURL() string {
	return a.location
}

// Size returns the audio length in bytes.
func (a *AudioRef) Size() int {
	return a.size
}

// Released reports whether the reference has been revoked.
func (a *AudioRef) Released() bool {
	return a.released.Load()
}

// Open reads the audio while the reference is alive.
func (a *AudioRef) Open() (io.ReadCloser, error) {
	if a.Released() {
		return nil, fmt.Errorf("audio reference %s already released", a.location)
	}
	return a.store.Open(a.location)
}

// Release revokes the reference. Only the first call reaches the store.
func (a *AudioRef) Release() error {
	var err error
	a.once.Do(func() {
		a.released.Store(true)
		err = a.store.Release(a.location)
	})
	return err
}

// MemoryStore holds audio in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	next  int
	items map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) Hold(name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	location := "mem://" + strconv.Itoa(m.next) + "/" + name
	m.items[location] = bytes.Clone(data)

	return location, nil
}

func (m *MemoryStore) Open(location string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.items[location]
	if !ok {
		return nil, fmt.Errorf("no audio held at %s", location)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Release(location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, location)
	return nil
}

// Len returns the number of held items.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items)
}

// DirStore holds audio as files in a directory so external players can open
// them. Locations are file paths.
type DirStore struct {
	dir  string
	next atomic.Int64
}

// NewDirStore stores audio under dir, which must exist.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (d *DirStore) Hold(name string, data []byte) (string, error) {
	n := d.next.Add(1)
	path := filepath.Join(d.dir, fmt.Sprintf("%03d-%s", n, filepath.Base(name)))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write audio to %s: %w", path, err)
	}
	return path, nil
}

func (d *DirStore) Open(location string) (io.ReadCloser, error) {
	//nolint:gosec // locations are produced by Hold
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio %s: %w", location, err)
	}
	return f, nil
}

func (d *DirStore) Release(location string) error {
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove audio %s: %w", location, err)
	}
	return nil
}
