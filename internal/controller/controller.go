// Package controller implements the document workflow state machine: it
// tracks the single request in flight, maps each operation onto its wire
// contract and publishes immutable state snapshots for rendering.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/alkime/docvoice/internal/conversion"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/workdir"
	"github.com/alkime/docvoice/pkg/channels"
	"github.com/alkime/docvoice/pkg/uictl"
)

var (
	// ErrConcurrentSubmission is returned when Submit is called while a
	// request is in flight. The in-flight request is unaffected.
	ErrConcurrentSubmission = errors.New("a document is already being processed")
	// ErrNoDocument is returned when Submit is called without a filename.
	ErrNoDocument = errors.New("no document selected")
	// ErrUnknownOperation is returned for an operation outside the catalogue.
	ErrUnknownOperation = errors.New("unknown operation")
)

// uploadShare is the part of the progress bar covered by the upload; the
// remainder waits on the service.
const uploadShare = 90

// Converter sends a document to the conversion service.
type Converter interface {
	Convert(
		ctx context.Context,
		op operation.Operation,
		filename string,
		document []byte,
		progress conversion.ProgressFunc,
	) (*conversion.Response, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithAudioStore sets where audio results are held. Defaults to memory.
func WithAudioStore(store AudioStore) Option {
	return func(c *Controller) {
		c.audio = store
	}
}

// WithLogger sets the controller's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller owns the workflow state. All methods are safe for concurrent use.
type Controller struct {
	conv   Converter
	audio  AudioStore
	logger *slog.Logger
	hub    *channels.Latest[State]

	mu    sync.Mutex
	state State
	// token identifies the request the current InFlight state belongs to.
	token uint64
	held  *AudioRef
}

// New creates a controller in the Idle state.
func New(conv Converter, opts ...Option) *Controller {
	c := &Controller{
		conv:  conv,
		hub:   channels.NewLatest[State](),
		state: Idle{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.audio == nil {
		c.audio = NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Subscribe delivers snapshots as they are published, starting with the
// current one. Intermediate snapshots may be skipped for slow readers.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch, unsubscribe := c.hub.Subscribe()

	c.mu.Lock()
	c.hub.Publish(c.state)
	c.mu.Unlock()

	return ch, unsubscribe
}

// Submit sends doc to the endpoint bound to op and blocks until the request
// settles. It returns an error only when the submission is refused; the
// outcome of an accepted submission is published as Succeeded or Failed.
func (c *Controller) Submit(ctx context.Context, doc Document, op operation.Operation) error {
	if doc.Name == "" {
		return ErrNoDocument
	}
	if !op.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	c.mu.Lock()
	if current, busy := c.state.(InFlight); busy {
		c.mu.Unlock()
		c.logger.Debug("Submission rejected while busy",
			"busy_with", current.FileName,
			"rejected", doc.Name,
		)

		return ErrConcurrentSubmission
	}

	// a previous result never stays visible underneath a new request
	c.releaseHeldLocked()
	c.token++
	token := c.token
	c.setLocked(InFlight{Operation: op, FileName: doc.Name})
	c.mu.Unlock()

	c.logger.Info("Submitting document",
		"operation", op.String(),
		"file", doc.Name,
		"bytes", len(doc.Data),
	)

	c.settle(token, c.run(ctx, token, doc, op))

	return nil
}

// Reset returns to Idle and releases any held result. A request still in
// flight keeps running but its result will be discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
}

// Close resets the controller and ends all subscriptions.
func (c *Controller) Close() {
	c.Reset()
	c.hub.Close()
}

// DownloadCurrentResult saves the current result into dir under the
// operation's default filename and returns the written path. It is a no-op
// returning "" when there is no successful result.
func (c *Controller) DownloadCurrentResult(dir string) (string, error) {
	succeeded, audio, err := c.currentResult()
	if err != nil || succeeded == nil {
		return "", err
	}
	if audio != nil {
		defer audio.Close()
	}

	if err := workdir.Prep(dir); err != nil {
		return "", err
	}

	path, err := workdir.UniquePath(dir, succeeded.Operation.DefaultFilename())
	if err != nil {
		return "", err
	}

	switch result := succeeded.Result.(type) {
	case TextResult:
		//nolint:gosec // Saved results need to be readable
		if err := os.WriteFile(path, []byte(result.Content), 0o644); err != nil {
			return "", fmt.Errorf("failed to save summary: %w", err)
		}

	case AudioResult:
		if err := copyAudio(audio, path); err != nil {
			return "", err
		}

	default:
		return "", fmt.Errorf("unsupported result type %T", result)
	}

	c.logger.Info("Result saved", "path", path, "operation", succeeded.Operation.String())

	return path, nil
}

// run performs the request and always returns a terminal state.
func (c *Controller) run(ctx context.Context, token uint64, doc Document, op operation.Operation) (next State) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Conversion panicked", "panic", r, "operation", op.String(), "file", doc.Name)
			next = Failed{Operation: op, FileName: doc.Name, Message: msgUnexpected}
		}
	}()

	progress := func(sent, total int64) {
		c.progress(token, sent, total)
	}

	resp, err := c.conv.Convert(ctx, op, doc.Name, doc.Data, progress)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: no response", conversion.ErrMalformedResponse)
	}
	if err == nil && resp.Kind != op.ResponseKind() {
		err = fmt.Errorf("%w: expected %s, got %s", conversion.ErrMalformedResponse, op.ResponseKind(), resp.Kind)
	}
	if err != nil {
		c.logger.Error("Conversion failed", "error", err, "operation", op.String(), "file", doc.Name)

		return Failed{Operation: op, FileName: doc.Name, Message: userMessage(err)}
	}

	switch op.ResponseKind() {
	case operation.Audio:
		location, err := c.audio.Hold(op.DefaultFilename(), resp.Body)
		if err != nil {
			c.logger.Error("Failed to hold audio", "error", err)

			return Failed{Operation: op, FileName: doc.Name, Message: msgAudioStore}
		}

		return Succeeded{
			Operation: op,
			FileName:  doc.Name,
			Result:    AudioResult{Ref: newAudioRef(c.audio, location, len(resp.Body))},
		}

	default:
		return Succeeded{
			Operation: op,
			FileName:  doc.Name,
			Result:    TextResult{Content: resp.Text()},
		}
	}
}

// settle publishes the terminal state unless the request was superseded.
func (c *Controller) settle(token uint64, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, inFlight := c.state.(InFlight); token != c.token || !inFlight {
		c.logger.Debug("Discarding stale result", "phase", next.Phase())
		if succeeded, ok := next.(Succeeded); ok {
			releaseResult(succeeded.Result, c.logger)
		}

		return
	}

	if succeeded, ok := next.(Succeeded); ok {
		if audio, isAudio := succeeded.Result.(AudioResult); isAudio {
			c.held = audio.Ref
		}
	}

	c.setLocked(next)
}

// progress advances the InFlight percentage for the request with token.
func (c *Controller) progress(token uint64, sent, total int64) {
	if total <= 0 {
		return
	}

	pct := uictl.Percent[int64](uictl.Snapshot[int64]{Num: sent, Max: total}) * uploadShare / 100

	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.state.(InFlight)
	if !ok || token != c.token || pct <= current.Progress {
		return
	}

	current.Progress = min(pct, uploadShare)
	c.setLocked(current)
}

func (c *Controller) resetLocked() {
	c.releaseHeldLocked()
	c.token++
	if _, idle := c.state.(Idle); !idle {
		c.setLocked(Idle{})
	}
}

func (c *Controller) releaseHeldLocked() {
	if c.held == nil {
		return
	}

	if err := c.held.Release(); err != nil {
		c.logger.Warn("Failed to release audio", "error", err)
	}
	c.held = nil
}

// setLocked replaces the state wholesale and publishes it.
func (c *Controller) setLocked(next State) {
	c.state = next
	c.hub.Publish(next)
}

func releaseResult(result Result, logger *slog.Logger) {
	audio, ok := result.(AudioResult)
	if !ok {
		return
	}

	if err := audio.Ref.Release(); err != nil {
		logger.Warn("Failed to release stale audio", "error", err)
	}
}

// currentResult snapshots the Succeeded state. Audio is opened before the
// lock is dropped so a concurrent Reset cannot release it first; reads from
// an opened ref outlive the release.
func (c *Controller) currentResult() (*Succeeded, io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	succeeded, ok := c.state.(Succeeded)
	if !ok {
		return nil, nil, nil
	}

	result, ok := succeeded.Result.(AudioResult)
	if !ok {
		return &succeeded, nil, nil
	}

	audio, err := result.Ref.Open()
	if err != nil {
		return nil, nil, err
	}

	return &succeeded, audio, nil
}

func copyAudio(src io.Reader, path string) error {
	//nolint:gosec // Saved results need to be readable
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to save audio: %w", err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}

	return nil
}
