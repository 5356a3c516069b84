package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	objectPrefix  = "audio/"
	deleteTimeout = 30 * time.Second
)

// bucket is the slice of the Cloud Storage API the store needs.
type bucket interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, name string) error
}

// GCS writes audio to a bucket, streams it back and deletes the object after
// a TTL.
type GCS struct {
	bucket bucket
	name   string
	client *storage.Client
	logger *slog.Logger
	reaper *reaper
}

// NewGCS connects to bucketName. Client options such as credentials files are
// passed through to the storage client.
func NewGCS(ctx context.Context, bucketName string, ttl time.Duration, logger *slog.Logger, opts ...option.ClientOption) (*GCS, error) {
	if bucketName == "" {
		return nil, errors.New("gcs: bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	g := newGCS(gcsBucket{handle: client.Bucket(bucketName)}, bucketName, ttl, logger)
	g.client = client

	return g, nil
}

func newGCS(b bucket, name string, ttl time.Duration, logger *slog.Logger) *GCS {
	return &GCS{bucket: b, name: name, logger: logger, reaper: newReaper(ttl)}
}

// Save implements Store.
func (g *GCS) Save(ctx context.Context, data []byte) (*Stored, error) {
	object := objectPrefix + objectName()

	if err := g.bucket.Put(ctx, object, data); err != nil {
		return nil, fmt.Errorf("failed to upload audio to gs://%s/%s: %w", g.name, object, err)
	}
	g.reaper.schedule(object, func() { g.remove(object) })

	r, size, err := g.bucket.Get(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("failed to read back gs://%s/%s: %w", g.name, object, err)
	}

	g.logger.Debug("Audio uploaded", "bucket", g.name, "object", object, "bytes", len(data))

	return &Stored{Reader: r, Size: size, Location: "gs://" + g.name + "/" + object}, nil
}

// Close deletes pending objects and closes the client.
func (g *GCS) Close() error {
	for _, object := range g.reaper.flush() {
		g.remove(object)
	}

	if g.client != nil {
		if err := g.client.Close(); err != nil {
			return fmt.Errorf("failed to close storage client: %w", err)
		}
	}

	return nil
}

func (g *GCS) remove(object string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if err := g.bucket.Delete(ctx, object); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		g.logger.Warn("Failed to delete expired audio", "bucket", g.name, "object", object, "error", err)
		return
	}
	g.logger.Debug("Expired audio deleted", "bucket", g.name, "object", object)
}

// gcsBucket adapts a bucket handle to the bucket interface.
type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b gcsBucket) Put(ctx context.Context, name string, data []byte) error {
	// objects are write-once
	w := b.handle.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "audio/mpeg"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	return nil
}

func (b gcsBucket) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	r, err := b.handle.Object(name).NewReader(ctx)
	if err != nil {
		return nil, 0, err
	}
	return r, r.Attrs.Size, nil
}

func (b gcsBucket) Delete(ctx context.Context, name string) error {
	return b.handle.Object(name).Delete(ctx)
}
