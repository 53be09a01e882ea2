// Package objstore opens Google Cloud Storage objects addressed as
// gs://bucket/object for the pipeline's sources and sinks.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// IsGCS reports whether u addresses a Cloud Storage object
func IsGCS(u string) bool {
	return strings.HasPrefix(u, gcsScheme)
}

// ParseGCSURL splits gs://bucket/path/to/object into bucket and object name
func ParseGCSURL(u string) (bucket, object string, err error) {
	if !IsGCS(u) {
		return "", "", fmt.Errorf("not a gs:// url: %q", u)
	}
	rest := strings.TrimPrefix(u, gcsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// url must name a bucket and an object: %q", u)
	}
	return bucket, object, nil
}

// IsNotExist reports whether err means the object or local file is missing
func IsNotExist(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, fs.ErrNotExist)
}

// OpenReader opens a Cloud Storage object for reading. Closing the reader
// also releases the client created for it.
func OpenReader(ctx context.Context, u string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSURL(u)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open %s: %w", u, err)
	}
	return &clientCloser{rc: r, client: client}, nil
}

// OpenWriter creates or replaces a Cloud Storage object. The object is only
// committed when the writer is closed without error.
func OpenWriter(ctx context.Context, u, contentType string) (io.WriteCloser, error) {
	bucket, object, err := ParseGCSURL(u)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return &clientWriteCloser{w: w, client: client}, nil
}

type clientCloser struct {
	rc     io.ReadCloser
	client *storage.Client
}

func (c *clientCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *clientCloser) Close() error {
	return errors.Join(c.rc.Close(), c.client.Close())
}

type clientWriteCloser struct {
	w      *storage.Writer
	client *storage.Client
}

func (c *clientWriteCloser) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *clientWriteCloser) Close() error {
	return errors.Join(c.w.Close(), c.client.Close())
}
