package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/objstore"
)

// maxLineSize bounds a single input line (overviews can be long)
const maxLineSize = 1 << 20

// LineSource produces raw lines with any header lines already skipped
type LineSource interface {
	// Name identifies the source in logs
	Name() string
	// ReadLines sends every data line to out and returns the number sent.
	// It does not close out.
	ReadLines(ctx context.Context, out chan<- model.RawLine) (int64, error)
}

// OpenFunc opens the underlying byte stream of a source
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// ReaderSource reads newline-delimited lines from an opened stream
type ReaderSource struct {
	name            string
	open            OpenFunc
	skipHeaderLines int
	retry           model.RetryConfig
}

// NewReaderSource creates a LineSource over open, skipping the first
// skipHeaderLines lines.
func NewReaderSource(name string, skipHeaderLines int, open OpenFunc) *ReaderSource {
	return &ReaderSource{name: name, open: open, skipHeaderLines: skipHeaderLines}
}

// WithRetry retries failed opens with cfg. Errors wrapped with Permanent
// are returned at once.
func (s *ReaderSource) WithRetry(cfg model.RetryConfig) *ReaderSource {
	s.retry = cfg
	return s
}

func (s *ReaderSource) Name() string { return s.name }

// ReadLines implements LineSource. A trailing "\r" is stripped from each line.
func (s *ReaderSource) ReadLines(ctx context.Context, out chan<- model.RawLine) (int64, error) {
	var rc io.ReadCloser
	err := Retry(ctx, s.retry, func(attempt int) error {
		var err error
		rc, err = s.open(ctx)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineNo, sent int64
	for scanner.Scan() {
		lineNo++
		if lineNo <= int64(s.skipHeaderLines) {
			continue
		}
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case out <- scanner.Text():
			sent++
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			// remote bodies fail with transport errors once ctx is cancelled
			return sent, ctx.Err()
		}
		return sent, fmt.Errorf("read %s at line %d: %w", s.name, lineNo+1, err)
	}
	return sent, nil
}

// SliceSource serves lines from memory. Lines are sent as-is, with no
// header skipping.
type SliceSource []model.RawLine

func (s SliceSource) Name() string { return "memory" }

func (s SliceSource) ReadLines(ctx context.Context, out chan<- model.RawLine) (int64, error) {
	var sent int64
	for _, line := range s {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case out <- line:
			sent++
		}
	}
	return sent, nil
}

// OpenSource builds a LineSource for a configured source. Local paths,
// http(s):// URLs and gs:// objects are supported.
func OpenSource(src model.Source) (LineSource, error) {
	switch strings.ToLower(src.Type) {
	case "", "csv":
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
	if src.URL == "" {
		return nil, fmt.Errorf("source url is required")
	}

	skip := src.HeaderLines()
	url := src.URL
	retry := DefaultRetryConfigs["ingestion"]
	switch {
	case objstore.IsGCS(url):
		if _, _, err := objstore.ParseGCSURL(url); err != nil {
			return nil, err
		}
		return NewReaderSource(url, skip, func(ctx context.Context) (io.ReadCloser, error) {
			rc, err := objstore.OpenReader(ctx, url)
			if objstore.IsNotExist(err) {
				return nil, Permanent(err)
			}
			return rc, err
		}).WithRetry(retry), nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return NewReaderSource(url, skip, func(ctx context.Context) (io.ReadCloser, error) {
			return openHTTP(ctx, url)
		}).WithRetry(retry), nil
	default:
		return NewReaderSource(url, skip, func(context.Context) (io.ReadCloser, error) {
			f, err := os.Open(url)
			if err != nil {
				err = fmt.Errorf("failed to open CSV file: %w", err)
				if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
					return nil, Permanent(err)
				}
				return nil, err
			}
			return f, nil
		}).WithRetry(retry), nil
	}
}

func openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET CSV: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("failed to GET CSV: %s returned %s", url, resp.Status)
		// 4xx will not change on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return resp.Body, nil
}

// StartIngestion reads all sources in parallel into out. It returns the
// first source error after every source has stopped; out is not closed.
func StartIngestion(ctx context.Context, sources []LineSource, out chan<- model.RawLine, tracker *PipelineTracker, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			logger.Info("ingesting source", "source", src.Name())
			n, err := src.ReadLines(gctx, out)
			tracker.AddLinesRead(n)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			logger.Info("source ingested", "source", src.Name(), "lines", n)
			return nil
		})
	}
	return g.Wait()
}
