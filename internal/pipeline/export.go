package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/objstore"
)

// DefaultBatchSize is the number of transformed records per sink write
const DefaultBatchSize = 500

// ValidSink receives transformed records in batches
type ValidSink interface {
	// Prepare creates the destination if needed and applies the write
	// disposition. It is called once before the first batch.
	Prepare(ctx context.Context, disposition string) error
	// WriteBatch writes all records or none of them
	WriteBatch(ctx context.Context, records []model.TransformedRecord) error
}

// RejectedSink receives records that failed evaluation, one at a time
type RejectedSink interface {
	WriteRejected(ctx context.Context, rec model.RejectedRecord) error
}

// ------------------- JSON lines sink -------------------

// JSONLinesSink writes each rejected record as one JSON object per line to a
// local file or a gs:// object.
type JSONLinesSink struct {
	Path string

	mu  sync.Mutex
	w   io.WriteCloser
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONLinesSink creates (or truncates) the file at path. Parent
// directories are created for local paths.
func NewJSONLinesSink(ctx context.Context, path string) (*JSONLinesSink, error) {
	var (
		w   io.WriteCloser
		err error
	)
	if objstore.IsGCS(path) {
		w, err = objstore.OpenWriter(ctx, path, "application/json")
	} else {
		if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		w, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create rejects file: %w", err)
	}

	buf := bufio.NewWriter(w)
	return &JSONLinesSink{Path: path, w: w, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// WriteRejected implements RejectedSink
func (s *JSONLinesSink) WriteRejected(_ context.Context, rec model.RejectedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return errors.New("rejects sink is closed")
	}
	// Encode terminates every value with a newline
	return s.enc.Encode(rec)
}

// Close flushes buffered lines and closes the underlying file
func (s *JSONLinesSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return nil
	}
	s.enc = nil
	return errors.Join(s.buf.Flush(), s.w.Close())
}

// ------------------- Memory sink -------------------

// MemorySink keeps everything it receives. It implements both ValidSink and
// RejectedSink and is used for dry runs and tests.
type MemorySink struct {
	mu          sync.Mutex
	Disposition string
	Valid       []model.TransformedRecord
	Rejected    []model.RejectedRecord
}

func (m *MemorySink) Prepare(_ context.Context, disposition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Disposition = disposition
	if disposition != model.WriteAppend {
		m.Valid = nil
	}
	return nil
}

func (m *MemorySink) WriteBatch(_ context.Context, records []model.TransformedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Valid = append(m.Valid, records...)
	return nil
}

func (m *MemorySink) WriteRejected(_ context.Context, rec model.RejectedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, rec)
	return nil
}

// ValidRecords returns a copy of the valid records received so far
func (m *MemorySink) ValidRecords() []model.TransformedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TransformedRecord(nil), m.Valid...)
}

// RejectedRecords returns a copy of the rejected records received so far
func (m *MemorySink) RejectedRecords() []model.RejectedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RejectedRecord(nil), m.Rejected...)
}

// ------------------- Export Stage -------------------

// ExportValid batches transformed records into sink. Each batch is retried
// with retryCfg; a batch that still fails stops the stage with an error.
// A nil sink consumes and counts records without writing them.
func ExportValid(
	ctx context.Context,
	in <-chan model.TransformedRecord,
	sink ValidSink,
	batchSize int,
	retryCfg model.RetryConfig,
	report *QualityAggregator,
	tracker *PipelineTracker,
	logger *slog.Logger,
) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	batch := make([]model.TransformedRecord, 0, batchSize)
	var batches int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if sink != nil {
			err := Retry(ctx, retryCfg, func(attempt int) error {
				if ctx.Err() != nil {
					return Permanent(ctx.Err())
				}
				err := sink.WriteBatch(ctx, batch)
				if err != nil {
					logger.Warn("batch write failed", "batch", batches+1, "attempt", attempt, "error", err)
				}
				return err
			})
			if err != nil {
				tracker.AddSinkError()
				return fmt.Errorf("write batch %d: %w", batches+1, err)
			}
		}
		batches++
		tracker.AddExported(int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				logger.Info("valid export completed", "batches", batches)
				return nil
			}
			report.ObserveValid(rec)
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// ExportRejected writes every rejected record to sink. A nil sink only
// aggregates the records.
func ExportRejected(
	ctx context.Context,
	in <-chan model.RejectedRecord,
	sink RejectedSink,
	report *QualityAggregator,
	tracker *PipelineTracker,
	logger *slog.Logger,
) error {
	var written int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-in:
			if !ok {
				logger.Info("rejected export completed", "records", written)
				return nil
			}
			report.ObserveRejected(rec)
			if sink == nil {
				continue
			}
			if err := sink.WriteRejected(ctx, rec); err != nil {
				tracker.AddSinkError()
				return fmt.Errorf("write rejected record: %w", err)
			}
			written++
		}
	}
}
