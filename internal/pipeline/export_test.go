package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-dq-pipeline/internal/model"
)

var discardLogger = slog.New(slog.DiscardHandler)

// flakySink fails the first failures batch writes
type flakySink struct {
	MemorySink
	mu       sync.Mutex
	failures int
	calls    int
	sizes    []int
}

func (s *flakySink) WriteBatch(ctx context.Context, records []model.TransformedRecord) error {
	s.mu.Lock()
	s.calls++
	if s.calls <= s.failures {
		s.mu.Unlock()
		return errors.New("temporarily unavailable")
	}
	s.sizes = append(s.sizes, len(records))
	s.mu.Unlock()
	return s.MemorySink.WriteBatch(ctx, records)
}

func transformedRecords(n int) <-chan model.TransformedRecord {
	ch := make(chan model.TransformedRecord, n)
	for i := 0; i < n; i++ {
		ch <- model.TransformedRecord{ReleasedYear: 2014, IMDBRating: 7, NoOfVotes: int64(i)}
	}
	close(ch)
	return ch
}

func TestExportValid_Batches(t *testing.T) {
	sink := &flakySink{}
	tracker := NewPipelineTracker("job")
	report := NewQualityAggregator()

	err := ExportValid(context.Background(), transformedRecords(7), sink, 3, fastRetry, report, tracker, discardLogger)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 1}, sink.sizes)
	got := sink.ValidRecords()
	require.Len(t, got, 7)
	for i, rec := range got {
		assert.EqualValues(t, i, rec.NoOfVotes, "records keep arrival order")
	}
	assert.EqualValues(t, 7, tracker.Snapshot().ExportedRecords)
	assert.EqualValues(t, 7, report.Report("job", 0).ValidRecords)
}

func TestExportValid_RetriesFailedBatch(t *testing.T) {
	sink := &flakySink{failures: 2}
	tracker := NewPipelineTracker("job")

	err := ExportValid(context.Background(), transformedRecords(2), sink, 10, fastRetry, nil, tracker, discardLogger)
	require.NoError(t, err)
	assert.Equal(t, 3, sink.calls)
	assert.Len(t, sink.ValidRecords(), 2)
	assert.Zero(t, tracker.Snapshot().SinkErrors)
}

func TestExportValid_GivesUp(t *testing.T) {
	sink := &flakySink{failures: 100}
	tracker := NewPipelineTracker("job")

	err := ExportValid(context.Background(), transformedRecords(2), sink, 10, fastRetry, nil, tracker, discardLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write batch 1")
	assert.Equal(t, fastRetry.MaxAttempts, sink.calls)

	m := tracker.Snapshot()
	assert.EqualValues(t, 1, m.SinkErrors)
	assert.Zero(t, m.ExportedRecords)
}

func TestExportValid_NilSinkCounts(t *testing.T) {
	tracker := NewPipelineTracker("job")
	err := ExportValid(context.Background(), transformedRecords(5), nil, 0, fastRetry, nil, tracker, discardLogger)
	require.NoError(t, err)
	assert.EqualValues(t, 5, tracker.Snapshot().ExportedRecords)
}

func TestExportValid_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := make(chan model.TransformedRecord)

	err := ExportValid(ctx, in, &MemorySink{}, 10, fastRetry, nil, nil, discardLogger)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportRejected(t *testing.T) {
	in := make(chan model.RejectedRecord, 2)
	in <- Evaluate(ParseLine(matrixLine)).Rejected()
	in <- Evaluate(ParseLine("http://x.jpg,Foo")).Rejected()
	close(in)

	sink := &MemorySink{}
	report := NewQualityAggregator()
	err := ExportRejected(context.Background(), in, sink, report, nil, discardLogger)
	require.NoError(t, err)

	assert.Len(t, sink.RejectedRecords(), 2)
	r := report.Report("job", 0)
	assert.EqualValues(t, 2, r.RejectedRecords)
	assert.EqualValues(t, 2, r.RuleViolations["released_year is invalid"])
}

type failingRejectedSink struct{}

func (failingRejectedSink) WriteRejected(context.Context, model.RejectedRecord) error {
	return errors.New("read-only file system")
}

func TestExportRejected_SinkError(t *testing.T) {
	in := make(chan model.RejectedRecord, 1)
	in <- Evaluate(ParseLine(matrixLine)).Rejected()
	close(in)

	tracker := NewPipelineTracker("job")
	err := ExportRejected(context.Background(), in, failingRejectedSink{}, nil, tracker, discardLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only file system")
	assert.EqualValues(t, 1, tracker.Snapshot().SinkErrors)
}

func TestJSONLinesSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job", "bad_data", "errors.json")

	sink, err := NewJSONLinesSink(context.Background(), path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.WriteRejected(ctx, Evaluate(ParseLine(matrixLine)).Rejected()))
	require.NoError(t, sink.WriteRejected(ctx, Evaluate(ParseLine(",Foo,2014,PG,100 min,Drama,7.0")).Rejected()))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")
	assert.Error(t, sink.WriteRejected(ctx, model.RejectedRecord{}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	assert.JSONEq(t, `{"row":{
		"poster_link":"http://x.jpg","series_title":"The Matrix","released_year":"1999","certificate":"R",
		"runtime":"136 min","genre":"Action","imdb_rating":"8.7","overview":"desc","meta_score":"73",
		"director":"Director","star1":"A","star2":"B","star3":"C","star4":"D","no_of_votes":"1000000","gross":"100M"},
		"errors":["released_year is invalid","imdb_rating is out of range"]}`, lines[0])
	assert.JSONEq(t, `{"row":{
		"poster_link":"","series_title":"Foo","released_year":"2014","certificate":"PG",
		"runtime":"100 min","genre":"Drama","imdb_rating":"7.0"},
		"errors":["poster_link is missing"]}`, lines[1])
}

func TestJSONLinesSink_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.json")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	sink, err := NewJSONLinesSink(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestMemorySink_Disposition(t *testing.T) {
	ctx := context.Background()
	sink := &MemorySink{}
	require.NoError(t, sink.WriteBatch(ctx, []model.TransformedRecord{{}, {}}))

	require.NoError(t, sink.Prepare(ctx, model.WriteAppend))
	assert.Len(t, sink.ValidRecords(), 2)

	require.NoError(t, sink.Prepare(ctx, model.WriteTruncate))
	assert.Empty(t, sink.ValidRecords())
	assert.Equal(t, model.WriteTruncate, sink.Disposition)
}
