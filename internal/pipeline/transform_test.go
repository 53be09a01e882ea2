package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-dq-pipeline/internal/model"
)

// recordingDiag collects dropped records
type recordingDiag struct {
	mu      sync.Mutex
	dropped []model.RawRecord
	errs    []error
}

func (d *recordingDiag) RecordDropped(rec model.RawRecord, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropped = append(d.dropped, rec)
	d.errs = append(d.errs, err)
}

func TestTransform_ValidRow(t *testing.T) {
	diag := &recordingDiag{}
	out, err := Transform(ParseLine(fooLine), diag)
	require.NoError(t, err)
	assert.Empty(t, diag.dropped)

	assert.EqualValues(t, 2014, out.ReleasedYear)
	assert.Equal(t, 7.0, out.IMDBRating)
	assert.EqualValues(t, 80, out.MetaScore)
	assert.EqualValues(t, 500, out.NoOfVotes)

	strs := map[string]*string{
		"http://x.jpg": out.PosterLink,
		"Foo":          out.SeriesTitle,
		"PG":           out.Certificate,
		"100 min":      out.Runtime,
		"Drama":        out.Genre,
		"desc":         out.Overview,
		"D":            out.Director,
		"A":            out.Star1,
		"B":            out.Star2,
		"C":            out.Star3,
		"1M":           out.Gross,
	}
	for want, got := range strs {
		require.NotNil(t, got)
		assert.Equal(t, want, *got)
	}
	require.NotNil(t, out.Star4)
	assert.Equal(t, "D", *out.Star4)
}

func TestTransform_AbsentFields(t *testing.T) {
	rec := model.RawRecord{
		model.FieldPosterLink:   "p",
		model.FieldReleasedYear: "2009",
		model.FieldIMDBRating:   "7.1",
	}
	out, err := Transform(rec, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 2009, out.ReleasedYear)
	assert.EqualValues(t, 0, out.MetaScore)
	assert.EqualValues(t, 0, out.NoOfVotes)
	assert.Nil(t, out.SeriesTitle)
	assert.Nil(t, out.Gross)
	assert.Nil(t, out.Star4)
	require.NotNil(t, out.PosterLink)
	assert.Equal(t, "p", *out.PosterLink)
}

func TestTransform_AbsentRatingDefaultsToZero(t *testing.T) {
	out, err := Transform(model.RawRecord{model.FieldReleasedYear: "2004"}, nil)
	require.NoError(t, err)
	assert.Zero(t, out.IMDBRating)
}

func TestTransform_EmptyStringKept(t *testing.T) {
	out, err := Transform(ParseLine(withField(model.FieldGross, "")), nil)
	require.NoError(t, err)
	require.NotNil(t, out.Gross)
	assert.Equal(t, "", *out.Gross)
}

func TestTransform_DigitSeparators(t *testing.T) {
	line := withField(model.FieldMetaScore, "1_000")
	line = strings.Replace(line, ",500,", ",1_000_000,", 1)

	out, err := Transform(ParseLine(line), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, out.MetaScore)
	assert.EqualValues(t, 1000000, out.NoOfVotes)
}

func TestTransform_Failures(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"empty meta score", model.FieldMetaScore, ""},
		{"non numeric votes", model.FieldNoOfVotes, "1k"},
		{"float meta score", model.FieldMetaScore, "80.5"},
		{"votes overflow", model.FieldNoOfVotes, "99999999999999999999"},
		{"trailing underscore in meta score", model.FieldMetaScore, "80_"},
		{"hex votes", model.FieldNoOfVotes, "0x1F4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := &recordingDiag{}
			rec := ParseLine(withField(tt.field, tt.value))

			out, err := Transform(rec, diag)
			require.Error(t, err)
			assert.Equal(t, model.TransformedRecord{}, out)

			var te *TransformError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.field, te.Field)
			assert.Equal(t, rec[tt.field], te.Value)

			require.Len(t, diag.dropped, 1)
			assert.Equal(t, rec, diag.dropped[0])
		})
	}
}

func TestTransformError_Unwrap(t *testing.T) {
	_, err := Transform(model.RawRecord{model.FieldMetaScore: "x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.Contains(t, err.Error(), `meta_score="x"`)
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		route  bool
		want   OutcomeKind
		errors []string
	}{
		{name: "valid", line: fooLine, want: OutcomeValid},
		{name: "rejected", line: matrixLine, want: OutcomeRejected,
			errors: []string{"released_year is invalid", "imdb_rating is out of range"}},
		{name: "dropped", line: withField(model.FieldMetaScore, ""), want: OutcomeDropped},
		{name: "routed transform failure", line: withField(model.FieldMetaScore, ""), route: true,
			want: OutcomeRejected, errors: []string{`schema_transformation failed for meta_score=""`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := &recordingDiag{}
			p := &Processor{Diag: diag, RouteTransformFailures: tt.route}
			out := p.Process(tt.line)

			assert.Equal(t, tt.want, out.Kind)
			assert.Equal(t, ParseLine(tt.line), out.Record)
			switch tt.want {
			case OutcomeValid:
				assert.NotNil(t, out.Transformed)
				assert.Nil(t, out.Rejected)
				assert.NoError(t, out.Err)
			case OutcomeRejected:
				assert.Nil(t, out.Transformed)
				require.NotNil(t, out.Rejected)
				assert.Equal(t, tt.errors, out.Rejected.Messages())
			case OutcomeDropped:
				assert.Nil(t, out.Transformed)
				assert.Nil(t, out.Rejected)
				assert.Error(t, out.Err)
				assert.Len(t, diag.dropped, 1)
			}
		})
	}
}

func TestProcess_Idempotent(t *testing.T) {
	for _, line := range []string{fooLine, matrixLine, withField(model.FieldMetaScore, "")} {
		a := Process(line, nil)
		b := Process(line, nil)
		assert.Equal(t, a.Kind, b.Kind)
		assert.Equal(t, a.Record, b.Record)
		assert.Equal(t, a.Transformed, b.Transformed)
		assert.Equal(t, a.Rejected, b.Rejected)
	}
}

func TestProcess_Concurrent(t *testing.T) {
	p := NewProcessor(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			line := fooLine
			if i%2 == 1 {
				line = matrixLine
			}
			out := p.Process(line)
			if i%2 == 1 {
				assert.Equal(t, OutcomeRejected, out.Kind)
			} else {
				assert.Equal(t, OutcomeValid, out.Kind)
			}
		}(i)
	}
	wg.Wait()
}

func TestOutcomeKind_MarshalText(t *testing.T) {
	for kind, want := range map[OutcomeKind]string{
		OutcomeValid:    "valid",
		OutcomeRejected: "rejected",
		OutcomeDropped:  "dropped",
		OutcomeKind(42): "unknown",
	} {
		b, err := kind.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestTransformRecords(t *testing.T) {
	tests := []struct {
		name          string
		route         bool
		wantOut       int
		wantRejected  int
		wantDropped   int64
		wantDiagCalls int
	}{
		{name: "drop coercion failures", wantOut: 1, wantDropped: 1, wantDiagCalls: 1},
		{name: "route coercion failures", route: true, wantOut: 1, wantRejected: 1, wantDiagCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make(chan model.RawRecord, 2)
			out := make(chan model.TransformedRecord, 2)
			rejected := make(chan model.RejectedRecord, 2)
			tracker := NewPipelineTracker("job")
			diag := &recordingDiag{}

			in <- ParseLine(fooLine)
			in <- ParseLine(withField(model.FieldNoOfVotes, "many"))
			close(in)

			TransformRecords(context.Background(), in, out, rejected, diag, tt.route, tracker,
				slog.New(slog.DiscardHandler), 3)

			var got int
			for range out {
				got++
			}
			assert.Equal(t, tt.wantOut, got)
			assert.Len(t, rejected, tt.wantRejected)
			assert.Len(t, diag.dropped, tt.wantDiagCalls)

			m := tracker.Snapshot()
			assert.EqualValues(t, tt.wantOut, m.TransformedRecords)
			assert.Equal(t, tt.wantDropped, m.DroppedRecords)
			assert.EqualValues(t, tt.wantRejected, m.RejectedRecords)
		})
	}
}
