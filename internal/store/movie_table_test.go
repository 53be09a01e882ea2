package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-dq-pipeline/internal/model"
)

func movie(title string, year int64, rating float64) model.TransformedRecord {
	return model.TransformedRecord{
		PosterLink:   model.StringPtr("http://x.jpg"),
		SeriesTitle:  model.StringPtr(title),
		ReleasedYear: year,
		IMDBRating:   rating,
		MetaScore:    80,
		NoOfVotes:    500,
		Gross:        model.StringPtr("1M"),
	}
}

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"transformed_movie_data", "Movies2", "_t"} {
		assert.NoError(t, ValidateTableName(name), name)
	}
	for _, name := range []string{"", "1movies", "movies; DROP TABLE jobs", "a-b", "a.b"} {
		assert.Error(t, ValidateTableName(name), name)
	}
}

func TestNewMovieTable_Defaults(t *testing.T) {
	s := openTestStore(t)

	table, err := NewMovieTable(s.DB(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTable, table.Table())

	_, err = NewMovieTable(s.DB(), "bad name")
	assert.Error(t, err)
}

func TestMovieTable_WriteAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table, err := NewMovieTable(s.DB(), "movies")
	require.NoError(t, err)

	require.NoError(t, table.Prepare(ctx, model.WriteTruncate))
	require.NoError(t, table.WriteBatch(ctx, []model.TransformedRecord{
		movie("Foo", 2014, 7.0),
		movie("Bar", 2009, 6.6),
	}))
	require.NoError(t, table.WriteBatch(ctx, []model.TransformedRecord{
		{ReleasedYear: 2004, IMDBRating: 8.0},
	}))

	n, err := table.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rows, err := table.Query(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, movie("Foo", 2014, 7.0), rows[0])
	assert.Equal(t, movie("Bar", 2009, 6.6), rows[1])
	assert.Nil(t, rows[2].SeriesTitle, "absent strings are stored as NULL")
	assert.EqualValues(t, 2004, rows[2].ReleasedYear)

	rows, err = table.Query(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMovieTable_Disposition(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table, err := NewMovieTable(s.DB(), "")
	require.NoError(t, err)

	write := func(disposition string) int64 {
		require.NoError(t, table.Prepare(ctx, disposition))
		require.NoError(t, table.WriteBatch(ctx, []model.TransformedRecord{movie("Foo", 2014, 7)}))
		n, err := table.Count(ctx)
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 1, write(model.WriteTruncate))
	assert.EqualValues(t, 2, write(model.WriteAppend))
	assert.EqualValues(t, 1, write(model.WriteTruncate))
}

func TestMovieTable_NaNRating(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	table, err := NewMovieTable(s.DB(), "")
	require.NoError(t, err)

	require.NoError(t, table.Prepare(ctx, model.WriteTruncate))
	require.NoError(t, table.WriteBatch(ctx, []model.TransformedRecord{movie("Foo", 2014, math.NaN())}))

	rows, err := table.Query(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, math.IsNaN(rows[0].IMDBRating))
}

func TestMovieTable_QueryBeforePrepare(t *testing.T) {
	s := openTestStore(t)
	table, err := NewMovieTable(s.DB(), "never_created")
	require.NoError(t, err)

	_, err = table.Query(context.Background(), 10)
	assert.Error(t, err)
}

func TestOpenMovieTable_SeparateFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "valid.db")

	table, err := OpenMovieTable(path, "movies")
	require.NoError(t, err)
	require.NoError(t, table.Prepare(ctx, model.WriteTruncate))
	require.NoError(t, table.WriteBatch(ctx, []model.TransformedRecord{movie("Foo", 2014, 7)}))
	table.Close()

	reopened, err := OpenMovieTable(path, "movies")
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIsPostgresURL(t *testing.T) {
	assert.True(t, IsPostgresURL("postgres://user@localhost/db"))
	assert.True(t, IsPostgresURL("postgresql://localhost/db"))
	assert.False(t, IsPostgresURL("pipeline.db"))
	assert.False(t, IsPostgresURL(""))
}

func TestNewPostgresTable_InvalidInput(t *testing.T) {
	_, err := NewPostgresTable(context.Background(), "postgres://localhost/db", "bad name")
	assert.Error(t, err)

	_, err = NewPostgresTable(context.Background(), "postgres://%zz", "")
	assert.ErrorContains(t, err, "failed to parse database URL")
}
