package objstore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURL(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		object  string
		wantErr bool
	}{
		{in: "gs://movies/imdb_top_1000.csv", bucket: "movies", object: "imdb_top_1000.csv"},
		{in: "gs://movies/raw/2024/data.csv", bucket: "movies", object: "raw/2024/data.csv"},
		{in: "gs://movies", wantErr: true},
		{in: "gs://movies/", wantErr: true},
		{in: "gs:///data.csv", wantErr: true},
		{in: "s3://movies/data.csv", wantErr: true},
		{in: "movies.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, object, err := ParseGCSURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestIsGCS(t *testing.T) {
	assert.True(t, IsGCS("gs://b/o"))
	assert.False(t, IsGCS("https://storage.googleapis.com/b/o"))
	assert.False(t, IsGCS("outputs/job/bad_data/errors.json"))
}

func TestIsNotExist(t *testing.T) {
	_, err := os.Open("/definitely/not/here.json")
	assert.True(t, IsNotExist(err))
	assert.True(t, IsNotExist(fmt.Errorf("open gs://b/o: %w", storage.ErrObjectNotExist)))
	assert.False(t, IsNotExist(fmt.Errorf("permission denied")))
	assert.False(t, IsNotExist(nil))
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := OpenReader(context.Background(), "gs://bucket-only")
	assert.ErrorContains(t, err, "must name a bucket and an object")

	_, err = OpenWriter(context.Background(), "/local/path.json", "application/json")
	assert.ErrorContains(t, err, "not a gs:// url")
}
