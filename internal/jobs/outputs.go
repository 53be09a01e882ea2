package jobs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"movie-dq-pipeline/internal/model"
	"movie-dq-pipeline/internal/objstore"
	"movie-dq-pipeline/internal/store"
)

// ValidTable is a valid-record sink that can also be read back
type ValidTable interface {
	Prepare(ctx context.Context, disposition string) error
	WriteBatch(ctx context.Context, records []model.TransformedRecord) error
	Query(ctx context.Context, limit int) ([]model.TransformedRecord, error)
	Table() string
	Close()
}

// openValidTable resolves export.DB: a postgres:// URL, a separate sqlite
// file, or (when empty) the manager's Postgres URL or the job store itself.
func (m *Manager) openValidTable(ctx context.Context, export *model.Export) (ValidTable, error) {
	var dsn, table string
	if export != nil {
		dsn, table = export.DB, export.Table
	}
	if dsn == "" {
		dsn = m.postgresURL
	}

	var (
		t   ValidTable
		err error
	)
	switch {
	case store.IsPostgresURL(dsn):
		t, err = store.NewPostgresTable(ctx, dsn, table)
	case dsn != "":
		t, err = store.OpenMovieTable(dsn, table)
	default:
		t, err = store.NewMovieTable(m.store.DB(), table)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Records returns up to limit rows from the job's valid table
func (m *Manager) Records(ctx context.Context, jobID string, limit int) ([]model.TransformedRecord, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	spec := m.ApplyDefaults(job.Spec)

	table, err := m.openValidTable(ctx, spec.Export)
	if err != nil {
		return nil, err
	}
	defer table.Close()

	records, err := table.Query(ctx, limit)
	if err != nil {
		// the table does not exist until the job's first run prepares it
		if job.Status == model.StatusPending {
			return []model.TransformedRecord{}, nil
		}
		return nil, fmt.Errorf("query %s: %w", table.Table(), err)
	}
	return records, nil
}

// RejectsPath returns where the job writes its rejected records
func (m *Manager) RejectsPath(ctx context.Context, jobID string) (string, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	configured := ""
	if job.Spec.Export != nil {
		configured = job.Spec.Export.RejectsPath
	}
	return m.outputs.ResolveRejectsPath(jobID, configured), nil
}

// Rejects returns up to limit records from the job's rejects file. A job
// that has not written the file yet has no rejects.
func (m *Manager) Rejects(ctx context.Context, jobID string, limit int) ([]model.RejectedRecord, error) {
	path, err := m.RejectsPath(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	if objstore.IsGCS(path) {
		rc, err = objstore.OpenReader(ctx, path)
	} else {
		rc, err = os.Open(path)
	}
	if objstore.IsNotExist(err) {
		return []model.RejectedRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ReadRejects(rc, limit)
}

// ReadRejects decodes JSON lines written by the rejects sink
func ReadRejects(r io.Reader, limit int) ([]model.RejectedRecord, error) {
	out := []model.RejectedRecord{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() && (limit <= 0 || len(out) < limit) {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.RejectedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return out, fmt.Errorf("decode rejects line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}
