package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-dq-pipeline/internal/model"
)

func TestPipelineTracker_Counters(t *testing.T) {
	pt := NewPipelineTracker("job-1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pt.AddLinesRead(3)
			pt.AddValid(2)
			pt.AddRejected(1)
			pt.AddTransformed(1)
			pt.AddDropped(1)
			pt.AddExported(1)
			pt.AddSinkError()
		}()
	}
	wg.Wait()

	m := pt.Snapshot()
	assert.Equal(t, "job-1", m.JobID)
	assert.Equal(t, model.StatusPending, m.Status)
	assert.EqualValues(t, 30, m.LinesRead)
	assert.EqualValues(t, 20, m.ValidRecords)
	assert.EqualValues(t, 10, m.RejectedRecords)
	assert.EqualValues(t, 10, m.TransformedRecords)
	assert.EqualValues(t, 10, m.DroppedRecords)
	assert.EqualValues(t, 10, m.ExportedRecords)
	assert.EqualValues(t, 10, m.SinkErrors)
	assert.Nil(t, m.EndTime)
}

func TestPipelineTracker_Stages(t *testing.T) {
	pt := NewPipelineTracker("job")
	pt.StartStage(StageValidation, 3)

	sm, ok := pt.Stage(StageValidation)
	require.True(t, ok)
	assert.Equal(t, "running", sm.Status)
	assert.Equal(t, 3, sm.WorkerCount)
	assert.Nil(t, sm.EndTime)

	time.Sleep(time.Millisecond)
	pt.EndStage(StageValidation, 42)

	sm, ok = pt.Stage(StageValidation)
	require.True(t, ok)
	assert.Equal(t, "completed", sm.Status)
	assert.EqualValues(t, 42, sm.RecordsProcessed)
	require.NotNil(t, sm.EndTime)
	assert.Positive(t, sm.Duration)

	// ending a stage that never started still records it
	pt.EndStage(StageExport, 1)
	sm, ok = pt.Stage(StageExport)
	require.True(t, ok)
	assert.Equal(t, StageExport, sm.StageName)

	_, ok = pt.Stage("unknown")
	assert.False(t, ok)

	assert.Len(t, pt.Snapshot().StageMetrics, 2)
}

func TestPipelineTracker_FinishAndErrors(t *testing.T) {
	pt := NewPipelineTracker("job")
	pt.AddLinesRead(100)
	pt.RecordError(StageExport, errors.New("disk full"))
	pt.RecordError(StageExport, nil)
	pt.SetStatus(model.StatusExporting)
	pt.Finish(model.StatusFailed)

	m := pt.Snapshot()
	assert.Equal(t, model.StatusFailed, m.Status)
	require.NotNil(t, m.EndTime)
	assert.Equal(t, m.EndTime.Sub(m.StartTime), m.Duration)

	errs := pt.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, StageExport, errs[0].Stage)
	assert.Equal(t, "disk full", errs[0].Message)

	// the snapshot is frozen after Finish
	time.Sleep(time.Millisecond)
	assert.Equal(t, m.Duration, pt.Snapshot().Duration)
}

func TestPipelineTracker_Nil(t *testing.T) {
	var pt *PipelineTracker
	assert.NotPanics(t, func() {
		pt.AddLinesRead(1)
		pt.AddValid(1)
		pt.AddRejected(1)
		pt.AddTransformed(1)
		pt.AddDropped(1)
		pt.AddExported(1)
		pt.AddSinkError()
		pt.SetStatus(model.StatusRunning)
		pt.StartStage(StageIngestion, 1)
		pt.EndStage(StageIngestion, 1)
		pt.RecordError(StageIngestion, errors.New("x"))
		pt.Finish(model.StatusCompleted)
	})
	assert.Nil(t, pt.Errors())
	_, ok := pt.Stage(StageIngestion)
	assert.False(t, ok)
}
