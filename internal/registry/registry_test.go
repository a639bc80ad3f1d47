package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/model"
)

func newJob(id string) model.UploadJob {
	return model.UploadJob{
		ID:        id,
		Title:     "Job " + id,
		Status:    model.JobStatusPreparing,
		Progress:  5,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRegistryAddPrepends(t *testing.T) {
	r := New(time.Minute, zap.NewNop())

	r.Add(newJob("a"))
	r.Add(newJob("b"))
	r.Add(newJob("c"))

	jobs := r.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "c", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
	assert.Equal(t, "a", jobs[2].ID)
}

func TestRegistryUpdate(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))

	r.Update("a", func(j *model.UploadJob) {
		j.Status = model.JobStatusUploading
		j.Progress = 10
	})

	job, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusUploading, job.Status)
	assert.Equal(t, 10, job.Progress)
}

func TestRegistryUpdateAbsentIDIsNoop(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))

	called := false
	r.Update("gone", func(j *model.UploadJob) { called = true })

	assert.False(t, called)
	assert.Len(t, r.Jobs(), 1)
}

func TestRegistryProgressNeverDecreases(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))

	r.Update("a", func(j *model.UploadJob) { j.Progress = 50 })
	r.Update("a", func(j *model.UploadJob) { j.Progress = 30 })

	job, _ := r.Get("a")
	assert.Equal(t, 50, job.Progress)
}

func TestRegistryErrorMayDropProgress(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))

	r.Update("a", func(j *model.UploadJob) { j.Progress = 80 })
	r.Update("a", func(j *model.UploadJob) {
		j.Status = model.JobStatusError
		j.Progress = 0
		j.Error = "upload failed"
	})

	job, _ := r.Get("a")
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, "upload failed", job.Error)
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))
	r.Add(newJob("b"))

	r.Remove("a")
	r.Remove("a")

	jobs := r.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "b", jobs[0].ID)
}

func TestRegistryCompletedJobExpires(t *testing.T) {
	r := New(20*time.Millisecond, zap.NewNop())
	r.Add(newJob("a"))

	r.Update("a", func(j *model.UploadJob) {
		j.Status = model.JobStatusCompleted
		j.Progress = 100
	})

	// still visible right after completion
	_, ok := r.Get("a")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := r.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRegistryErrorJobPersists(t *testing.T) {
	r := New(20*time.Millisecond, zap.NewNop())
	r.Add(newJob("a"))

	r.Update("a", func(j *model.UploadJob) {
		j.Status = model.JobStatusError
		j.Error = "boom"
	})

	time.Sleep(60 * time.Millisecond)
	_, ok := r.Get("a")
	assert.True(t, ok, "error jobs stay until dismissed")
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := New(time.Minute, zap.NewNop())
	r.Add(newJob("a"))

	snapshot := r.Jobs()
	r.Update("a", func(j *model.UploadJob) { j.Progress = 90 })

	assert.Equal(t, 5, snapshot[0].Progress)
}
