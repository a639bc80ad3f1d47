package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/event"
	"github.com/yourorg/studio-media/internal/model"
	"github.com/yourorg/studio-media/internal/registry"
	"github.com/yourorg/studio-media/internal/staging"
)

type fakePostStore struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	created   []model.Post
	updated   []model.Post
}

func (s *fakePostStore) CreatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	out := *post
	out.ID = "post-1"
	s.created = append(s.created, out)
	return &out, nil
}

func (s *fakePostStore) UpdatePost(ctx context.Context, post *model.Post) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = append(s.updated, *post)
	return post, nil
}

func (s *fakePostStore) lastUpdated(t *testing.T) model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.updated)
	return s.updated[len(s.updated)-1]
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []event.PostChanged
}

func (b *fakeBroadcaster) PublishPostChanged(ctx context.Context, e event.PostChanged) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *fakeBroadcaster) published() []event.PostChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.PostChanged, len(b.events))
	copy(out, b.events)
	return out
}

// fakeUploader stands in for a selection slot during orchestration tests
type fakeUploader struct {
	files  []staging.StagedFile
	assets []model.MediaAsset
	err    error
}

func (u *fakeUploader) Upload(ctx context.Context, onSettle func()) ([]model.MediaAsset, error) {
	if u.err != nil {
		return nil, u.err
	}
	for range u.assets {
		if onSettle != nil {
			onSettle()
		}
	}
	return u.assets, nil
}

func (u *fakeUploader) Files() []staging.StagedFile { return u.files }
func (u *fakeUploader) Clear()                      {}
func (u *fakeUploader) InProgress() bool            { return false }

func stagedStub(n int) []staging.StagedFile {
	files := make([]staging.StagedFile, n)
	for i := range files {
		files[i] = staging.StagedFile{Name: "f", ContentType: "image/jpeg"}
	}
	return files
}

func waitForOutcome(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish in time")
		return nil
	}
}

func newServiceForTest(store *fakePostStore, bc *fakeBroadcaster) (*UploadService, *registry.Registry) {
	reg := registry.New(time.Minute, zap.NewNop())
	return NewUploadService(reg, store, bc, zap.NewNop()), reg
}

func TestStartJobCreateFlow(t *testing.T) {
	store := &fakePostStore{}
	bc := &fakeBroadcaster{}
	svc, reg := newServiceForTest(store, bc)

	videoSlot := &fakeUploader{
		files:  stagedStub(1),
		assets: []model.MediaAsset{{Type: model.MediaTypeVideo, Provider: model.ProviderMux, PublicID: "up-1"}},
	}
	imageSlot := &fakeUploader{
		files: stagedStub(2),
		assets: []model.MediaAsset{
			{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "i1"},
			{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "i2"},
		},
	}

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Launch reel"}, nil, videoSlot, imageSlot, func(err error) {
		outcome <- err
	})
	require.NotEmpty(t, jobID)

	require.NoError(t, waitForOutcome(t, outcome))

	job, ok := reg.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "post-1", job.PostID)
	assert.Equal(t, "Launch reel", job.Title)

	// draft first, then finalize with the merged media
	require.Len(t, store.created, 1)
	assert.Equal(t, model.PostStatusDraft, store.created[0].Status)

	final := store.lastUpdated(t)
	assert.Equal(t, model.PostStatusPublished, final.Status)
	require.Len(t, final.Media, 3)
	assert.Equal(t, "up-1", final.Media[0].PublicID)
	assert.Equal(t, []int{0, 1, 2}, mediaOrders(final.Media))
	assert.True(t, final.Media[0].IsFeatured)
	assert.False(t, final.Media[1].IsFeatured)

	events := bc.published()
	require.Len(t, events, 1)
	assert.Equal(t, "post-1", events[0].PostID)
	assert.Equal(t, "created", events[0].Action)
}

func TestStartJobEditFlow(t *testing.T) {
	store := &fakePostStore{}
	bc := &fakeBroadcaster{}
	svc, reg := newServiceForTest(store, bc)

	retained := []model.MediaAsset{
		{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "keep1"},
		{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "keep2", IsFeatured: true},
	}
	imageSlot := &fakeUploader{
		files:  stagedStub(1),
		assets: []model.MediaAsset{{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "new1"}},
	}

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Updated title", PostID: "post-9", Status: "draft"}, retained, &fakeUploader{}, imageSlot, func(err error) {
		outcome <- err
	})
	require.NoError(t, waitForOutcome(t, outcome))

	// no draft creation when the record already exists
	assert.Empty(t, store.created)

	final := store.lastUpdated(t)
	assert.Equal(t, "post-9", final.ID)
	assert.Equal(t, model.PostStatusDraft, final.Status)
	require.Len(t, final.Media, 3)
	assert.Equal(t, []int{0, 1, 2}, mediaOrders(final.Media))
	assert.False(t, final.Media[0].IsFeatured)
	assert.True(t, final.Media[1].IsFeatured)
	assert.False(t, final.Media[2].IsFeatured)

	job, _ := reg.Get(jobID)
	assert.Equal(t, model.JobStatusCompleted, job.Status)

	events := bc.published()
	require.Len(t, events, 1)
	assert.Equal(t, "updated", events[0].Action)
}

func TestStartJobDraftCreationFails(t *testing.T) {
	store := &fakePostStore{createErr: errors.New("backend down")}
	bc := &fakeBroadcaster{}
	svc, reg := newServiceForTest(store, bc)

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Doomed"}, nil, &fakeUploader{}, &fakeUploader{}, func(err error) {
		outcome <- err
	})

	err := waitForOutcome(t, outcome)
	require.Error(t, err)
	var jerr *JobError
	assert.ErrorAs(t, err, &jerr)

	job, ok := reg.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "failed to create draft record")
	assert.Empty(t, bc.published())
}

func TestStartJobUploadFails(t *testing.T) {
	store := &fakePostStore{}
	svc, reg := newServiceForTest(store, &fakeBroadcaster{})

	imageSlot := &fakeUploader{files: stagedStub(1), err: errors.New("a.jpg: connection reset")}

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Flaky"}, nil, &fakeUploader{}, imageSlot, func(err error) {
		outcome <- err
	})

	require.Error(t, waitForOutcome(t, outcome))

	job, _ := reg.Get(jobID)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "image upload failed")
	// the record was created before uploads ran and stays a draft
	assert.Len(t, store.created, 1)
	assert.Empty(t, store.updated)
}

func TestStartJobVideoUploadFails(t *testing.T) {
	store := &fakePostStore{}
	svc, reg := newServiceForTest(store, &fakeBroadcaster{})

	videoSlot := &fakeUploader{files: stagedStub(1), err: errors.New("reel.mp4: connection reset")}
	imageSlot := &fakeUploader{
		files:  stagedStub(1),
		assets: []model.MediaAsset{{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "i1"}},
	}

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Flaky reel"}, nil, videoSlot, imageSlot, func(err error) {
		outcome <- err
	})

	require.Error(t, waitForOutcome(t, outcome))

	job, _ := reg.Get(jobID)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "video upload failed")
	assert.Empty(t, store.updated)
}

func TestStartJobFinalizeFails(t *testing.T) {
	store := &fakePostStore{updateErr: errors.New("backend down")}
	bc := &fakeBroadcaster{}
	svc, reg := newServiceForTest(store, bc)

	imageSlot := &fakeUploader{
		files:  stagedStub(1),
		assets: []model.MediaAsset{{Type: model.MediaTypeImage, Provider: model.ProviderCloudinary, PublicID: "i1"}},
	}

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{Title: "Almost"}, nil, &fakeUploader{}, imageSlot, func(err error) {
		outcome <- err
	})

	require.Error(t, waitForOutcome(t, outcome))

	job, _ := reg.Get(jobID)
	assert.Equal(t, model.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "failed to finalize record")
	assert.Empty(t, bc.published())
}

func TestStartJobUntitledFallback(t *testing.T) {
	store := &fakePostStore{}
	svc, reg := newServiceForTest(store, &fakeBroadcaster{})

	outcome := make(chan error, 1)
	jobID := svc.StartJob(model.SubmitRequest{}, nil, &fakeUploader{}, &fakeUploader{}, func(err error) {
		outcome <- err
	})
	waitForOutcome(t, outcome)

	job, ok := reg.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, "Untitled", job.Title)
}

func mediaOrders(media []model.MediaAsset) []int {
	out := make([]int, len(media))
	for i, m := range media {
		out[i] = m.DisplayOrder
	}
	return out
}
