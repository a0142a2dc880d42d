package queue

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tootsched/internal/models"
	"tootsched/internal/transfer"
)

type postRepoStub struct {
	posts      map[int64]*models.ScheduledPost
	marked     []int64
	getErr     error
	markErr    error
	imagePaths []string
}

func (s *postRepoStub) Create(ctx context.Context, post *models.ScheduledPost) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *postRepoStub) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.posts[id], nil
}

func (s *postRepoStub) Update(ctx context.Context, post *models.ScheduledPost) error { return nil }
func (s *postRepoStub) Remove(ctx context.Context, id int64) error                   { return nil }

func (s *postRepoStub) MarkPosted(ctx context.Context, id int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	if post, ok := s.posts[id]; ok {
		post.IsPosted = true
	}
	return nil
}

func (s *postRepoStub) ListUnposted(ctx context.Context) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *postRepoStub) ListDue(ctx context.Context, before time.Time) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *postRepoStub) ListOrdered(ctx context.Context) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *postRepoStub) NextPending(ctx context.Context, after time.Time) (*models.ScheduledPost, error) {
	return nil, nil
}

func (s *postRepoStub) ListImagePaths(ctx context.Context) ([]string, error) {
	return s.imagePaths, nil
}

type mastodonStub struct {
	uploaded  []string
	statuses  []transfer.StatusSubmission
	uploadErr error
	statusErr error
}

func (m *mastodonStub) UploadMedia(ctx context.Context, path, altText string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploaded = append(m.uploaded, path)
	return "media-9", nil
}

func (m *mastodonStub) CreateStatus(ctx context.Context, sub transfer.StatusSubmission) (string, error) {
	if m.statusErr != nil {
		return "", m.statusErr
	}
	m.statuses = append(m.statuses, sub)
	return "status-9", nil
}

func (m *mastodonStub) VerifyCredentials(ctx context.Context) (*transfer.MastodonAccount, error) {
	return nil, nil
}

// fixedMedia resolves relative paths against a fixed uploads root.
type fixedMedia struct{}

func (fixedMedia) Save(ctx context.Context, file *multipart.FileHeader) (string, string, error) {
	return "", "", errors.New("not implemented")
}

func (fixedMedia) AbsolutePath(rel string) string { return "/uploads/" + rel }

func (fixedMedia) Remove(rel string) error { return nil }

func publishTask(t *testing.T, postID int64) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	require.NoError(t, err)
	return asynq.NewTask(TaskTypePublishPost, payload)
}

func TestPublishHappyPath(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{
		42: {ID: 42, Content: "Hello world", ScheduledTime: time.Now().Add(-time.Second)},
	}}
	mastodon := &mastodonStub{}
	worker := NewWorker(repo, mastodon, nil)

	err := worker.HandlePublishPost(context.Background(), publishTask(t, 42))
	require.NoError(t, err)

	require.Len(t, mastodon.statuses, 1)
	assert.Equal(t, "Hello world", mastodon.statuses[0].Status)
	assert.Empty(t, mastodon.statuses[0].MediaIDs)
	assert.Equal(t, []int64{42}, repo.marked)
	assert.True(t, repo.posts[42].IsPosted)
}

func TestPublishDeletedRecordIsBenign(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{}}
	mastodon := &mastodonStub{}
	worker := NewWorker(repo, mastodon, nil)

	err := worker.PublishPost(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, mastodon.statuses)
	assert.Empty(t, repo.marked)
}

func TestPublishAlreadyPostedSkips(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{
		5: {ID: 5, Content: "seen it", IsPosted: true},
	}}
	mastodon := &mastodonStub{}
	worker := NewWorker(repo, mastodon, nil)

	err := worker.PublishPost(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, mastodon.statuses)
	assert.Empty(t, repo.marked)
}

func TestPublishUploadFailureLeavesUnposted(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{
		9: {ID: 9, Content: "with image", ImagePath: "123_cat.png"},
	}}
	mastodon := &mastodonStub{uploadErr: errors.New("remote rejected media")}
	worker := NewWorker(repo, mastodon, fixedMedia{})

	err := worker.PublishPost(context.Background(), 9)
	require.NoError(t, err, "a failed publish must not crash the worker")

	assert.Empty(t, mastodon.statuses, "create_post must not run after a failed upload")
	assert.Empty(t, repo.marked)
	assert.False(t, repo.posts[9].IsPosted)
}

func TestPublishStatusFailureLeavesUnposted(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{
		10: {ID: 10, Content: "flaky network"},
	}}
	mastodon := &mastodonStub{statusErr: errors.New("timeout")}
	worker := NewWorker(repo, mastodon, nil)

	err := worker.PublishPost(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, repo.marked)
}

func TestPublishWithImage(t *testing.T) {
	repo := &postRepoStub{posts: map[int64]*models.ScheduledPost{
		11: {ID: 11, Content: "look at this", ImagePath: "123_cat.png", ImageAltText: "a cat"},
	}}
	mastodon := &mastodonStub{}
	worker := NewWorker(repo, mastodon, fixedMedia{})

	err := worker.PublishPost(context.Background(), 11)
	require.NoError(t, err)

	require.Len(t, mastodon.uploaded, 1)
	require.Len(t, mastodon.statuses, 1)
	assert.Equal(t, []string{"media-9"}, mastodon.statuses[0].MediaIDs)
	assert.Equal(t, []int64{11}, repo.marked)
}

func TestPublishBadPayloadSkipsRetry(t *testing.T) {
	worker := NewWorker(&postRepoStub{}, &mastodonStub{}, nil)

	err := worker.HandlePublishPost(context.Background(), asynq.NewTask(TaskTypePublishPost, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
