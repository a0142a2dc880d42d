package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"tootsched/internal/models"
	"tootsched/internal/repository"
	"tootsched/internal/transfer"
)

const scheduleTimeLayout = "2006-01-02T15:04"

// JobRunner is the deferred-execution facility the service registers
// timers with. Schedule replaces any pending timer for the same record;
// Cancel of a missing timer is a no-op.
type JobRunner interface {
	Schedule(ctx context.Context, postID int64, fireAt time.Time) error
	Cancel(ctx context.Context, postID int64) error
}

type PostService interface {
	Schedule(ctx context.Context, sub *transfer.PostSubmission, file *multipart.FileHeader) (int64, error)
	PostNow(ctx context.Context, sub *transfer.PostSubmission, file *multipart.FileHeader) (string, error)
	Edit(ctx context.Context, id int64, sub *transfer.PostSubmission, file *multipart.FileHeader) error
	Cancel(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.ScheduledPost, error)
	List(ctx context.Context) ([]*models.ScheduledPost, error)
	NextUp(ctx context.Context) (*transfer.NextPost, error)
	Recover(ctx context.Context) (int, error)
}

type postService struct {
	pr       repository.PostRepository
	runner   JobRunner
	media    MediaService
	mastodon MastodonService
	loc      *time.Location
	maxLen   int
}

func NewPostService(
	pr repository.PostRepository,
	runner JobRunner,
	media MediaService,
	mastodon MastodonService,
	loc *time.Location,
	maxContentLen int) PostService {
	return &postService{
		pr:       pr,
		runner:   runner,
		media:    media,
		mastodon: mastodon,
		loc:      loc,
		maxLen:   maxContentLen,
	}
}

// Schedule persists the record and registers its timer. The image file, if
// any, is on disk before the row is committed.
func (s *postService) Schedule(ctx context.Context, sub *transfer.PostSubmission, file *multipart.FileHeader) (int64, error) {
	if err := s.validateContent(sub); err != nil {
		return 0, err
	}

	scheduledTime, err := s.parseScheduleTime(sub.ScheduledTime)
	if err != nil {
		return 0, err
	}
	if !scheduledTime.After(time.Now()) {
		return 0, fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidInput)
	}

	post := models.ScheduledPost{
		Content:        sub.Content,
		ContentWarning: sub.ContentWarning,
		ImageAltText:   sub.ImageAltText,
		ScheduledTime:  scheduledTime,
	}

	if file != nil {
		path, url, err := s.media.Save(ctx, file)
		if err != nil {
			return 0, err
		}
		post.ImagePath = path
		post.ImageURL = url
	}

	id, err := s.pr.Create(ctx, &post)
	if err != nil {
		return 0, fmt.Errorf("create post record: %w", err)
	}

	if err := s.runner.Schedule(ctx, id, scheduledTime); err != nil {
		return 0, fmt.Errorf("register publish timer: %w", err)
	}

	slog.Info("post scheduled", "post_id", id, "scheduled_time", scheduledTime)
	return id, nil
}

// PostNow publishes synchronously without persisting a record.
func (s *postService) PostNow(ctx context.Context, sub *transfer.PostSubmission, file *multipart.FileHeader) (string, error) {
	if err := s.validateContent(sub); err != nil {
		return "", err
	}

	var mediaIDs []string
	var savedPath string
	if file != nil {
		path, _, err := s.media.Save(ctx, file)
		if err != nil {
			return "", err
		}
		savedPath = path
		mediaID, err := s.mastodon.UploadMedia(ctx, s.media.AbsolutePath(path), sub.ImageAltText)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	statusID, err := s.mastodon.CreateStatus(ctx, transfer.StatusSubmission{
		Status:      sub.Content,
		SpoilerText: sub.ContentWarning,
		MediaIDs:    mediaIDs,
	})
	if err != nil {
		return "", err
	}

	// No record references the file once the status is out.
	if savedPath != "" {
		if err := s.media.Remove(savedPath); err != nil {
			slog.Warn("remove published upload", "path", savedPath, "error", err)
		}
	}

	return statusID, nil
}

// Edit mutates an unposted record. The timer is only re-registered when
// the scheduled time actually changed; a content-only edit leaves the
// pending timer untouched.
func (s *postService) Edit(ctx context.Context, id int64, sub *transfer.PostSubmission, file *multipart.FileHeader) error {
	if err := s.validateContent(sub); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}
	if post.IsPosted {
		return ErrAlreadyPosted
	}

	newTime := post.ScheduledTime
	if sub.ScheduledTime != "" {
		newTime, err = s.parseScheduleTime(sub.ScheduledTime)
		if err != nil {
			return err
		}
	}
	timeChanged := !newTime.Equal(post.ScheduledTime)
	if timeChanged && !newTime.After(time.Now()) {
		return fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidInput)
	}

	post.Content = sub.Content
	post.ContentWarning = sub.ContentWarning
	post.ImageAltText = sub.ImageAltText
	post.ScheduledTime = newTime

	if file != nil {
		path, url, err := s.media.Save(ctx, file)
		if err != nil {
			return err
		}
		post.ImagePath = path
		post.ImageURL = url
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return fmt.Errorf("update post record: %w", err)
	}

	if timeChanged {
		if err := s.runner.Schedule(ctx, id, newTime); err != nil {
			return fmt.Errorf("re-register publish timer: %w", err)
		}
	}

	slog.Info("post updated", "post_id", id, "time_changed", timeChanged)
	return nil
}

// Cancel removes the timer first, then the record, so a fire racing the
// delete finds the row gone and treats it as benign.
func (s *postService) Cancel(ctx context.Context, id int64) error {
	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}
	if post.IsPosted {
		return ErrAlreadyPosted
	}

	if err := s.runner.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel publish timer: %w", err)
	}

	if err := s.pr.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove post record: %w", err)
	}

	slog.Info("post cancelled", "post_id", id)
	return nil
}

func (s *postService) Get(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *postService) List(ctx context.Context) ([]*models.ScheduledPost, error) {
	return s.pr.ListOrdered(ctx)
}

// NextUp returns the earliest unposted record still in the future, shaped
// for the display client.
func (s *postService) NextUp(ctx context.Context) (*transfer.NextPost, error) {
	post, err := s.pr.NextPending(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}

	return &transfer.NextPost{
		Content:      post.Content,
		CWText:       post.ContentWarning,
		ImagePath:    post.ImagePath,
		ImageURL:     post.ImageURL,
		ImageAltText: post.ImageAltText,
		ScheduleTime: post.ScheduledTime.In(s.loc).Format("2006-01-02 15:04:05"),
	}, nil
}

// Recover re-registers a timer for every unposted record. Past-dated
// records enqueue for immediate processing instead of being dropped, so a
// restart never silently loses a missed post. Idempotent across repeated
// restarts: registration replaces any pending timer for the same id.
func (s *postService) Recover(ctx context.Context) (int, error) {
	posts, err := s.pr.ListUnposted(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unposted records: %w", err)
	}

	count := 0
	for _, post := range posts {
		if err := s.runner.Schedule(ctx, post.ID, post.ScheduledTime); err != nil {
			slog.Error("re-register publish timer", "post_id", post.ID, "error", err)
			continue
		}
		count++
	}

	slog.Info("recovered scheduled posts", "count", count)
	return count, nil
}

func (s *postService) validateContent(sub *transfer.PostSubmission) error {
	if sub == nil {
		return fmt.Errorf("%w: submission is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(sub.Content) == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	if n := len([]rune(sub.Content)); n > s.maxLen {
		return fmt.Errorf("%w: content length %d exceeds limit %d", ErrInvalidInput, n, s.maxLen)
	}
	return nil
}

// parseScheduleTime interprets the form value in the configured timezone
// and normalizes to UTC for storage and comparison.
func (s *postService) parseScheduleTime(value string) (time.Time, error) {
	t, err := time.ParseInLocation(scheduleTimeLayout, value, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid schedule time format: %v", ErrInvalidInput, err)
	}
	return t.UTC(), nil
}
