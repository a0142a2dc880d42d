package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"tootsched/internal/repository"
	"tootsched/internal/service"
	"tootsched/internal/transfer"
)

// Worker executes publish tasks when their scheduled time arrives. One
// failing post never halts the worker or touches other pending tasks.
type Worker struct {
	pr       repository.PostRepository
	mastodon service.MastodonService
	media    service.MediaService
}

func NewWorker(pr repository.PostRepository, mastodon service.MastodonService, media service.MediaService) *Worker {
	return &Worker{pr: pr, mastodon: mastodon, media: media}
}

func (w *Worker) HandlePublishPost(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal publish payload: %v: %w", err, asynq.SkipRetry)
	}

	return w.PublishPost(ctx, payload.PostID)
}

// PublishPost re-reads the record and performs exactly one publish attempt.
// The payload is never trusted for content: edits made between scheduling
// and firing must be honored. Upload or status failures leave the record
// unposted and are not retried.
func (w *Worker) PublishPost(ctx context.Context, postID int64) error {
	post, err := w.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("fetch post %d: %w", postID, err)
	}
	if post == nil {
		// Deleted after the fire was already in flight. Benign race.
		slog.Info("post gone before publish, skipping", "post_id", postID)
		return nil
	}
	if post.IsPosted {
		slog.Info("post already published, skipping", "post_id", postID)
		return nil
	}

	var mediaIDs []string
	if post.HasImage() {
		mediaID, err := w.mastodon.UploadMedia(ctx, w.media.AbsolutePath(post.ImagePath), post.ImageAltText)
		if err != nil {
			slog.Error("media upload failed, post left unposted", "post_id", postID, "error", err)
			return nil
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	statusID, err := w.mastodon.CreateStatus(ctx, transfer.StatusSubmission{
		Status:      post.Content,
		SpoilerText: post.ContentWarning,
		MediaIDs:    mediaIDs,
	})
	if err != nil {
		slog.Error("status post failed, post left unposted", "post_id", postID, "error", err)
		return nil
	}

	if err := w.pr.MarkPosted(ctx, postID); err != nil {
		return fmt.Errorf("mark post %d as posted: %w", postID, err)
	}

	slog.Info("scheduled post published", "post_id", postID, "status_id", statusID)
	return nil
}
