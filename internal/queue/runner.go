package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Runner registers one-shot publish tasks against asynq. Redis holds the
// pending timers, but it is a derived cache: the posts table stays the
// source of truth and the full timer set is rebuilt from it on startup.
type Runner struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewRunner(client *asynq.Client, inspector *asynq.Inspector) *Runner {
	return &Runner{client: client, inspector: inspector}
}

// Schedule registers the publish task for postID at fireAt, replacing any
// pending task for the same record. A fireAt in the past enqueues for
// immediate processing (restart catch-up).
func (r *Runner) Schedule(ctx context.Context, postID int64, fireAt time.Time) error {
	r.deletePending(postID)

	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	_, err = r.client.EnqueueContext(ctx, task,
		asynq.TaskID(PostTaskID(postID)),
		asynq.Queue(QueuePosts),
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(0),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// The delete raced with a fire that is already running. The
			// handler re-reads the row, so the registration is still live.
			slog.Info("publish task already registered", "post_id", postID)
			return nil
		}
		return fmt.Errorf("enqueue publish task: %w", err)
	}

	slog.Info("publish task scheduled", "post_id", postID, "fire_at", fireAt.UTC())
	return nil
}

// Cancel removes the pending task for postID. A missing task is not an
// error: the record may never have been scheduled, or the task already
// fired. Double-cancel is safe.
func (r *Runner) Cancel(ctx context.Context, postID int64) error {
	r.deletePending(postID)
	return nil
}

func (r *Runner) deletePending(postID int64) {
	err := r.inspector.DeleteTask(QueuePosts, PostTaskID(postID))
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		// Active tasks cannot be deleted; the fire handler re-reads the
		// row and handles a deleted or rescheduled record on its own.
		slog.Warn("delete pending publish task", "post_id", postID, "error", err)
	}
}
