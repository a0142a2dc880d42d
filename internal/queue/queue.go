package queue

import "fmt"

const (
	// TaskTypePublishPost is the asynq task type for firing a scheduled post.
	TaskTypePublishPost = "post:publish"

	// QueuePosts is the dedicated asynq queue for publish tasks.
	QueuePosts = "posts"
)

// PublishPostPayload carries only the record id. The worker re-reads the
// row at fire time, so edits made after scheduling are always honored.
type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// PostTaskID derives the deterministic task id for a record. One record,
// one task: scheduling the same id again replaces the pending task.
func PostTaskID(postID int64) string {
	return fmt.Sprintf("post:%d", postID)
}
