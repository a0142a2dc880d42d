package models

import "time"

// ScheduledPost is the durable record of a post that should eventually be
// published. Its ID doubles as the correlation key for the deferred task
// that fires it.
type ScheduledPost struct {
	ID             int64     `db:"id" json:"id"`
	Content        string    `db:"content" json:"content"`
	ContentWarning string    `db:"content_warning" json:"content_warning"`
	ImagePath      string    `db:"image_path" json:"image_path"`
	ImageURL       string    `db:"image_url" json:"image_url"`
	ImageAltText   string    `db:"image_alt_text" json:"image_alt_text"`
	ScheduledTime  time.Time `db:"scheduled_time" json:"scheduled_time"`
	IsPosted       bool      `db:"is_posted" json:"is_posted"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasImage reports whether the post carries a media attachment.
func (p *ScheduledPost) HasImage() bool {
	return p.ImagePath != ""
}
