package transfer

// PostSubmission carries the parsed form fields of a schedule or edit
// request. ScheduledTime is the raw "2006-01-02T15:04" form value; empty
// means post immediately.
type PostSubmission struct {
	Content        string
	ContentWarning string
	ImageAltText   string
	ScheduledTime  string
}

// NextPost is the payload of the next-post endpoint, consumed by the
// e-paper display client. ScheduleTime is formatted "2006-01-02 15:04:05".
type NextPost struct {
	Content      string `json:"content"`
	CWText       string `json:"cw_text"`
	ImagePath    string `json:"image_path"`
	ImageURL     string `json:"image_url,omitempty"`
	ImageAltText string `json:"image_alt_text"`
	ScheduleTime string `json:"schedule_time"`
}
