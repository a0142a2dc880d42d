package transfer

import "github.com/golang-jwt/jwt/v5"

// StatusSubmission is the payload for POST /api/v1/statuses.
type StatusSubmission struct {
	Status      string   `json:"status"`
	SpoilerText string   `json:"spoiler_text,omitempty"`
	MediaIDs    []string `json:"media_ids,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
}

type MastodonStatus struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

type MastodonAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type MastodonAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
}

type MastodonErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type CustomClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
