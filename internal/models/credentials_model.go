package models

import "time"

// Credentials holds the Mastodon account the process posts as. The access
// token is stored AES-GCM encrypted; only the account service ever sees the
// plaintext.
type Credentials struct {
	ID             int64     `db:"id"`
	InstanceURL    string    `db:"instance_url"`
	AccessTokenEnc string    `db:"access_token_enc"`
	UpdatedAt      time.Time `db:"updated_at"`
}
