package models

import "time"

// ContentUnit is one segment of a thread: text plus an optional blob
// locator pointing at an uploaded image. The JSON field names match what
// the composer frontend sends.
type ContentUnit struct {
	Text     string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Thread struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	Content       []ContentUnit `db:"content" json:"content"`
	ScheduledTime *time.Time    `db:"scheduled_time" json:"scheduled_time"` // nil means post immediately
	IsPosted      bool          `db:"is_posted" json:"is_posted"`
	AccessToken   string        `db:"access_token" json:"-"` // AES-GCM encrypted at rest
	AccessSecret  string        `db:"access_secret" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// MaxUnitLength bounds the text of a single content unit.
const MaxUnitLength = 280
