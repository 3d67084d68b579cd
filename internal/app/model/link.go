package model

import "time"

// LinkTTL is how long a minted short link stays live.
const LinkTTL = 90 * 24 * time.Hour

// LinkTTLDescription is the human-readable form returned by the create API.
const LinkTTLDescription = "90 days"

// Link is the sole persisted entity of the allocation engine: one row per
// minted short code, written exactly once and never updated.
type Link struct {
	Code      string    `json:"short_code" gorm:"primaryKey;size:8"`
	URL       string    `json:"long_url" gorm:"type:text;not null"`
	Owner     string    `json:"owner,omitempty" gorm:"size:128"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

// TableName keeps the table name stable regardless of GORM pluralization rules.
func (Link) TableName() string {
	return "links"
}

// Expired reports whether the link is past its TTL at the given instant.
// The storage layer reaps expired rows asynchronously, so a row can still be
// physically present after this returns true.
func (l *Link) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
