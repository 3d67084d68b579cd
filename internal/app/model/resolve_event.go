package model

import "time"

// ResolveEvent records a successful redirect through a short link.
type ResolveEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	LinkCode  string    `json:"link_code" gorm:"size:8;index"`
	IP        string    `json:"ip" gorm:"size:64"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ResolveStreamName     = "RESOLVES"
	ResolveStreamSubject  = "resolves.events"
	ResolveConsumerName   = "resolve-logger"
	ResolveStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
