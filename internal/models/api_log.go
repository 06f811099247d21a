package models

import "time"

// APILog records one simplification API call, success or failure. Written
// unconditionally by the provider layer; the stored request has the auth
// token redacted.
type APILog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	APIName    string `gorm:"size:32;index"`
	HTTPStatus int
	Request    string `gorm:"type:text"`
	Response   string `gorm:"type:text"`
	DurationMs int64
	Quota      int // characters counted against the provider quota, 0 if not counted
	BlogID     uint `gorm:"default:0"`
	CreatedAt  time.Time
}
