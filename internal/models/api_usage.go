package models

import "time"

// APIUsage is the cumulative character counter for one provider. It only
// ever increases during normal operation; reset is an explicit
// administrative action.
type APIUsage struct {
	APIName   string `gorm:"primaryKey;size:32"`
	Spent     int64
	UpdatedAt time.Time
}
