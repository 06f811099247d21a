package store

import (
	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
)

// AppendAPILog persists one audit log entry. The provider layer calls
// this on every API call, success or failure.
func AppendAPILog(db *gorm.DB, entry *models.APILog) error {
	if err := db.Create(entry).Error; err != nil {
		return storageErr("append api log", err)
	}
	return nil
}

// LogFilter selects audit log entries.
type LogFilter struct {
	APIName string
	Limit   int // 0 = default 100
}

// APILogs returns audit log entries, newest first.
func APILogs(db *gorm.DB, filter LogFilter) ([]models.APILog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q := db.Model(&models.APILog{}).Order("created_at DESC, id DESC").Limit(limit)
	if filter.APIName != "" {
		q = q.Where("api_name = ?", filter.APIName)
	}
	var entries []models.APILog
	if err := q.Find(&entries).Error; err != nil {
		return nil, storageErr("api logs", err)
	}
	return entries, nil
}
