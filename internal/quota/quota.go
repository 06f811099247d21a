// Package quota tracks per-provider character usage against hard limits.
package quota

import (
	"errors"
	"fmt"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQuotaExceeded signals that a call would push a provider past its
// hard character ceiling. Hard stop for that provider until an
// administrative reset.
var ErrQuotaExceeded = errors.New("quota: character limit exceeded")

// Status is the result of a pre-run capacity check.
type Status int

const (
	// OK means the run fits interactive processing.
	OK Status = iota
	// AboveEntryLimit means the object has too many pending fragments
	// for an interactive run; callers should queue it for background
	// processing instead.
	AboveEntryLimit
	// AboveTextLimit means a single fragment exceeds the provider's
	// maximum request size.
	AboveTextLimit
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case AboveEntryLimit:
		return "above_entry_limit"
	case AboveTextLimit:
		return "above_text_limit"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Usage reports spent characters against the configured limit for one
// provider. Limit 0 means unlimited.
type Usage struct {
	Spent int64
	Limit int64
}

// Tracker is the per-provider usage counter. Counters are persisted in
// the api_usages table and only ever increase during normal operation.
type Tracker struct {
	db     *gorm.DB
	limits map[string]config.APIConfig
}

// NewTracker builds a tracker over the configured providers.
func NewTracker(db *gorm.DB, cfg *config.Config) *Tracker {
	limits := make(map[string]config.APIConfig, len(cfg.APIs))
	for name, api := range cfg.APIs {
		limits[name] = api
	}
	return &Tracker{db: db, limits: limits}
}

// Record adds charCount characters to the provider's counter.
func (t *Tracker) Record(apiName string, charCount int) error {
	if charCount <= 0 {
		return nil
	}
	usage := models.APIUsage{APIName: apiName, Spent: int64(charCount)}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "api_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"spent": gorm.Expr("spent + ?", charCount),
		}),
	}).Create(&usage).Error
	if err != nil {
		return fmt.Errorf("quota: record usage for %s: %w", apiName, err)
	}
	return nil
}

// Usage returns the provider's spent characters and configured limit.
func (t *Tracker) Usage(apiName string) (Usage, error) {
	var row models.APIUsage
	err := t.db.Where("api_name = ?", apiName).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Usage{}, fmt.Errorf("quota: usage for %s: %w", apiName, err)
	}
	return Usage{Spent: row.Spent, Limit: t.limits[apiName].QuotaLimit}, nil
}

// CheckCall reports whether sending charCount more characters would
// exceed the provider's hard ceiling.
func (t *Tracker) CheckCall(apiName string, charCount int) error {
	limit := t.limits[apiName].QuotaLimit
	if limit <= 0 {
		return nil
	}
	usage, err := t.Usage(apiName)
	if err != nil {
		return err
	}
	if usage.Spent+int64(charCount) > limit {
		return fmt.Errorf("%w: %s spent %d of %d", ErrQuotaExceeded, apiName, usage.Spent, limit)
	}
	return nil
}

// Check gates a run before it starts: entryCount is the number of pending
// fragments, maxTextLen the length of the largest one.
func (t *Tracker) Check(apiName string, entryCount, maxTextLen int) Status {
	api := t.limits[apiName]
	if api.TextLimit > 0 && maxTextLen > api.TextLimit {
		return AboveTextLimit
	}
	if api.EntryLimit > 0 && entryCount > api.EntryLimit {
		return AboveEntryLimit
	}
	return OK
}

// Reset zeroes the provider's counter. Administrative action only.
func (t *Tracker) Reset(apiName string) error {
	err := t.db.Model(&models.APIUsage{}).
		Where("api_name = ?", apiName).
		Update("spent", 0).Error
	if err != nil {
		return fmt.Errorf("quota: reset %s: %w", apiName, err)
	}
	return nil
}
