package provider

import (
	"log"
	"time"
	"unicode/utf8"

	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/store"
	"gorm.io/gorm"
)

// redacted replaces the auth token in persisted request metadata.
const redacted = "[redacted]"

// auditor writes the mandatory per-call audit entry and the quota
// bookkeeping shared by all providers.
type auditor struct {
	db      *gorm.DB
	tracker *quota.Tracker
	apiName string
	blogID  uint
}

// append persists one audit entry. Best-effort: a failing audit write is
// logged, not propagated, so it cannot mask the call outcome.
func (a *auditor) append(status int, request, response string, duration time.Duration, quotaChars int) {
	if a.db == nil {
		return
	}
	entry := &models.APILog{
		APIName:    a.apiName,
		HTTPStatus: status,
		Request:    request,
		Response:   response,
		DurationMs: duration.Milliseconds(),
		Quota:      quotaChars,
		BlogID:     a.blogID,
	}
	if err := store.AppendAPILog(a.db, entry); err != nil {
		log.Printf("provider: %s: audit log write failed: %v", a.apiName, err)
	}
}

// checkQuota reports whether sending text would exceed the provider's
// hard character ceiling.
func (a *auditor) checkQuota(text string) error {
	if a.tracker == nil {
		return nil
	}
	return a.tracker.CheckCall(a.apiName, utf8.RuneCountInString(text))
}

// recordUsage counts the input text against the provider quota. countable
// is false when the response carried a no-count marker or the call was a
// test.
func (a *auditor) recordUsage(text string, countable bool) int {
	if !countable || a.tracker == nil {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	if err := a.tracker.Record(a.apiName, chars); err != nil {
		log.Printf("provider: %s: usage record failed: %v", a.apiName, err)
	}
	return chars
}
