package models

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusDone      = "done"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Run kinds.
const (
	RunKindSimplify = "simplify"
	RunKindDelete   = "delete"
)

// Run is one bounded batch operation on one object in one target
// language. An active (running) row doubles as the per-(object, language)
// lock: at most one may exist at a time, enforced transactionally at
// creation.
type Run struct {
	ID              string `gorm:"primaryKey;size:36"`
	Kind            string `gorm:"size:16;default:simplify"`
	ObjectID        uint   `gorm:"not null;index:idx_run_object"`
	ObjectType      string `gorm:"size:16;not null;index:idx_run_object"`
	BlogID          uint   `gorm:"default:0;index:idx_run_object"`
	TargetLanguage  string `gorm:"size:16;not null;index:idx_run_object"`
	APIName         string `gorm:"size:32"`
	Status          string `gorm:"size:16;default:running;index"`
	Count           int
	Max             int
	Failed          int
	MaxItemsPerTick int
	Queued          bool   `gorm:"default:false;index"`
	UserID          uint
	Results         string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// Running reports whether the run still accepts ticks.
func (r *Run) Running() bool {
	return r.Status == RunStatusRunning
}

// RunItem statuses.
const (
	RunItemDone   = "done"
	RunItemFailed = "failed"
)

// RunItem records one fragment attempt within a run. Its existence keeps
// a failed fragment from being retried in the same run while leaving it
// pending for future runs.
type RunItem struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:36;not null;uniqueIndex:idx_run_item_key"`
	FragmentID uint   `gorm:"not null;uniqueIndex:idx_run_item_key"`
	Status     string `gorm:"size:16"`
	Error      string `gorm:"size:255"`
	CreatedAt  time.Time
}
