package run

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/store"
	"gorm.io/gorm"
)

// StartOpts holds parameters for starting a run.
type StartOpts struct {
	Object          store.ObjectRef
	TargetLanguage  string
	APIName         string
	MaxItemsPerTick int
	UserID          uint
	// Queued creates the run for background processing, bypassing the
	// entry-limit check that guards interactive runs.
	Queued bool
	// Kind is models.RunKindSimplify (default) or models.RunKindDelete.
	Kind string
}

// StartOutcome is the result of a start request. When the quota check
// defers the run, Run is nil and Status names the limit that was hit;
// the caller decides whether to retry with Queued set.
type StartOutcome struct {
	Run    *models.Run
	Status quota.Status
}

// Start begins a run for (object, target language). It fails with
// ErrAlreadyLocked while another run on the same pair is active; the
// active run row is the lock, acquired transactionally.
func (o *Orchestrator) Start(opts StartOpts) (*StartOutcome, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("run: target language is required")
	}
	if opts.Kind == "" {
		opts.Kind = models.RunKindSimplify
	}
	if opts.MaxItemsPerTick <= 0 {
		opts.MaxItemsPerTick = DefaultMaxItemsPerTick
	}

	pending, err := o.pendingForKind(opts.Kind, opts.Object, opts.TargetLanguage)
	if err != nil {
		return nil, err
	}

	if opts.Kind == models.RunKindSimplify && !opts.Queued {
		longest := 0
		for _, fragment := range pending {
			if n := utf8.RuneCountInString(fragment.Content); n > longest {
				longest = n
			}
		}
		if status := o.tracker.Check(opts.APIName, len(pending), longest); status != quota.OK {
			return &StartOutcome{Status: status}, nil
		}
	}

	run := &models.Run{
		ID:              uuid.NewString(),
		Kind:            opts.Kind,
		ObjectID:        opts.Object.ObjectID,
		ObjectType:      opts.Object.ObjectType,
		BlogID:          opts.Object.BlogID,
		TargetLanguage:  opts.TargetLanguage,
		APIName:         opts.APIName,
		Status:          models.RunStatusRunning,
		Max:             len(pending),
		MaxItemsPerTick: opts.MaxItemsPerTick,
		Queued:          opts.Queued,
		UserID:          opts.UserID,
	}

	err = o.db.Transaction(func(tx *gorm.DB) error {
		var active int64
		err := tx.Model(&models.Run{}).
			Where("object_id = ? AND object_type = ? AND blog_id = ? AND target_language = ? AND status = ?",
				opts.Object.ObjectID, opts.Object.ObjectType, opts.Object.BlogID,
				opts.TargetLanguage, models.RunStatusRunning).
			Count(&active).Error
		if err != nil {
			return fmt.Errorf("check lock: %w", err)
		}
		if active > 0 {
			return ErrAlreadyLocked
		}
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyLocked) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("run: start: %w", err)
	}

	if opts.Kind == models.RunKindSimplify {
		// The target-language copy materializes on the first run for
		// that language; the CMS assigns its object ID later.
		if _, err := store.EnsureCopy(o.db, opts.Object, opts.TargetLanguage, 0); err != nil {
			return nil, err
		}
	}

	// Nothing pending: the run completes immediately.
	if run.Max == 0 {
		if err := o.finalize(run, 0); err != nil {
			return nil, err
		}
	}

	return &StartOutcome{Run: run, Status: quota.OK}, nil
}

// pendingForKind returns the fragments a run of the given kind still has
// to process.
func (o *Orchestrator) pendingForKind(kind string, ref store.ObjectRef, targetLanguage string) ([]models.Fragment, error) {
	if kind == models.RunKindDelete {
		return store.LinkedFragments(o.db, ref)
	}
	return store.PendingFragments(o.db, ref, targetLanguage)
}

// finalize moves a run into its terminal state and releases the lock.
// succeeded is the number of items that completed successfully.
func (o *Orchestrator) finalize(run *models.Run, succeeded int) error {
	status := models.RunStatusDone
	if run.Max > 0 && succeeded == 0 {
		status = models.RunStatusFailed
	}
	now := time.Now()
	results := marshalResults(run, succeeded)
	err := o.db.Model(&models.Run{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":       status,
		"results":      results,
		"completed_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("run: finalize %s: %w", run.ID, err)
	}
	run.Status = status
	run.Results = results
	run.CompletedAt = &now

	if run.Kind == models.RunKindSimplify {
		// Completion clears the changed-since-last-simplification marker.
		ref := store.ObjectRef{ObjectID: run.ObjectID, ObjectType: run.ObjectType, BlogID: run.BlogID}
		_ = store.SetCopyChanged(o.db, ref, run.TargetLanguage, false)
	}
	return nil
}
