package run

import (
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/store"
	"gorm.io/gorm"
)

// IgnoreFailed permanently skips one fragment: it drops out of pending
// queries for all future runs. The fragment itself is kept.
func (o *Orchestrator) IgnoreFailed(fragmentID uint) error {
	return store.SetIgnored(o.db, fragmentID, true)
}

// Reset clears all simplifications for (object, target language),
// cancels any active run on the pair and re-queues the object from
// scratch. This is also the recovery path for a stale lock left behind
// by a crashed run; there is no automatic lock expiry.
func (o *Orchestrator) Reset(ref store.ObjectRef, targetLanguage string) error {
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var active []models.Run
		err := tx.Where("object_id = ? AND object_type = ? AND blog_id = ? AND target_language = ? AND status = ?",
			ref.ObjectID, ref.ObjectType, ref.BlogID, targetLanguage, models.RunStatusRunning).
			Find(&active).Error
		if err != nil {
			return fmt.Errorf("load active runs: %w", err)
		}
		for _, run := range active {
			err := tx.Model(&models.Run{}).Where("id = ?", run.ID).
				Update("status", models.RunStatusCancelled).Error
			if err != nil {
				return fmt.Errorf("cancel run %s: %w", run.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("run: reset: %w", err)
	}

	if _, err := store.DeleteObjectSimplifications(o.db, ref.ObjectID, ref.ObjectType, ref.BlogID, targetLanguage); err != nil {
		return err
	}
	return nil
}

// Queued returns the runs waiting for background processing, oldest
// first. Used by the scheduler.
func (o *Orchestrator) Queued(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.Run
	err := o.db.Where("queued = ? AND status = ?", true, models.RunStatusRunning).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("run: queued: %w", err)
	}
	return runs, nil
}
