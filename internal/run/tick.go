package run

import (
	"context"
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/provider"
	"github.com/klartext/klartext/internal/store"
)

// Tick processes up to MaxItemsPerTick pending fragments of the run.
// Per-fragment failures are recorded and skipped; the batch never
// aborts. Count advances for every processed fragment regardless of its
// outcome. When the last fragment is processed the run transitions to
// its terminal state and the lock is released.
func (o *Orchestrator) Tick(ctx context.Context, runID string) (*models.Run, error) {
	run, err := o.Get(runID)
	if err != nil {
		return nil, err
	}
	if !run.Running() {
		return run, nil
	}

	ref := store.ObjectRef{ObjectID: run.ObjectID, ObjectType: run.ObjectType, BlogID: run.BlogID}
	pending, err := o.pendingForKind(run.Kind, ref, run.TargetLanguage)
	if err != nil {
		return nil, err
	}

	attempted, err := o.attemptedFragments(run.ID)
	if err != nil {
		return nil, err
	}

	processed := 0
	for _, fragment := range pending {
		if processed >= run.MaxItemsPerTick {
			break
		}
		if attempted[fragment.ID] {
			continue
		}
		processed++

		item := models.RunItem{RunID: run.ID, FragmentID: fragment.ID, Status: models.RunItemDone}
		if err := o.processFragment(ctx, run, &fragment); err != nil {
			item.Status = models.RunItemFailed
			item.Error = truncate(err.Error(), 255)
			run.Failed++
		}
		if err := o.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("run: record item: %w", err)
		}
		run.Count++
	}

	err = o.db.Model(&models.Run{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"count":  run.Count,
		"failed": run.Failed,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("run: update progress: %w", err)
	}

	// Terminal when every fragment is processed. processed == 0 covers
	// fragments that disappeared mid-run (deleted or simplified by
	// another actor): nothing is left to do even though count < max.
	if run.Count >= run.Max || processed == 0 {
		if err := o.finalize(run, run.Count-run.Failed); err != nil {
			return nil, err
		}
		o.notifyCompleted(ctx, run)
	}
	return run, nil
}

// processFragment performs the unit of work for one fragment according
// to the run kind.
func (o *Orchestrator) processFragment(ctx context.Context, run *models.Run, fragment *models.Fragment) error {
	if run.Kind == models.RunKindDelete {
		return store.DeleteFragment(o.db, fragment.ID)
	}

	client, err := o.registry.Get(run.APIName)
	if err != nil {
		return err
	}
	result, err := client.Call(ctx, provider.Request{
		Text:           fragment.Content,
		SourceLanguage: fragment.SourceLanguage,
		TargetLanguage: run.TargetLanguage,
		HTML:           fragment.HTML,
	})
	if err != nil {
		return err
	}
	if result.Empty() {
		return fmt.Errorf("run: %s returned empty result", run.APIName)
	}

	_, err = store.SetSimplification(o.db, store.SetSimplificationOpts{
		FragmentID:     fragment.ID,
		TargetLanguage: run.TargetLanguage,
		Content:        result.SimplifiedText,
		APIName:        run.APIName,
		UserID:         run.UserID,
		JobID:          result.JobID,
	})
	return err
}

// attemptedFragments returns the IDs already processed in this run.
func (o *Orchestrator) attemptedFragments(runID string) (map[uint]bool, error) {
	var items []models.RunItem
	if err := o.db.Where("run_id = ?", runID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("run: load items: %w", err)
	}
	attempted := make(map[uint]bool, len(items))
	for _, item := range items {
		attempted[item.FragmentID] = true
	}
	return attempted, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
