// Package scheduler drains queued runs in the background. Objects too
// large for an interactive run are started with Queued set and picked up
// here on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/run"
	"github.com/klartext/klartext/internal/store"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// batchSize bounds how many queued runs one pass touches.
const batchSize = 10

// Scheduler ticks queued runs to completion outside the request path.
type Scheduler struct {
	db   *gorm.DB
	orch *run.Orchestrator
	cfg  config.SchedulerConfig
	cron *cron.Cron
}

// New creates a Scheduler.
func New(db *gorm.DB, orch *run.Orchestrator, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		db:   db,
		orch: orch,
		cfg:  cfg,
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the cron entry and begins background processing. A
// disabled scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.ProcessQueued(ctx); err != nil {
			log.Printf("scheduler: process queued: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ProcessQueued drives one batch of queued runs to completion. Runs on
// objects flagged prevent-automatic are skipped and stay queued for an
// explicit user action.
func (s *Scheduler) ProcessQueued(ctx context.Context) error {
	queued, err := s.orch.Queued(batchSize)
	if err != nil {
		return err
	}
	for _, queuedRun := range queued {
		ref := store.ObjectRef{ObjectID: queuedRun.ObjectID, ObjectType: queuedRun.ObjectType, BlogID: queuedRun.BlogID}
		object, err := store.GetObject(s.db, ref)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if object != nil && object.PreventAutomatic {
			continue
		}
		if err := s.drain(ctx, queuedRun.ID); err != nil {
			log.Printf("scheduler: run %s: %v", queuedRun.ID, err)
		}
	}
	return nil
}

// drain ticks one run until it leaves the running state or the context
// is cancelled.
func (s *Scheduler) drain(ctx context.Context, runID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err := s.orch.Tick(ctx, runID)
		if err != nil {
			return err
		}
		if !current.Running() {
			return nil
		}
	}
}
