// Package run drives an object's fragments through a simplification
// provider in bounded ticks, one run per (object, target language).
package run

import (
	"context"
	"errors"

	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/provider"
	"github.com/klartext/klartext/internal/quota"
	"gorm.io/gorm"
)

// ErrAlreadyLocked means another run is active for the same (object,
// target language). The caller must wait for it to finish or reset it.
var ErrAlreadyLocked = errors.New("run: object is locked for this language")

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run: not found")

// DefaultMaxItemsPerTick bounds one tick so it fits inside an external
// request timeout.
const DefaultMaxItemsPerTick = 5

// Notifier receives terminal-state run summaries. Implementations must
// be best-effort; the orchestrator ignores their errors.
type Notifier interface {
	RunCompleted(ctx context.Context, run *models.Run)
}

// Orchestrator owns run lifecycle: lock acquisition, ticking, recovery.
type Orchestrator struct {
	db        *gorm.DB
	registry  *provider.Registry
	tracker   *quota.Tracker
	notifiers []Notifier
}

// New creates an Orchestrator.
func New(db *gorm.DB, registry *provider.Registry, tracker *quota.Tracker) *Orchestrator {
	return &Orchestrator{db: db, registry: registry, tracker: tracker}
}

// AddNotifier registers a terminal-state notifier.
func (o *Orchestrator) AddNotifier(n Notifier) {
	o.notifiers = append(o.notifiers, n)
}

// Get retrieves a run by ID.
func (o *Orchestrator) Get(runID string) (*models.Run, error) {
	var run models.Run
	if err := o.db.Where("id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// notifyCompleted fans a terminal run out to all notifiers.
func (o *Orchestrator) notifyCompleted(ctx context.Context, run *models.Run) {
	for _, n := range o.notifiers {
		n.RunCompleted(ctx, run)
	}
}
