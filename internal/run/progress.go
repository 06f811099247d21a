package run

import (
	"encoding/json"
	"fmt"

	"github.com/klartext/klartext/internal/models"
)

// Progress is the polling view of one run. MarshalJSON emits the ordered
// four-element array [count, max, running, results] that existing
// polling clients expect.
type Progress struct {
	Count   int
	Max     int
	Running bool
	Results json.RawMessage
}

// MarshalJSON implements json.Marshaler with the fixed tuple shape.
func (p Progress) MarshalJSON() ([]byte, error) {
	running := 0
	if p.Running {
		running = 1
	}
	results := p.Results
	if len(results) == 0 {
		results = json.RawMessage("null")
	}
	return json.Marshal([]json.RawMessage{
		json.RawMessage(fmt.Sprintf("%d", p.Count)),
		json.RawMessage(fmt.Sprintf("%d", p.Max)),
		json.RawMessage(fmt.Sprintf("%d", running)),
		results,
	})
}

// Progress returns the polling state for a run. The results payload is
// only populated once the run has reached a terminal state.
func (o *Orchestrator) Progress(runID string) (Progress, error) {
	run, err := o.Get(runID)
	if err != nil {
		return Progress{}, err
	}
	progress := Progress{
		Count:   run.Count,
		Max:     run.Max,
		Running: run.Running(),
	}
	if !run.Running() && run.Results != "" {
		progress.Results = json.RawMessage(run.Results)
	}
	return progress, nil
}

// results is the structured payload handed to the UI when a run ends.
type results struct {
	ObjectID       uint   `json:"object_id"`
	ObjectType     string `json:"object_type"`
	TargetLanguage string `json:"target_language"`
	APIName        string `json:"api_name,omitempty"`
	Kind           string `json:"kind"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	ReviewPath     string `json:"review_path"`
}

// marshalResults builds the terminal results payload, including the
// review link the UI surfaces when polling reports completion.
func marshalResults(run *models.Run, succeeded int) string {
	payload := results{
		ObjectID:       run.ObjectID,
		ObjectType:     run.ObjectType,
		TargetLanguage: run.TargetLanguage,
		APIName:        run.APIName,
		Kind:           run.Kind,
		Succeeded:      succeeded,
		Failed:         run.Failed,
		ReviewPath: fmt.Sprintf("/api/fragments?object_id=%d&object_type=%s&target_language=%s",
			run.ObjectID, run.ObjectType, run.TargetLanguage),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}
