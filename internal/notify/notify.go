// Package notify delivers run summaries to chat platforms. Delivery is
// best-effort: failures are logged, never propagated into the run.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/klartext/klartext/internal/models"
)

// formatSummary renders a terminal run as a one-line chat message.
func formatSummary(run *models.Run) string {
	verb := "Simplification"
	if run.Kind == models.RunKindDelete {
		verb = "Deletion"
	}

	var results struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	if run.Results != "" {
		_ = json.Unmarshal([]byte(run.Results), &results)
	}

	return fmt.Sprintf("%s run %s for %s %d (%s) finished %s: %d ok, %d failed",
		verb, run.ID, run.ObjectType, run.ObjectID, run.TargetLanguage,
		run.Status, results.Succeeded, results.Failed)
}
