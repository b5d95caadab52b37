package storage

import (
	"fmt"
	"os"

	"github.com/xhhuango/json"

	"github.com/qodelabs/chaingreeks/models"
)

// WriteSummary persists the batch summary as a JSON artifact next to the
// enriched output.
func WriteSummary(path string, summary *models.BatchSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing summary to %s: %w", path, err)
	}
	return nil
}
