package notify

import (
	"context"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// LogSink writes cycle summaries to the structured log. It is the
// fallback sink when no webhook is configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Send(_ context.Context, record *models.CycleRecord) error {
	text := Summarize(record)
	if text == "" {
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"cycle_id":    record.CycleID,
		"resource_id": record.ResourceID,
	}).Info(text)
	return nil
}
