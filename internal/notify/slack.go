package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetpilot/fleetpilot/internal/logger"
	"github.com/fleetpilot/fleetpilot/pkg/models"
)

// SlackSink posts cycle summaries to a Slack incoming webhook.
type SlackSink struct {
	client  *http.Client
	webhook string
}

type SlackConfig struct {
	Webhook string
	Timeout time.Duration
}

func NewSlackSink(cfg SlackConfig) *SlackSink {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	return &SlackSink{
		client: &http.Client{
			Timeout: timeout,
		},
		webhook: cfg.Webhook,
	}
}

func (s *SlackSink) Send(ctx context.Context, record *models.CycleRecord) error {
	text := Summarize(record)
	if text == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack notification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	logger.WithCycle(record.CycleID).Debug("Slack notified")
	return nil
}
