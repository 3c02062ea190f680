package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookConfig points at the sheet-side endpoint handling row removal.
type WebhookConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// WebhookRemover calls the configured sheet webhook to remove a row. The
// config function is consulted per call so webhook rotation through the
// hot-reloaded sheet config applies without a restart.
type WebhookRemover struct {
	config func() WebhookConfig
	client *http.Client
	log    *zap.Logger
}

func NewWebhookRemover(config func() WebhookConfig, log *zap.Logger) *WebhookRemover {
	return &WebhookRemover{
		config: config,
		client: &http.Client{},
		log:    log.Named("sheetsync.webhook"),
	}
}

type removeRowPayload struct {
	Action   string `json:"action"`
	RecordID string `json:"recordId"`
}

func (w *WebhookRemover) RemoveRow(ctx context.Context, recordID string) error {
	cfg := w.config()
	if cfg.URL == "" {
		return fmt.Errorf("sheet webhook: no url configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(removeRowPayload{Action: "delete_row", RecordID: recordID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("X-Sheet-Token", cfg.Token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheet webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.log.Warn("sheet row removal rejected",
			zap.String("record_id", recordID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("sheet webhook: status %d", resp.StatusCode)
	}
	return nil
}
