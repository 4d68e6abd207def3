package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// CallbackConfig holds final-result callback configuration
type CallbackConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// CallbackClient posts the final engagement result to the evaluation
// endpoint. Failures are logged, never fatal: the session outcome is
// already recorded locally.
type CallbackClient struct {
	httpClient *http.Client
	config     CallbackConfig
	logger     *logger.Logger
}

// NewCallbackClient creates a new callback client
func NewCallbackClient(cfg CallbackConfig, log *logger.Logger) *CallbackClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CallbackClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.WithComponent("callback"),
	}
}

// Enabled reports whether the callback is configured to fire
func (c *CallbackClient) Enabled() bool {
	return c.config.Enabled && c.config.URL != ""
}

// Send posts the payload to the evaluation endpoint
func (c *CallbackClient) Send(ctx context.Context, payload models.FinalCallbackPayload) error {
	if !c.Enabled() {
		c.logger.Debug().Str("session_id", payload.SessionID).Msg("callback disabled, skipping")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.URL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("callback endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info().
		Str("session_id", payload.SessionID).
		Bool("scam_detected", payload.ScamDetected).
		Int("total_messages", payload.TotalMessagesExchanged).
		Msg("final callback delivered")
	return nil
}
