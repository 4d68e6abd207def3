package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scambait-lab/pkg/logger"
)

// NERClient calls a hosted token-classification endpoint
type NERClient struct {
	httpClient *http.Client
	logger     *logger.Logger
	config     NERConfig
}

// NERConfig holds NER client configuration
type NERConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewNERClient creates a new named-entity recognition client
func NewNERClient(cfg NERConfig, log *logger.Logger) *NERClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &NERClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.WithComponent("ner-client"),
		config:     cfg,
	}
}

// RecognizeEntities runs NER over the text and returns the detected spans
func (c *NERClient) RecognizeEntities(ctx context.Context, text string) ([]NEREntity, error) {
	reqBody := map[string]interface{}{
		"inputs": text,
		"parameters": map[string]string{
			"aggregation_strategy": "simple",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.APIURL
	if c.config.Model != "" {
		url = fmt.Sprintf("%s/%s", c.config.APIURL, c.config.Model)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NER request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NER API error %d: %s", resp.StatusCode, string(body))
	}

	var entities []NEREntity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("failed to parse NER response: %w", err)
	}

	return entities, nil
}
