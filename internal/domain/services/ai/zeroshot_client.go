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

// ZeroShotClient calls a hosted zero-shot classification endpoint
// (HuggingFace inference API wire format: labels plus parallel scores).
type ZeroShotClient struct {
	httpClient *http.Client
	logger     *logger.Logger
	config     ZeroShotConfig
}

// ZeroShotConfig holds zero-shot client configuration
type ZeroShotConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewZeroShotClient creates a new zero-shot classification client
func NewZeroShotClient(cfg ZeroShotConfig, log *logger.Logger) *ZeroShotClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ZeroShotClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.WithComponent("zeroshot-client"),
		config:     cfg,
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
	Options    zeroShotOptions    `json:"options"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type zeroShotOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// ScoreLabels classifies text against the candidate labels and returns
// a label-to-score map
func (c *ZeroShotClient) ScoreLabels(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	reqBody := zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotParameters{
			CandidateLabels: labels,
		},
		Options: zeroShotOptions{WaitForModel: true},
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
		return nil, fmt.Errorf("zero-shot request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zero-shot API error %d: %s", resp.StatusCode, string(body))
	}

	var zsResp zeroShotResponse
	if err := json.Unmarshal(body, &zsResp); err != nil {
		return nil, fmt.Errorf("failed to parse zero-shot response: %w", err)
	}
	if len(zsResp.Labels) != len(zsResp.Scores) {
		return nil, fmt.Errorf("zero-shot response mismatch: %d labels, %d scores", len(zsResp.Labels), len(zsResp.Scores))
	}

	scores := make(map[string]float64, len(zsResp.Labels))
	for i, label := range zsResp.Labels {
		scores[label] = zsResp.Scores[i]
	}
	return scores, nil
}
