package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/byggkalk/quotation-api/internal/config"
)

const defaultRequestTimeout = 120 * time.Second

// Client calls the external analysis service over HTTP/JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates an analysis client from configuration.
// Returns nil if the analysis service is not enabled or not configured.
func NewClient(cfg *config.AnalysisConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Analysis service disabled")
		return nil, nil
	}
	if cfg.URL == "" {
		logger.Warn("Analysis service enabled but no URL configured, skipping")
		return nil, nil
	}

	timeout := defaultRequestTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	logger.Info("Initializing analysis service client",
		zap.String("url", cfg.URL),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

type analyzeRequest struct {
	Locator     string `json:"locator"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type analyzeResponse struct {
	Result
	Error string `json:"error,omitempty"`
}

// Analyze submits a document locator for analysis and waits for the
// result. A 422 response carries the collaborator's failure reason and
// is returned as *Failure; other non-2xx statuses are transport errors.
func (c *Client) Analyze(ctx context.Context, locator, filename, contentType string) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{
		Locator:     locator,
		Filename:    filename,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded analyzeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response (status %d): %w", resp.StatusCode, err)
	}

	c.logger.Info("analysis service responded",
		zap.String("locator", locator),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("elements", len(decoded.Elements)),
	)

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		reason := decoded.Error
		if reason == "" {
			reason = "analysis service rejected the document"
		}
		return nil, &Failure{Reason: reason}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	return &decoded.Result, nil
}
