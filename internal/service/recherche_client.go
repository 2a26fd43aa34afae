package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"herosearch/internal/metrics"
	"herosearch/internal/model"
)

// RechercheClient calls POST {base}/recherche
type RechercheClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewRechercheClient creates a client with the given timeout
func NewRechercheClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *RechercheClient {
	return &RechercheClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
	}
}

// Search sends the prompt and returns the raw records.
// A response with success=false yields no records and no error.
func (c *RechercheClient) Search(ctx context.Context, prompt string) ([]model.RawRecord, error) {
	reqBody, err := json.Marshal(model.RechercheRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/recherche", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream("error", time.Since(start))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recherche request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result model.RechercheResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return []model.RawRecord{}, nil
	}
	if result.Results == nil {
		return []model.RawRecord{}, nil
	}
	return result.Results, nil
}

// truncate cuts s to at most maxLen bytes without splitting a rune
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
