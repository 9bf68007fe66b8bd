// Package sandbox is the thin RPC client to the external code-execution
// service: CODE-answer validation is delegated to it, never run in-process.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL     string
	authHeader  string
	authToken   string
	httpClient  *http.Client
}

func NewClient(baseURL, authHeader, authToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		authHeader: authHeader,
		authToken:  authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type RunRequest struct {
	ProblemID uuid.UUID `json:"problem_id"`
	Code      string    `json:"code"`
}

type RunResponse struct {
	Status string `json:"status"` // "OK" or anything else
	Output string `json:"output"`
}

// Run submits code for problem to the sandbox and returns its verdict.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	url := fmt.Sprintf("%s/run", c.baseURL)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(c.authHeader, c.authToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result RunResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}
