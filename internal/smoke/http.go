package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiError is the error body of the essay API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusError reports an unexpected status.
type statusError struct {
	Method, Path string
	Status       int
	Body         apiError
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body.Message)
}

// httpClient wraps http.Client with the API base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{Method: method, Path: path, Status: resp.StatusCode}
		_ = json.Unmarshal(data, &se.Body)
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

type sessionResponse struct {
	Active   bool   `json:"active"`
	Identity string `json:"identity"`
}

type submitResponse struct {
	Record struct {
		ID    string `json:"id"`
		Score struct {
			Domain1Score float64 `json:"domain1_score"`
		} `json:"score"`
	} `json:"record"`
}

type listResponse struct {
	Count int `json:"count"`
}

type profileResponse struct {
	Summary struct {
		Count        int     `json:"count"`
		AverageScore float64 `json:"average_score"`
	} `json:"summary"`
	AverageDisplay string `json:"average_display"`
}
