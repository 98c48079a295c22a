package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Preloader warms the tutoring model on a llama.cpp-style server before the
// first turn arrives, so users don't pay the model load time mid-chat.
type Preloader struct {
	baseURL string
	client  *http.Client

	// pollInterval and pollTimeout bound the wait for the asynchronous load
	// to finish. Zero values fall back to one second and thirty seconds.
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewPreloader creates a preloader for the inference server at baseURL.
func NewPreloader(baseURL string) *Preloader {
	return &Preloader{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

type modelState struct {
	ID      string `json:"id"`
	InCache bool   `json:"in_cache"`
	Status  struct {
		Failed   *bool `json:"failed,omitempty"`
		ExitCode *int  `json:"exit_code,omitempty"`
	} `json:"status"`
}

// Warm ensures model is loaded and cached, requesting a load only when the
// server doesn't already have it. The load endpoint acknowledges immediately
// while loading continues asynchronously, so Warm polls until the model is
// cached, the load fails, or the timeout elapses.
func (p *Preloader) Warm(ctx context.Context, model string) error {
	state, err := p.lookup(ctx, model)
	if err == nil && state != nil && state.InCache {
		return nil
	}
	// A failed status check may be transient; try loading anyway.

	if err := p.requestLoad(ctx, model); err != nil {
		return err
	}

	interval := p.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := p.pollTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to warm model %s: %w", model, ctx.Err())
		case <-ticker.C:
		}

		state, err := p.lookup(ctx, model)
		if err != nil || state == nil {
			continue
		}
		if state.InCache {
			return nil
		}
		if state.Status.Failed != nil && *state.Status.Failed {
			exitCode := 0
			if state.Status.ExitCode != nil {
				exitCode = *state.Status.ExitCode
			}
			return fmt.Errorf("model %s failed to load with exit code %d", model, exitCode)
		}
	}
	return fmt.Errorf("model %s did not load within %s", model, timeout)
}

// lookup fetches the server's model list and returns the entry for model,
// or nil when the server doesn't know it.
func (p *Preloader) lookup(ctx context.Context, model string) (*modelState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create models request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var listing struct {
		Data []modelState `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	for i := range listing.Data {
		if listing.Data[i].ID == model {
			return &listing.Data[i], nil
		}
	}
	return nil, nil
}

// requestLoad asks the server to start loading model.
func (p *Preloader) requestLoad(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]string{"model": model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/models/load", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var loadResp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !loadResp.Success {
		return fmt.Errorf("model load failed: %s", loadResp.Error)
	}
	return nil
}
