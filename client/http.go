package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 1 << 20

// Config describes one configured provider.
type Config struct {
	Kind        string        `yaml:"kind"`
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

func newHTTPClient(cfg Config) *http.Client {
	// Timeout 0 means the call may take as long as the provider needs.
	return &http.Client{Timeout: cfg.Timeout}
}

// postJSON sends payload and returns the body of a 200 response.
func postJSON(ctx context.Context, hc *http.Client, url string, payload any, header http.Header) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrSerialize, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return nil, "", &StatusError{Code: resp.StatusCode, Body: truncate(string(bytes.TrimSpace(data)), 200)}
	}
	if readErr != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrReadBody, readErr)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func bearer(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}
