package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultHFTimeout = 60 * time.Second
	maxErrorBody     = 512
)

// hubClient sends one request to a Hugging Face hosted model and reads one field of the reply.
type hubClient struct {
	capability string
	spec       Capability
	token      string
	http       *http.Client
}

func newHubClient(capability string, spec Capability, token string, timeout time.Duration, httpClient *http.Client) hubClient {
	if timeout <= 0 {
		timeout = defaultHFTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return hubClient{capability: capability, spec: spec, token: token, http: httpClient}
}

func (c hubClient) postJSON(ctx context.Context, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, NewShapeError(c.capability, fmt.Errorf("encode request: %w", err))
	}
	return c.post(ctx, bytes.NewReader(body), "application/json")
}

func (c hubClient) postBinary(ctx context.Context, data []byte, contentType string) (gjson.Result, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.post(ctx, bytes.NewReader(data), contentType)
}

func (c hubClient) post(ctx context.Context, body io.Reader, contentType string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spec.URL(), body)
	if err != nil {
		return gjson.Result{}, NewShapeError(c.capability, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, NewTransportError(c.capability, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, NewTransportError(c.capability, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, NewStatusError(c.capability, resp.StatusCode, clip(string(raw), maxErrorBody))
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, NewShapeError(c.capability, fmt.Errorf("response is not JSON"))
	}
	field := gjson.GetBytes(raw, c.spec.ResponsePath)
	if !field.Exists() {
		return gjson.Result{}, NewShapeError(c.capability, fmt.Errorf("response has no %q", c.spec.ResponsePath))
	}
	return field, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
