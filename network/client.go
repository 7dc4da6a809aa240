package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
)

// httpClient is the shared REST transport for the chain APIs. It handles
// request construction, status checks and JSON decoding; the TBC and BTC
// clients build their endpoints on top of it.
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// do sends the request and returns the body of a 2xx response. Non-2xx
// responses return ErrRequestFailed carrying the server's message, so the
// caller can classify it.
func (c *httpClient) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("network: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrInvalidResponse, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s %s", ErrTxNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Chain.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("api error")
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out interface{}) error {
	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, path, err)
	}
	return nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrInvalidResponse, path, err)
	}
	return nil
}

// errorMessage extracts a human message from an error body, which may be
// plain text or {"error": "..."} / {"error": {"message": "..."}} / {"message": "..."}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
