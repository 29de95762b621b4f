package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/voxline/custodyline/dialog/contract"
)

const maxResponseSizeBytes = 2 << 20

// ClientConfig configures the HTTP lookup client.
type ClientConfig struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"30s"`
}

// Client talks to the identity-lookup collaborator over HTTP JSON. It is the
// production LookupService; tests and the memory deployment substitute fakes.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contractx.LookupService = (*Client)(nil)

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("lookup service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid lookup service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type lookupResponse struct {
	Found      bool   `json:"found"`
	StatusText string `json:"status_text"`
}

func (c *Client) Lookup(ctx context.Context, req contractx.LookupRequest) (contractx.LookupResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return contractx.LookupResult{}, fmt.Errorf("marshal lookup request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lookups", bytes.NewReader(body))
	if err != nil {
		return contractx.LookupResult{}, fmt.Errorf("build lookup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return contractx.LookupResult{}, fmt.Errorf("execute lookup request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.LookupResult{}, fmt.Errorf("read lookup response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.LookupResult{}, fmt.Errorf("lookup http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed lookupResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.LookupResult{}, fmt.Errorf("decode lookup response: %w", err)
	}

	if !parsed.Found {
		return contractx.LookupResult{Status: contractx.LookupNotFound}, nil
	}
	return contractx.LookupResult{
		Status:     contractx.LookupSuccess,
		StatusText: strings.TrimSpace(parsed.StatusText),
	}, nil
}
