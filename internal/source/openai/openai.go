package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"acm/internal/domain"
	"acm/internal/source"
)

// Client lists models from an OpenAI-compatible endpoint
type Client struct {
	httpClient *http.Client
}

// New creates a new OpenAI-compatible lister
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// ID returns the source identifier
func (c *Client) ID() string {
	return string(domain.SourceCustom)
}

// Name returns the display name
func (c *Client) Name() string {
	return domain.SourceLabel(string(domain.SourceCustom))
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels calls GET {endpoint}/models
func (c *Client) ListModels(ctx context.Context, req source.ListRequest) (models []string, err error) {
	endpoint := strings.TrimRight(strings.TrimSpace(req.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: custom endpoint is required", domain.ErrModelList)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(req.Key); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", domain.ErrModelList, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: endpoint rejected the key (status %d)", domain.ErrAuthRequired, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10*1024))
		return nil, fmt.Errorf("%w: API error (status %d): %s", domain.ErrModelList, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", domain.ErrModelList, err)
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return source.SortModels(ids), nil
}
