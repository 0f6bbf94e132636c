package makersuite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"acm/internal/domain"
	"acm/internal/source"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	pageSize       = 1000
	maxPages       = 10
)

// Client lists Gemini models from Google AI Studio or a reverse proxy
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new Google AI Studio lister
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
}

// ID returns the source identifier
func (c *Client) ID() string {
	return string(domain.SourceMakerSuite)
}

// Name returns the display name
func (c *Client) Name() string {
	return domain.SourceLabel(string(domain.SourceMakerSuite))
}

type modelPage struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

// ListModels calls GET /v1beta/models, following pagination. With a
// reverse proxy set, the request goes to the proxy's origin and the proxy
// password is sent as the key.
func (c *Client) ListModels(ctx context.Context, req source.ListRequest) ([]string, error) {
	base, key, err := c.target(req)
	if err != nil {
		return nil, err
	}
	if key == "" && strings.TrimSpace(req.Endpoint) == "" {
		return nil, fmt.Errorf("%w: Google AI Studio key required", domain.ErrAuthRequired)
	}

	var ids []string
	token := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		if key != "" {
			params.Set("key", key)
		}
		params.Set("pageSize", fmt.Sprintf("%d", pageSize))
		if token != "" {
			params.Set("pageToken", token)
		}

		var resp modelPage
		if err := c.doRequest(ctx, base+"/v1beta/models?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, m := range resp.Models {
			if len(m.SupportedGenerationMethods) > 0 && !slices.Contains(m.SupportedGenerationMethods, "generateContent") {
				continue
			}
			ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return source.SortModels(ids), nil
}

func (c *Client) target(req source.ListRequest) (string, string, error) {
	proxy := strings.TrimSpace(req.Endpoint)
	if proxy == "" {
		return strings.TrimRight(c.baseURL, "/"), strings.TrimSpace(req.Key), nil
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("%w: invalid reverse proxy %q", domain.ErrModelList, proxy)
	}
	return u.Scheme + "://" + u.Host, strings.TrimSpace(req.ProxyPassword), nil
}

// doRequest performs a GET and decodes the JSON response
func (c *Client) doRequest(ctx context.Context, reqURL string, result any) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the key; report the failure without it
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return fmt.Errorf("%w: executing request: %w", domain.ErrModelList, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: Google AI Studio rejected the key (status %d)", domain.ErrAuthRequired, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest:
		// AI Studio answers an invalid key with 400 API_KEY_INVALID
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10*1024))
		if strings.Contains(string(body), "API_KEY_INVALID") {
			return fmt.Errorf("%w: Google AI Studio rejected the key", domain.ErrAuthRequired)
		}
		return fmt.Errorf("%w: API error (status %d): %s", domain.ErrModelList, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 10*1024))
		return fmt.Errorf("%w: API error (status %d): %s", domain.ErrModelList, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decoding response: %w", domain.ErrModelList, err)
	}
	return nil
}
