package tavern

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"acm/internal/domain"
	"acm/internal/source"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const statusPath = "/api/backends/chat-completions/status"

const defaultTimeout = 30 * time.Second

// Client lists models through the host's chat-completions status endpoint,
// letting the host use the keys it holds in its own vault
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.Mutex
	token string
}

// New creates a lister for the host at baseURL. It works on a copy of
// httpClient with a cookie jar attached, which the host's CSRF protection
// needs; a nil httpClient gets a client with a 30s timeout.
func New(httpClient *http.Client, baseURL string) *Client {
	hc := http.Client{Timeout: defaultTimeout}
	if httpClient != nil {
		hc = *httpClient
	}
	if hc.Jar == nil {
		jar, _ := cookiejar.New(nil)
		hc.Jar = jar
	}
	return &Client{
		httpClient: &hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ID returns the lister identifier
func (c *Client) ID() string {
	return "tavern"
}

// Name returns the display name
func (c *Client) Name() string {
	return "Host status endpoint"
}

// ListModels posts the connection fields to the host and returns the model
// ids it reports
func (c *Client) ListModels(ctx context.Context, req source.ListRequest) ([]string, error) {
	payload, err := statusPayload(req)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, statusPath, payload)
	if err != nil {
		return nil, err
	}

	if e := gjson.GetBytes(body, "error"); e.Exists() && e.Type != gjson.False && e.Type != gjson.Null {
		return nil, fmt.Errorf("%w: host could not reach the provider, check the URL and key", domain.ErrModelList)
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: host returned no model list", domain.ErrModelList)
	}

	var ids []string
	data.ForEach(func(_, m gjson.Result) bool {
		ids = append(ids, m.Get("id").String())
		return true
	})
	return source.SortModels(ids), nil
}

func statusPayload(req source.ListRequest) ([]byte, error) {
	src := domain.NormalizeSource(string(req.Source))
	edits := [][2]string{
		{"chat_completion_source", string(src)},
		{"reverse_proxy", ""},
		{"proxy_password", ""},
	}
	if src == domain.SourceCustom {
		edits = append(edits, [2]string{"custom_url", strings.TrimSpace(req.Endpoint)})
	} else {
		edits = append(edits,
			[2]string{"reverse_proxy", strings.TrimSpace(req.Endpoint)},
			[2]string{"proxy_password", strings.TrimSpace(req.ProxyPassword)},
		)
	}

	payload := []byte(`{}`)
	var err error
	for _, e := range edits {
		if payload, err = sjson.SetBytes(payload, e[0], e[1]); err != nil {
			return nil, fmt.Errorf("setting %s: %w", e[0], err)
		}
	}
	return payload, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (body []byte, err error) {
	token, err := c.csrfToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", domain.ErrModelList, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.resetToken()
		return nil, fmt.Errorf("%w: host refused the request (status %d)", domain.ErrAuthRequired, resp.StatusCode)
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrModelList, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrModelList, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: host returned invalid JSON", domain.ErrModelList)
	}
	return body, nil
}

// csrfToken fetches and caches the host's CSRF token. Hosts with CSRF
// protection disabled answer 404, which yields no token.
func (c *Client) csrfToken(ctx context.Context) (token string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/csrf-token", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching CSRF token: %w", domain.ErrModelList, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetching CSRF token: HTTP %d", domain.ErrModelList, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("reading CSRF token: %w", err)
	}
	c.token = gjson.GetBytes(body, "token").String()
	return c.token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
