// Package host adapts the host application's settings.json: it reads the
// live connection from it and writes connection fields into it.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"acm/internal/domain"
	"acm/internal/source"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Paths of the connection fields inside the host's settings.json
const (
	keySource        = "oai_settings.chat_completion_source"
	keyCustomURL     = "oai_settings.custom_url"
	keyReverseProxy  = "oai_settings.reverse_proxy"
	keyProxyPassword = "oai_settings.proxy_password"
	keyCustomModel   = "oai_settings.custom_model"
	keyCustomModelID = "oai_settings.custom_model_id"
	keyGoogleModel   = "oai_settings.google_model"
)

// Checker lists the models the host can see for a connection
type Checker interface {
	ListModels(ctx context.Context, req source.ListRequest) ([]string, error)
}

// FileHost reads and writes the host's settings.json in place, leaving
// every field it does not own untouched
type FileHost struct {
	path    string
	checker Checker

	mu sync.Mutex
}

// Option configures a FileHost
type Option func(*FileHost)

// WithChecker sets how readiness is checked. Without one the host counts as
// ready as soon as the fields are written.
func WithChecker(p Checker) Option {
	return func(h *FileHost) {
		h.checker = p
	}
}

// NewFileHost creates an adapter for the settings file at path
func NewFileHost(path string, opts ...Option) *FileHost {
	h := &FileHost{path: filepath.Clean(path)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FileHost) read() ([]byte, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte(`{}`), nil
		}
		return nil, fmt.Errorf("reading host settings: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", domain.ErrInvalidConfig, h.path)
	}
	return data, nil
}

func (h *FileHost) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("creating host settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(h.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing host settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing host settings: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing host settings: %w", err)
	}
	return nil
}

// update applies edits to the settings document under the lock
func (h *FileHost) update(edit func([]byte) ([]byte, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.read()
	if err != nil {
		return err
	}
	out, err := edit(data)
	if err != nil {
		return err
	}
	return h.write(out)
}

// ConnectionState reports the connection currently configured in the file
func (h *FileHost) ConnectionState(_ context.Context) (domain.ConnectionState, error) {
	h.mu.Lock()
	data, err := h.read()
	h.mu.Unlock()
	if err != nil {
		return domain.ConnectionState{}, err
	}

	raw := gjson.GetBytes(data, keySource).String()
	state := domain.ConnectionState{Source: raw}
	if domain.NormalizeSource(raw) == domain.SourceMakerSuite {
		state.Endpoint = gjson.GetBytes(data, keyReverseProxy).String()
		state.Model = gjson.GetBytes(data, keyGoogleModel).String()
		return state, nil
	}
	state.Endpoint = gjson.GetBytes(data, keyCustomURL).String()
	state.Model = gjson.GetBytes(data, keyCustomModel).String()
	state.SavedModel = gjson.GetBytes(data, keyCustomModelID).String()
	return state, nil
}

// Connect writes the connection fields. The host reconnects when it picks
// up the file.
func (h *FileHost) Connect(_ context.Context, req domain.ConnectRequest) error {
	return h.update(func(data []byte) ([]byte, error) {
		edits := [][2]string{{keySource, string(req.Source)}}
		if req.Source == domain.SourceMakerSuite {
			edits = append(edits, [2]string{keyReverseProxy, req.Endpoint}, [2]string{keyProxyPassword, req.ProxyPassword})
		} else {
			edits = append(edits, [2]string{keyCustomURL, req.Endpoint})
		}

		var err error
		for _, e := range edits {
			if data, err = sjson.SetBytes(data, e[0], e[1]); err != nil {
				return nil, fmt.Errorf("setting %s: %w", e[0], err)
			}
		}
		return data, nil
	})
}

// SelectModel writes the model field of source
func (h *FileHost) SelectModel(_ context.Context, src domain.Source, model string) error {
	return h.update(func(data []byte) ([]byte, error) {
		paths := []string{keyCustomModel, keyCustomModelID}
		if src == domain.SourceMakerSuite {
			paths = []string{keyGoogleModel}
		}
		var err error
		for _, p := range paths {
			if data, err = sjson.SetBytes(data, p, model); err != nil {
				return nil, fmt.Errorf("setting %s: %w", p, err)
			}
		}
		return data, nil
	})
}

// ModelsReady checks whether the host lists models for the connection in
// the file
func (h *FileHost) ModelsReady(ctx context.Context, src domain.Source) (bool, error) {
	if h.checker == nil {
		return true, nil
	}

	h.mu.Lock()
	data, err := h.read()
	h.mu.Unlock()
	if err != nil {
		return false, err
	}

	req := source.ListRequest{Source: src}
	if src == domain.SourceMakerSuite {
		req.Endpoint = gjson.GetBytes(data, keyReverseProxy).String()
		req.ProxyPassword = gjson.GetBytes(data, keyProxyPassword).String()
	} else {
		req.Endpoint = gjson.GetBytes(data, keyCustomURL).String()
	}

	models, err := h.checker.ListModels(ctx, req)
	if err != nil {
		return false, err
	}
	return len(models) > 0, nil
}
