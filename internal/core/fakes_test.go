package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"acm/internal/domain"
	"acm/internal/source"
	"acm/internal/storage/config"
)

// memStore keeps the settings root in memory
type memStore struct {
	mu       sync.Mutex
	doc      *config.SettingsDocument
	persists int
	flushes  int
}

func newMemStore(doc *config.SettingsDocument) *memStore {
	if doc == nil {
		doc = &config.SettingsDocument{}
	}
	return &memStore{doc: doc}
}

func (s *memStore) Load() (*config.SettingsDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, nil
}

func (s *memStore) RequestPersist(settings *domain.Settings) {
	doc := config.EncodeSettings(settings)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.persists++
}

func (s *memStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memStore) persistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persists
}

// memVault is an in-memory vault; masked hides values from State and,
// with unreadable, from Find as well
type memVault struct {
	masked     bool
	unreadable bool
	secrets    map[string][]domain.SecretEntry
	writes     int
	finds      int
	nextID     int
	stateErr   error
}

func newMemVault() *memVault {
	return &memVault{secrets: map[string][]domain.SecretEntry{}}
}

func (v *memVault) add(key, id, value string) {
	v.secrets[key] = append(v.secrets[key], domain.SecretEntry{ID: id, Value: value})
}

func (v *memVault) Write(_ context.Context, key, value, label string) (string, error) {
	v.writes++
	v.nextID++
	id := fmt.Sprintf("new-%d", v.nextID)
	for i := range v.secrets[key] {
		v.secrets[key][i].Active = false
	}
	v.secrets[key] = append(v.secrets[key], domain.SecretEntry{ID: id, Value: value, Label: label, Active: true})
	return id, nil
}

func (v *memVault) Find(_ context.Context, key, id string) (string, bool, error) {
	v.finds++
	if v.unreadable {
		return "", false, nil
	}
	for _, s := range v.secrets[key] {
		if (id == "" && s.Active) || (id != "" && s.ID == id) {
			return s.Value, true, nil
		}
	}
	return "", false, nil
}

func (v *memVault) State(_ context.Context) (map[string][]domain.SecretEntry, error) {
	if v.stateErr != nil {
		return nil, v.stateErr
	}
	out := map[string][]domain.SecretEntry{}
	for key, list := range v.secrets {
		for _, s := range list {
			if v.masked {
				s.Value = ""
			}
			out[key] = append(out[key], s)
		}
	}
	return out, nil
}

func (v *memVault) active(key string) string {
	for _, s := range v.secrets[key] {
		if s.Active {
			return s.ID
		}
	}
	return ""
}

// rotatingVault adds rotation
type rotatingVault struct {
	*memVault
	rotations []string
}

func (v *rotatingVault) Rotate(_ context.Context, key, id string) error {
	found := false
	for i := range v.secrets[key] {
		v.secrets[key][i].Active = v.secrets[key][i].ID == id
		found = found || v.secrets[key][i].ID == id
	}
	if !found {
		return errors.New("no such secret")
	}
	v.rotations = append(v.rotations, id)
	return nil
}

// fakeHost records connector calls and reports a fixed live state
type fakeHost struct {
	mu         sync.Mutex
	state      domain.ConnectionState
	stateErr   error
	connects   []domain.ConnectRequest
	selected   []string
	readyAfter int
	checks     int
	connectErr error
}

func (h *fakeHost) ConnectionState(context.Context) (domain.ConnectionState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.stateErr
}

func (h *fakeHost) Connect(_ context.Context, req domain.ConnectRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connectErr != nil {
		return h.connectErr
	}
	h.connects = append(h.connects, req)
	h.state.Source = string(req.Source)
	h.state.Endpoint = req.Endpoint
	return nil
}

func (h *fakeHost) SelectModel(_ context.Context, _ domain.Source, model string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = append(h.selected, model)
	h.state.Model = model
	return nil
}

func (h *fakeHost) ModelsReady(context.Context, domain.Source) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	return h.checks > h.readyAfter, nil
}

func (h *fakeHost) selections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.selected...)
}

func (h *fakeHost) checkCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checks
}

// fakeLister returns fixed models and records requests
type fakeLister struct {
	models []string
	err    error
	calls  int
	got    source.ListRequest
}

func (l *fakeLister) ListModels(_ context.Context, req source.ListRequest) ([]string, error) {
	l.calls++
	l.got = req
	return l.models, l.err
}

// memCache is an in-memory model cache
type memCache struct {
	entries map[string][]string
}

func (c *memCache) Get(src, endpoint string) ([]string, bool, error) {
	m, ok := c.entries[src+"|"+endpoint]
	return m, ok, nil
}

func (c *memCache) Store(src, endpoint string, models []string) error {
	if c.entries == nil {
		c.entries = map[string][]string{}
	}
	c.entries[src+"|"+endpoint] = models
	return nil
}

func (c *memCache) Delete(src, endpoint string) error {
	delete(c.entries, src+"|"+endpoint)
	return nil
}
