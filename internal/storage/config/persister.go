package config

import (
	"sync"
	"time"

	"acm/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Persister writes the settings root after a quiet period. Requests are
// fire-and-forget: callers never wait for the write, and a burst of
// requests produces a single write of the latest state.
type Persister struct {
	configDir string
	delay     time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *SettingsDocument
}

// NewPersister creates a debounced writer for the settings root in configDir
func NewPersister(configDir string, delay time.Duration) *Persister {
	return &Persister{configDir: configDir, delay: delay}
}

// RequestPersist snapshots settings and schedules a write
func (p *Persister) RequestPersist(settings *domain.Settings) {
	doc := EncodeSettings(settings)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = doc
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, func() {
		if err := p.Flush(); err != nil {
			log.WithError(err).Warn("persisting settings")
		}
	})
}

// Flush writes any pending state immediately
func (p *Persister) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.pending == nil {
		return nil
	}

	doc := p.pending
	p.pending = nil
	return saveDocument(p.configDir, doc)
}

// Load reads the settings root this persister writes
func (p *Persister) Load() (*SettingsDocument, error) {
	return LoadSettings(p.configDir)
}
