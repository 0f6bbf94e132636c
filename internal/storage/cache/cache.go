package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores model listings per source and endpoint
type Cache struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time
}

type entry struct {
	Endpoint  string    `json:"endpoint"`
	FetchedAt time.Time `json:"fetched_at"`
	Models    []string  `json:"models"`
}

// New creates a new cache manager. Entries older than ttl are treated as
// missing; ttl <= 0 keeps entries forever.
func New(basePath string, ttl time.Duration) *Cache {
	return &Cache{basePath: basePath, ttl: ttl, now: time.Now}
}

// SetClock overrides the time source
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Path returns the file holding the listing for an endpoint
func (c *Cache) Path(source, endpoint string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(endpoint)))
	return filepath.Join(c.basePath, "models", source, hex.EncodeToString(sum[:8])+".json")
}

// Get returns the cached models for an endpoint if present and fresh
func (c *Cache) Get(source, endpoint string) ([]string, bool, error) {
	data, err := os.ReadFile(c.Path(source, endpoint))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cached models: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt entry is as good as a miss
		return nil, false, nil
	}
	if e.Endpoint != strings.TrimSpace(endpoint) {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl {
		return nil, false, nil
	}
	return e.Models, true, nil
}

// Store saves a listing for an endpoint
func (c *Cache) Store(source, endpoint string, models []string) error {
	path := c.Path(source, endpoint)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	data, err := json.Marshal(entry{
		Endpoint:  strings.TrimSpace(endpoint),
		FetchedAt: c.now(),
		Models:    models,
	})
	if err != nil {
		return fmt.Errorf("encoding cached models: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cached models: %w", err)
	}
	return nil
}

// Delete removes the listing for an endpoint
func (c *Cache) Delete(source, endpoint string) error {
	if err := os.Remove(c.Path(source, endpoint)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting cached models: %w", err)
	}
	return nil
}
