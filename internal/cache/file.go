package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

func (e entry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// File is a Store persisted as one JSON document. Every Put rewrites the
// file.
type File struct {
	path    string
	entries map[string]entry
	mu      sync.RWMutex
	writeMu sync.Mutex
}

// NewFile opens the cache at path. A missing file starts empty and a corrupt
// one is discarded.
func NewFile(path string) (*File, error) {
	c := &File{
		path:    path,
		entries: make(map[string]entry),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read cache: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &c.entries); err != nil {
			c.entries = make(map[string]entry)
		}
	}
	return c, nil
}

func (c *File) Get(_ context.Context, key string, target any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if e.expired() {
		c.mu.Lock()
		if cur, exists := c.entries[key]; exists && cur.expired() {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(e.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (c *File) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = entry{Data: data, Timestamp: time.Now(), TTL: ttl}
	c.mu.Unlock()

	return c.save()
}

// Remove deletes a single entry.
func (c *File) Remove(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return c.save()
}

// Clear removes every entry.
func (c *File) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return c.save()
}

func (c *File) save() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}
