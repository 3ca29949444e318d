package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	key       string
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process LRU Store bounded to maxEntries.
type Memory struct {
	maxEntries int
	items      map[string]*list.Element
	lru        *list.List
	mu         sync.Mutex
}

// NewMemory creates an LRU store. maxEntries below 1 defaults to 1000.
func NewMemory(maxEntries int) *Memory {
	if maxEntries < 1 {
		maxEntries = 1000
	}
	return &Memory{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
	}
}

func (m *Memory) Get(_ context.Context, key string, target any) (bool, error) {
	m.mu.Lock()
	el, ok := m.items[key]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	item := el.Value.(*memoryItem)
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		m.remove(el)
		m.mu.Unlock()
		return false, nil
	}
	m.lru.MoveToFront(el)
	data := item.data
	m.mu.Unlock()

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (m *Memory) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	item := &memoryItem{key: key, data: data}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		el.Value = item
		m.lru.MoveToFront(el)
		return nil
	}
	m.items[key] = m.lru.PushFront(item)
	for len(m.items) > m.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// remove must be called with mu held.
func (m *Memory) remove(el *list.Element) {
	delete(m.items, el.Value.(*memoryItem).key)
	m.lru.Remove(el)
}
