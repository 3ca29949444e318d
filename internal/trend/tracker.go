package trend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/guarzo/resellgap/internal/model"
)

// retention is how long observed prices are kept.
const retention = Window90 * 24 * time.Hour

// itemHistory holds the observed reference prices of one catalog item.
type itemHistory struct {
	ItemID  string             `json:"item_id"`
	History []model.PricePoint `json:"history"`
}

// Tracker accumulates reference prices observed across comparison runs so
// items without provider history still get a trend after a few runs. It is
// safe for concurrent use. An empty path keeps the history in memory only.
type Tracker struct {
	mu       sync.Mutex
	filePath string
	data     map[string]*itemHistory
}

// NewTracker creates a tracker, loading filePath when it exists.
func NewTracker(filePath string) (*Tracker, error) {
	t := &Tracker{
		filePath: filePath,
		data:     make(map[string]*itemHistory),
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Record adds an observation and drops points older than the retention
// window relative to at.
func (t *Tracker) Record(itemID string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.data[itemID]
	if !ok {
		h = &itemHistory{ItemID: itemID}
		t.data[itemID] = h
	}
	h.History = append(h.History, model.PricePoint{Timestamp: at.UTC(), Price: price})
	sort.SliceStable(h.History, func(i, j int) bool {
		return h.History[i].Timestamp.Before(h.History[j].Timestamp)
	})
	prune(h, at.Add(-retention))
}

// History returns a copy of the observations for itemID, oldest first.
func (t *Tracker) History(itemID string) []model.PricePoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.data[itemID]
	if !ok {
		return nil
	}
	out := make([]model.PricePoint, len(h.History))
	copy(out, h.History)
	return out
}

// Items returns the number of tracked items.
func (t *Tracker) Items() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data)
}

// Save writes the history to disk. It is a no-op for in-memory trackers.
func (t *Tracker) Save() error {
	if t.filePath == "" {
		return nil
	}

	t.mu.Lock()
	histories := make([]itemHistory, 0, len(t.data))
	for _, h := range t.data {
		histories = append(histories, *h)
	}
	t.mu.Unlock()

	sort.Slice(histories, func(i, j int) bool { return histories[i].ItemID < histories[j].ItemID })

	data, err := json.MarshalIndent(histories, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding price history: %w", err)
	}
	if dir := filepath.Dir(t.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history directory: %w", err)
		}
	}
	if err := os.WriteFile(t.filePath, data, 0o644); err != nil {
		return fmt.Errorf("writing price history: %w", err)
	}
	return nil
}

func (t *Tracker) load() error {
	if t.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading price history: %w", err)
	}

	var histories []itemHistory
	if err := json.Unmarshal(data, &histories); err != nil {
		return fmt.Errorf("decoding price history %s: %w", t.filePath, err)
	}
	for i := range histories {
		h := histories[i]
		t.data[h.ItemID] = &h
	}
	return nil
}

func prune(h *itemHistory, cutoff time.Time) {
	kept := h.History[:0]
	for _, p := range h.History {
		if !p.Timestamp.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	h.History = kept
}
