package apps

import (
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Event describes one finished submit, successful or not.
type Event struct {
	ID       string            `json:"id"`
	App      string            `json:"app"`
	Inputs   map[string]string `json:"inputs"`
	Result   *Result           `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
	At       time.Time         `json:"at"`
	Duration time.Duration     `json:"duration"`
}

// History keeps the most recent events of each app in a bounded cache.
type History struct {
	caches map[string]*lru.Cache[string, Event]
}

// NewHistory keeps the last size events of each app in apps.
func NewHistory(size int, apps []string) (*History, error) {
	if size <= 0 {
		return nil, fmt.Errorf("history size must be positive, got %d", size)
	}
	h := &History{caches: make(map[string]*lru.Cache[string, Event], len(apps))}
	for _, app := range apps {
		cache, err := lru.New[string, Event](size)
		if err != nil {
			return nil, err
		}
		h.caches[app] = cache
	}
	return h, nil
}

// Add records e, evicting the oldest event of its app when full.
func (h *History) Add(e Event) {
	if cache, ok := h.caches[e.App]; ok {
		cache.Add(e.ID, e)
	}
}

// Recent returns the app's events, newest first.
func (h *History) Recent(app string) ([]Event, bool) {
	cache, ok := h.caches[app]
	if !ok {
		return nil, false
	}
	events := cache.Values()
	slices.Reverse(events)
	return events, true
}
