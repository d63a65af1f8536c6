package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// EventIndex maps committed timer ids to the calendar events created for
// them, so a retried commit finds the existing event instead of inserting a
// second one.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// NewEventIndex opens the index at path, loading it if the file exists.
func NewEventIndex(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}
	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&idx.Mappings)
}

// Save writes the index if it changed since the last load or save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(timerID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[timerID]
}

func (idx *EventIndex) Set(timerID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[timerID] != eventID {
		idx.Mappings[timerID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(timerID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.Mappings[timerID]; ok {
		delete(idx.Mappings, timerID)
		idx.dirty = true
	}
}
