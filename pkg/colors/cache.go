package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Google Calendar event colours 1..11.
const paletteSize = 11

// DefaultColorID is used for reports without a task.
const DefaultColorID = "8"

type TaskState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache hands each task its own calendar colour. When the palette is
// exhausted the least recently used task gives up its colour.
type ColorCache struct {
	Path  string
	Tasks map[string]*TaskState
	now   func() time.Time
	mu    sync.Mutex
	dirty bool
}

// NewColorCache opens the cache at path, loading it if the file exists.
func NewColorCache(path string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:  path,
		Tasks: make(map[string]*TaskState),
		now:   time.Now,
	}
	if _, err := os.Stat(path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&c.Tasks); err != nil {
		return err
	}
	// A hand-edited file may hold null; drop those entries so they are
	// reassigned on next use.
	if c.Tasks == nil {
		c.Tasks = make(map[string]*TaskState)
		c.dirty = true
	}
	for id, state := range c.Tasks {
		if state == nil {
			delete(c.Tasks, id)
			c.dirty = true
		}
	}
	return nil
}

func (c *ColorCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(c.Tasks); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// GetColorID returns the colour for taskID, assigning one if needed.
func (c *ColorCache) GetColorID(taskID string) string {
	if taskID == "" {
		return DefaultColorID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.Tasks[taskID]; ok {
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(taskID)
}

func (c *ColorCache) assignColor(taskID string) string {
	used := make(map[string]bool)
	for _, s := range c.Tasks {
		used[s.ColorID] = true
	}

	colorID := ""
	for i := 1; i <= paletteSize; i++ {
		if id := strconv.Itoa(i); !used[id] {
			colorID = id
			break
		}
	}

	if colorID == "" {
		var oldest string
		var oldestTime time.Time
		for t, s := range c.Tasks {
			if oldest == "" || s.LastUsed.Before(oldestTime) {
				oldest, oldestTime = t, s.LastUsed
			}
		}
		colorID = c.Tasks[oldest].ColorID
		delete(c.Tasks, oldest)
	}

	c.Tasks[taskID] = &TaskState{ColorID: colorID, LastUsed: c.now()}
	c.dirty = true
	return colorID
}
