package colors

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CacheFile is the file name of the calendar color assignments inside the data directory.
const CacheFile = "colors.json"

// calendarColors is the number of Google Calendar event color IDs ("1" to "11").
const calendarColors = 11

type TaskColor struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache hands out Google Calendar color IDs per task so the intervals of one task share
// a color. When every color is taken the least recently used assignment is recycled.
type ColorCache struct {
	Path  string
	Tasks map[string]*TaskColor `json:"tasks"`
	now   func() time.Time
	dirty bool
}

func NewColorCache(path string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:  path,
		Tasks: make(map[string]*TaskColor),
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
	return json.NewDecoder(f).Decode(&c.Tasks)
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		slog.Error("creating color cache directory", slog.Any("err", err))
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		slog.Error("creating color cache file", slog.Any("err", err))
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Tasks)
	if err == nil {
		c.dirty = false
	}
	return err
}

// ColorID returns the color ID for a task, assigning one if needed.
func (c *ColorCache) ColorID(taskID string) string {
	if taskID == "" {
		return "8" // graphite
	}
	if state, ok := c.Tasks[taskID]; ok {
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(taskID)
}

// Release frees the color of a deleted task.
func (c *ColorCache) Release(taskID string) {
	if _, ok := c.Tasks[taskID]; ok {
		delete(c.Tasks, taskID)
		c.dirty = true
	}
}

func (c *ColorCache) assignColor(taskID string) string {
	used := make(map[string]bool)
	for _, s := range c.Tasks {
		used[s.ColorID] = true
	}

	for i := 1; i <= calendarColors; i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			c.Tasks[taskID] = &TaskColor{ColorID: id, LastUsed: c.now()}
			c.dirty = true
			return id
		}
	}

	// Every color is taken: recycle the least recently used one.
	var oldest string
	var oldestTime time.Time
	for id, s := range c.Tasks {
		if oldest == "" || s.LastUsed.Before(oldestTime) {
			oldestTime = s.LastUsed
			oldest = id
		}
	}
	recycled := c.Tasks[oldest].ColorID
	delete(c.Tasks, oldest)
	c.Tasks[taskID] = &TaskColor{ColorID: recycled, LastUsed: c.now()}
	c.dirty = true
	return recycled
}
