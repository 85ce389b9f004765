package conversion

import (
	"errors"
	"io/fs"
	"log"
	"sync"
)

// Cleanup removes every artifact tracked for one batch, exactly once.
type Cleanup struct {
	store  ScratchStore
	logger *log.Logger

	mu    sync.Mutex
	paths []string
	seen  map[string]bool
	done  bool
}

// NewCleanup creates a coordinator for one batch.
func NewCleanup(store ScratchStore, logger *log.Logger) *Cleanup {
	return &Cleanup{store: store, logger: logger, seen: make(map[string]bool)}
}

// Track registers a path for removal. Paths tracked after Run are removed
// immediately.
func (c *Cleanup) Track(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	if c.seen[path] {
		c.mu.Unlock()
		return
	}
	c.seen[path] = true
	if c.done {
		c.mu.Unlock()
		c.remove(path)
		return
	}
	c.paths = append(c.paths, path)
	c.mu.Unlock()
}

// Run deletes all tracked paths and returns how many were removed. Later
// calls do nothing.
func (c *Cleanup) Run() int {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return 0
	}
	c.done = true
	paths := c.paths
	c.paths = nil
	c.mu.Unlock()

	removed := 0
	for _, p := range paths {
		if c.remove(p) {
			removed++
		}
	}
	return removed
}

func (c *Cleanup) remove(path string) bool {
	err := c.store.Remove(path)
	switch {
	case err == nil:
		return true
	case errors.Is(err, fs.ErrNotExist):
		return false
	default:
		c.logger.Printf("cleanup: remove %s: %v", path, err)
		return false
	}
}
