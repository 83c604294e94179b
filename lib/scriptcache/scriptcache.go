// Package scriptcache serves one file's bytes from memory and invalidates
// the copy whenever the file changes on disk, so a rebuilt page-agent
// bundle is picked up without a server restart.
package scriptcache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Cache is an fsnotify-invalidated single-file cache.
type Cache struct {
	path string
	log  *slog.Logger

	mu    sync.Mutex
	data  []byte
	valid bool

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
}

// New starts watching the directory containing path. The file itself does
// not need to exist yet; Bytes fails until it does.
func New(path string, log *slog.Logger) (*Cache, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Watch the parent directory so renames and editor replace-on-save are
	// still observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	c := &Cache{path: path, log: log, watcher: watcher}
	go c.watchLoop()
	return c, nil
}

// Bytes returns the file contents, rereading from disk after invalidation.
func (c *Cache) Bytes() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid {
		return c.data, nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	c.data = data
	c.valid = true
	return data, nil
}

// Close stops the watcher exactly once.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.watcher.Close()
	})
	return err
}

func (c *Cache) watchLoop() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != c.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.mu.Lock()
				c.valid = false
				c.mu.Unlock()
				c.log.Debug("script cache invalidated", "op", ev.Op.String())
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("fsnotify error", "err", err)
		}
	}
}
