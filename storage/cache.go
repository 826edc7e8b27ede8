// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/claudiu/gocron"

	"github.com/readium/readium-streamer/logger"
)

// Cache keeps local copies of stored archives, so that they can be opened as files
type Cache struct {
	store Store
	dir   string
	ttl   time.Duration
	log   logger.StdLogger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
	stop      chan bool
}

// NewCache creates the cache directory if needed
func NewCache(store Store, dir string, ttl time.Duration, log logger.StdLogger) (*Cache, error) {
	if log == nil {
		log = logger.Discard()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{store: store, dir: dir, ttl: ttl, log: log}, nil
}

// Store returns the store behind the cache
func (c *Cache) Store() Store {
	return c.store
}

// Resolve returns the local file of an archive reference. Local paths are
// returned unchanged.
func (c *Cache) Resolve(ref string) (string, error) {
	bucket, key, ok := Key(ref)
	if !ok {
		return ref, nil
	}
	if err := CheckBucket(c.store, bucket); err != nil {
		return "", err
	}
	return c.Fetch(key)
}

// Forget drops the local copy of a key, if any
func (c *Cache) Forget(key string) error {
	if _, ok := c.store.(Locator); ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.cachePath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cachePath keeps the extension of the key, the parser selects the archive kind from it
func (c *Cache) cachePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:12])+path.Ext(key))
}

// Fetch returns a local file holding the archive of a key. Files of a local store
// are used in place, other archives are downloaded once and then reused.
func (c *Cache) Fetch(key string) (string, error) {
	if loc, ok := c.store.(Locator); ok {
		if _, err := c.store.Get(key); err != nil {
			return "", err
		}
		return loc.Path(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.cachePath(key)
	if _, err := os.Stat(target); err == nil {
		now := time.Now()
		os.Chtimes(target, now, now)
		return target, nil
	}

	item, err := c.store.Get(key)
	if err != nil {
		return "", err
	}
	body, err := item.Contents()
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	c.log.Infof("downloaded %s to %s", key, target)
	return target, nil
}

// Purge removes the cached archives older than the time-to-live, except those
// reported in use
func (c *Cache) Purge(inUse func(path string) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	limit := time.Now().Add(-c.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(c.dir, e.Name())
		info, err := e.Info()
		if err != nil || info.ModTime().After(limit) {
			continue
		}
		if inUse != nil && inUse(p) {
			continue
		}
		if err := os.Remove(p); err != nil {
			c.log.Warnf("cannot purge %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Schedule runs Purge every given number of minutes until Stop
func (c *Cache) Schedule(minutes uint64, inUse func(path string) bool) {
	c.scheduler = gocron.NewScheduler()
	c.scheduler.Every(minutes).Minutes().Do(func() {
		n, err := c.Purge(inUse)
		if err != nil {
			c.log.Errorf("cache purge failed: %v", err)
			return
		}
		if n > 0 {
			c.log.Infof("purged %d cached archives", n)
		}
	})
	c.stop = c.scheduler.Start()
}

// Stop ends the scheduled purge
func (c *Cache) Stop() {
	if c.stop != nil {
		c.stop <- true
		c.stop = nil
		c.scheduler.Clear()
	}
}
