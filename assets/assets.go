// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package assets holds the scripts, styles and fonts shared by every mounted
// publication. Registries are filled at startup and only read afterwards.
package assets

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

type Kind string

const (
	Scripts Kind = "scripts"
	Styles  Kind = "styles"
	Fonts   Kind = "fonts"
)

// Asset is a file served under /{kind}/{name}
type Asset struct {
	Name    string
	Type    string
	Data    []byte
	ModTime time.Time
}

type Registry struct {
	mu     sync.RWMutex
	assets map[Kind]map[string]*Asset
}

func NewRegistry() *Registry {
	return &Registry{assets: map[Kind]map[string]*Asset{}}
}

var types = map[string]string{
	".js":    "text/javascript",
	".css":   "text/css",
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".eot":   "application/vnd.ms-fontobject",
	".svg":   "image/svg+xml",
}

// TypeOf returns the media type of an asset
func TypeOf(kind Kind, name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := types[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if kind == Fonts {
		return "application/font-sfnt"
	}
	return "application/octet-stream"
}

// Add registers an asset, replacing any asset of the same name
func (r *Registry) Add(kind Kind, name string, data []byte, modTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assets[kind] == nil {
		r.assets[kind] = map[string]*Asset{}
	}
	r.assets[kind][name] = &Asset{Name: name, Type: TypeOf(kind, name), Data: data, ModTime: modTime}
}

// Get resolves an asset by name
func (r *Registry) Get(kind Kind, name string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[kind][strings.TrimPrefix(name, "/")]
	return a, ok
}

// Names lists the assets of a kind, sorted
func (r *Registry) Names(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.assets[kind]))
	for n := range r.assets[kind] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load registers every file of a filesystem, named by their slash separated path
func (r *Registry) Load(kind Kind, fs billy.Filesystem) error {
	return util.Walk(fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := util.ReadFile(fs, p)
		if err != nil {
			return fmt.Errorf("cannot load %s asset %s: %w", kind, p, err)
		}
		name := strings.TrimPrefix(filepath.ToSlash(p), "/")
		r.Add(kind, name, data, info.ModTime())
		return nil
	})
}

// LoadDir registers the files of a directory. An empty directory name is ignored.
func (r *Registry) LoadDir(kind Kind, dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot load %s assets: %w", kind, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot load %s assets: %s is not a directory", kind, dir)
	}
	return r.Load(kind, osfs.New(dir, osfs.WithBoundOS()))
}
