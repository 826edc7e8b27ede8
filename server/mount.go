// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Machiel/slugify"
	"github.com/jtacoma/uritemplates"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sync/errgroup"

	"github.com/readium/readium-streamer/assets"
	"github.com/readium/readium-streamer/catalog"
	"github.com/readium/readium-streamer/fetcher"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
	"github.com/readium/readium-streamer/storage"
)

var (
	ErrMountConflict = errors.New("mount name already in use")
	ErrReservedName  = errors.New("reserved mount name")
)

const (
	ContentType_MEDIA_OVERLAY = "application/vnd.readium.mo+json"

	mountTemplate        = "{+base}/{mount}"
	mediaOverlayTemplate = "{+base}/{mount}/media-overlay{?resource}"

	// parallel opens when mounting several archives
	openLimit = 4
)

var reserved = map[string]bool{
	"api":                  true,
	string(assets.Scripts): true,
	string(assets.Styles):  true,
	string(assets.Fonts):   true,
}

// Mount is a publication served under /{Name}/
type Mount struct {
	Name string
	// Location is what the caller asked to mount, Path the local archive opened
	Location string
	Path     string
	Added    time.Time
	Fetcher  *fetcher.Fetcher

	manifest []byte
	overlays bool
	server   *Server
}

// Publication returns the served publication
func (m *Mount) Publication() *rwpm.Publication {
	return m.Fetcher.Box().Publication
}

// HasMediaOverlays tells whether the media-overlay route answers for this mount
func (m *Mount) HasMediaOverlays() bool {
	return m.overlays
}

// Entry describes the mount for the catalog and the api
func (m *Mount) Entry() catalog.Entry {
	pub := m.Publication()
	return catalog.Entry{
		Mount:      m.Name,
		Location:   m.Location,
		Identifier: pub.Metadata.Identifier,
		Title:      pub.Metadata.Title.String(),
		MimeType:   m.Fetcher.Box().Container.RootFile().MimeType,
		Added:      m.Added,
	}
}

func (m *Mount) close() error {
	return m.Fetcher.Box().Close()
}

// MountName derives a mount name from an archive location: the slug of its base
// name, or a random identifier when nothing is left
func MountName(location string) string {
	base := filepath.Base(strings.TrimSuffix(location, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if name := slugify.Slugify(base); name != "" {
		return name
	}
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("pub-%d", time.Now().UnixNano())
	}
	return id.String()
}

func expandURI(template string, values map[string]interface{}) (string, error) {
	tpl, err := uritemplates.Parse(template)
	if err != nil {
		return "", err
	}
	return tpl.Expand(values)
}

// localPath resolves store references through the cache
func (s *Server) localPath(location string) (string, error) {
	if _, _, ok := storage.Key(location); ok {
		if s.opts.Cache == nil {
			return "", fmt.Errorf("%w: %s", storage.ErrNoStorage, location)
		}
		return s.opts.Cache.Resolve(location)
	}
	return location, nil
}

// open parses the publication and builds its fetcher, it does not register anything
func (s *Server) open(location, name string) (*Mount, error) {
	if name == "" {
		name = MountName(location)
	}
	if reserved[name] || strings.ContainsAny(name, "/?#") {
		return nil, fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if _, ok := s.Lookup(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrMountConflict, name)
	}

	path, err := s.localPath(location)
	if err != nil {
		return nil, err
	}
	box, err := parser.Open(path, s.opts.Parser)
	if err != nil {
		return nil, err
	}
	f, err := fetcher.New(box, s.opts.Fetcher)
	if err != nil {
		box.Close()
		return nil, err
	}
	m := &Mount{
		Name:     name,
		Location: location,
		Path:     path,
		Added:    time.Now(),
		Fetcher:  f,
		server:   s,
	}
	if err = m.decorate(s.opts.BaseURL); err != nil {
		box.Close()
		return nil, err
	}
	return m, nil
}

// decorate adds the server links to the publication and points the media overlays
// at the media-overlay route, then freezes the manifest
func (m *Mount) decorate(base string) error {
	pub := m.Publication()
	values := map[string]interface{}{"base": base, "mount": m.Name}
	prefix, err := expandURI(mountTemplate, values)
	if err != nil {
		return err
	}

	pub.AddLink(rwpm.ContentTypeManifest, []string{"self"}, prefix+"/manifest.json", false)
	pub.AddLink(ContentType_JSON, []string{"search"}, prefix+"/search{?query,spineIndex}", true)

	for _, links := range [][]rwpm.Link{pub.ReadingOrder, pub.Resources} {
		for i := range links {
			p := links[i].Properties
			if p == nil || p.MediaOverlay == "" {
				continue
			}
			values["resource"] = links[i].Href
			if p.MediaOverlay, err = expandURI(mediaOverlayTemplate, values); err != nil {
				return err
			}
		}
	}
	m.overlays = pub.HasMediaOverlays()
	if m.overlays {
		pub.AddLink(ContentType_MEDIA_OVERLAY, []string{"media-overlay"}, prefix+"/media-overlay{?resource}", true)
	}

	m.manifest, err = pub.Manifest()
	return err
}

// register makes the mount visible to requests
func (s *Server) register(m *Mount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mounts[m.Name]; ok {
		return fmt.Errorf("%w: %s", ErrMountConflict, m.Name)
	}
	s.mounts[m.Name] = m
	s.log.Infof("mounted %s as /%s/", m.Location, m.Name)
	return nil
}

// Mount opens the archive at location and serves it under /{name}/. An empty name
// is derived from the location. Store references ("store://key", "s3://bucket/key")
// are fetched through the cache.
func (s *Server) Mount(location, name string) (*Mount, error) {
	s.mounting.Lock()
	defer s.mounting.Unlock()
	return s.mount(location, name, true)
}

func (s *Server) mount(location, name string, persist bool) (*Mount, error) {
	m, err := s.open(location, name)
	if err != nil {
		return nil, err
	}
	if err = s.register(m); err != nil {
		m.close()
		return nil, err
	}
	if persist && s.opts.Catalog != nil {
		if err = s.opts.Catalog.Add(m.Entry()); err != nil {
			s.log.Warnf("cannot record %s in the catalog: %v", m.Name, err)
		}
	}
	return m, nil
}

// MountAll opens archives in parallel and mounts them under derived names. The
// first failure is returned, the archives mounted before it stay mounted.
func (s *Server) MountAll(ctx context.Context, locations []string) error {
	s.mounting.Lock()
	defer s.mounting.Unlock()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(openLimit)
	for _, location := range locations {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if _, err := s.mount(location, "", true); err != nil {
				return fmt.Errorf("mount %s: %w", location, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Restore mounts the publications recorded in the catalog. Entries which cannot
// be opened anymore are logged and skipped.
func (s *Server) Restore(ctx context.Context) (int, error) {
	if s.opts.Catalog == nil {
		return 0, nil
	}
	var entries []catalog.Entry
	next := s.opts.Catalog.List()
	for {
		e, err := next()
		if errors.Is(err, catalog.ErrNotFound) {
			break
		}
		if err != nil {
			return 0, err
		}
		entries = append(entries, e)
	}

	s.mounting.Lock()
	defer s.mounting.Unlock()

	restored := make([]bool, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(openLimit)
	for i, e := range entries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if _, err := s.mount(e.Location, e.Mount, false); err != nil {
				s.log.Warnf("cannot restore %s from %s: %v", e.Mount, e.Location, err)
				return nil
			}
			restored[i] = true
			return nil
		})
	}
	err := eg.Wait()
	n := 0
	for _, ok := range restored {
		if ok {
			n++
		}
	}
	return n, err
}

// Unmount stops serving a publication, closes its container and removes it from
// the catalog
func (s *Server) Unmount(name string) error {
	s.mounting.Lock()
	defer s.mounting.Unlock()

	s.mu.Lock()
	m, ok := s.mounts[name]
	delete(s.mounts, name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
	}

	if s.opts.Catalog != nil {
		if err := s.opts.Catalog.Remove(name); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			s.log.Warnf("cannot remove %s from the catalog: %v", name, err)
		}
	}
	s.log.Infof("unmounted /%s/", name)
	return m.close()
}

// Lookup returns a mounted publication
func (s *Server) Lookup(name string) (*Mount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mounts[name]
	return m, ok
}

// Mounts lists the mounted publications by name
func (s *Server) Mounts() []*Mount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Mount, 0, len(s.mounts))
	for _, m := range s.mounts {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// InUse tells whether a local archive backs a mounted publication, the cache
// keeps such files
func (s *Server) InUse(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.mounts {
		if m.Path == path {
			return true
		}
	}
	return false
}
