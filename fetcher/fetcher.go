// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package fetcher resolves the resources of an opened publication to bytes, running
// them through the content filters of the publication type.
package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/parser"
	"github.com/readium/readium-streamer/rwpm"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported publication media type")
	ErrDecodeFailed         = errors.New("cannot decode resource")
)

type Options struct {
	// InjectHTML adds the reader styles and scripts to EPUB documents
	InjectHTML bool
	// UserPropertiesPath is a JSON file of user settings applied on injected documents
	UserPropertiesPath string
	// Fonts lists the font files served under /fonts/
	Fonts  []string
	Logger logger.StdLogger
}

// Fetcher serves the resources of one publication. It only reads shared state and
// can be used by concurrent requests.
type Fetcher struct {
	box     *parser.Box
	filters []ContentFilter
	log     logger.StdLogger
}

// Resource is a filtered resource stream, the caller closes it
type Resource struct {
	io.ReadCloser
	Link   *rwpm.Link
	Length int64
}

// New selects the content filters from the root media type of the container
func New(box *parser.Box, opts Options) (*Fetcher, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	filters, err := contentFilters(box.Container.RootFile().MimeType, opts)
	if err != nil {
		return nil, err
	}
	return &Fetcher{box: box, filters: filters, log: opts.Logger}, nil
}

func contentFilters(mimeType string, opts Options) ([]ContentFilter, error) {
	switch mimeType {
	case container.MimeTypeEPUB, container.MimeTypeOEBPS, container.MimeTypeWebPub:
		filters := []ContentFilter{decryptFilter{}, inflateFilter{}, fontFilter{log: opts.Logger}}
		if opts.InjectHTML {
			filters = append(filters, &injectFilter{
				userPropertiesPath: opts.UserPropertiesPath,
				fonts:              opts.Fonts,
				log:                opts.Logger,
			})
		}
		return filters, nil
	case container.MimeTypeCBZ, container.MimeTypeCBR:
		return []ContentFilter{decryptFilter{}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mimeType)
}

// Box returns the publication and container served by the fetcher
func (f *Fetcher) Box() *parser.Box {
	return f.box
}

// Link resolves a path declared by the publication
func (f *Fetcher) Link(path string) (*rwpm.Link, error) {
	link, ok := f.box.Publication.LinkWithHref(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", container.ErrResourceNotFound, path)
	}
	return link, nil
}

func (f *Fetcher) applicable(link *rwpm.Link) []ContentFilter {
	var filters []ContentFilter
	for _, cf := range f.filters {
		if cf.Accepts(link, f.box) {
			filters = append(filters, cf)
		}
	}
	return filters
}

// Fetch opens a filtered stream on a declared resource. Resources no filter applies
// to are streamed straight from the container.
func (f *Fetcher) Fetch(path string) (*Resource, error) {
	link, err := f.Link(path)
	if err != nil {
		return nil, err
	}
	filters := f.applicable(link)
	if len(filters) == 0 {
		size, err := f.box.Container.Size(link.Href)
		if err != nil {
			return nil, err
		}
		rc, err := f.box.Container.Open(link.Href)
		if err != nil {
			return nil, err
		}
		return &Resource{ReadCloser: rc, Link: link, Length: size}, nil
	}

	data, err := f.filter(link, filters)
	if err != nil {
		return nil, err
	}
	return &Resource{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		Link:       link,
		Length:     int64(len(data)),
	}, nil
}

// Data returns the whole filtered content of a declared resource
func (f *Fetcher) Data(path string) ([]byte, error) {
	link, err := f.Link(path)
	if err != nil {
		return nil, err
	}
	return f.filter(link, f.applicable(link))
}

// DataLength returns the length of the filtered content of a declared resource
func (f *Fetcher) DataLength(path string) (int64, error) {
	link, err := f.Link(path)
	if err != nil {
		return 0, err
	}
	filters := f.applicable(link)
	if len(filters) == 0 {
		return f.box.Container.Size(link.Href)
	}
	data, err := f.filter(link, filters)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (f *Fetcher) filter(link *rwpm.Link, filters []ContentFilter) ([]byte, error) {
	data, err := f.box.Container.Read(link.Href)
	if err != nil {
		return nil, err
	}
	for _, cf := range filters {
		if data, err = cf.Apply(data, link, f.box); err != nil {
			f.log.Warnf("cannot filter %s: %v", link.Href, err)
			return nil, err
		}
	}
	return data, nil
}
