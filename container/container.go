// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package container gives uniform access to the files of an opened publication,
// whether it is a zip archive, a comic archive or an unpacked directory.
package container

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/readium/readium-streamer/drm"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidPath      = errors.New("invalid resource path")
)

const (
	MimeTypeEPUB   = "application/epub+zip"
	MimeTypeOEBPS  = "application/oebps-package+xml"
	MimeTypeCBZ    = "application/vnd.comicbook+zip"
	MimeTypeCBR    = "application/x-cbr"
	MimeTypeWebPub = "application/webpub+zip"

	LicenseFile = "META-INF/license.lcpl"
)

// Container reads the files of a publication by their path relative to the
// publication root. Implementations are safe for concurrent reads.
type Container interface {
	Exists(path string) bool
	// Read returns the whole content of a file
	Read(path string) ([]byte, error)
	// Size returns the uncompressed length of a file
	Size(path string) (int64, error)
	// Open returns a fresh stream on a file, the caller closes it
	Open(path string) (io.ReadCloser, error)
	// Files lists every file path, directories excluded
	Files() []string
	RootFile() *RootFile
	DRM() *drm.DRM
	SetDRM(d *drm.DRM)
	Close() error
}

// RootFile locates the publication: the archive on disk, the package document
// inside it and the media type driving the content filters
type RootFile struct {
	Path         string
	RootFilePath string
	MimeType     string
}

// Dir returns the directory of the package document inside the container
func (r RootFile) Dir() string {
	if i := strings.LastIndex(r.RootFilePath, "/"); i >= 0 {
		return r.RootFilePath[:i]
	}
	return ""
}

type base struct {
	rootFile RootFile
	drm      *drm.DRM
}

func (b *base) RootFile() *RootFile {
	return &b.rootFile
}

func (b *base) DRM() *drm.DRM {
	return b.drm
}

func (b *base) SetDRM(d *drm.DRM) {
	b.drm = d
}

// decodePath turns a resource href into a container path: the query and fragment
// are dropped and escapes are decoded. A malformed href is used as is.
func decodePath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return strings.TrimPrefix(href, "/")
	}
	return strings.TrimPrefix(u.Path, "/")
}
