// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package container

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// Archive is a container backed by a zip file
type Archive struct {
	base
	reader  *zip.Reader
	closer  io.Closer
	entries map[string]*zip.File
}

// NewArchive opens a zip archive
func NewArchive(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive %s: %w", path, err)
	}
	a := newArchive(&rc.Reader, rc)
	a.rootFile.Path = path
	a.rootFile.MimeType = MimeTypeEPUB
	return a, nil
}

// NewArchiveReader wraps an already opened zip reader
func NewArchiveReader(r *zip.Reader, name string) *Archive {
	a := newArchive(r, nil)
	a.rootFile.Path = name
	a.rootFile.MimeType = MimeTypeEPUB
	return a
}

func newArchive(r *zip.Reader, closer io.Closer) *Archive {
	a := &Archive{reader: r, closer: closer, entries: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		if _, dup := a.entries[f.Name]; !dup {
			a.entries[f.Name] = f
		}
	}
	return a
}

// entry resolves a path by exact match first, then by a case-insensitive scan
func (a *Archive) entry(path string) (*zip.File, error) {
	name := decodePath(path)
	if f, ok := a.entries[name]; ok {
		return f, nil
	}
	for _, f := range a.reader.File {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
}

func (a *Archive) Exists(path string) bool {
	_, err := a.entry(path)
	return err == nil
}

func (a *Archive) Read(path string) ([]byte, error) {
	rc, err := a.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *Archive) Size(path string) (int64, error) {
	f, err := a.entry(path)
	if err != nil {
		return 0, err
	}
	return int64(f.UncompressedSize64), nil
}

func (a *Archive) Open(path string) (io.ReadCloser, error) {
	f, err := a.entry(path)
	if err != nil {
		return nil, err
	}
	return f.Open()
}

func (a *Archive) Files() []string {
	files := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f.Name)
	}
	return files
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
