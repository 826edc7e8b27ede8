// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Directory is a container over an unpacked publication. Paths escaping the root
// directory are rejected with ErrInvalidPath.
type Directory struct {
	base
	fs billy.Filesystem
}

// NewDirectory opens an unpacked publication rooted at dir
func NewDirectory(dir string) (*Directory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return NewDirectoryFS(osfs.New(dir, osfs.WithBoundOS()), dir), nil
}

// NewDirectoryFS wraps any billy filesystem, the root of fs being the publication root
func NewDirectoryFS(fs billy.Filesystem, name string) *Directory {
	d := &Directory{fs: fs}
	d.rootFile.Path = name
	d.rootFile.MimeType = MimeTypeEPUB
	return d
}

// resolve decodes the path and makes sure it stays under the root
func (d *Directory) resolve(p string) (string, error) {
	decoded := decodePath(p)
	if strings.ContainsRune(decoded, 0) || strings.Contains(decoded, `\`) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	clean := path.Clean(decoded)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return clean, nil
}

func (d *Directory) Exists(p string) bool {
	name, err := d.resolve(p)
	if err != nil {
		return false
	}
	info, err := d.fs.Stat(name)
	return err == nil && !info.IsDir()
}

func (d *Directory) Read(p string) ([]byte, error) {
	name, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(d.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, p)
		}
		return nil, err
	}
	return data, nil
}

func (d *Directory) Size(p string) (int64, error) {
	name, err := d.resolve(p)
	if err != nil {
		return 0, err
	}
	info, err := d.fs.Stat(name)
	if err != nil || info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrResourceNotFound, p)
	}
	return info.Size(), nil
}

func (d *Directory) Open(p string) (io.ReadCloser, error) {
	name, err := d.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := d.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, p)
		}
		return nil, err
	}
	return f, nil
}

func (d *Directory) Files() []string {
	var files []string
	var walk func(dir string)
	walk = func(dir string) {
		infos, err := d.fs.ReadDir(dir)
		if err != nil {
			return
		}
		for _, info := range infos {
			name := info.Name()
			if dir != "" && dir != "." {
				name = dir + "/" + name
			}
			if info.IsDir() {
				walk(name)
				continue
			}
			files = append(files, name)
		}
	}
	walk(".")
	sort.Strings(files)
	return files
}

func (d *Directory) Close() error {
	return nil
}
