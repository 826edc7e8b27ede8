// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type fsStorage struct {
	fspath string
	url    string
}

type fsItem struct {
	name    string
	storage *fsStorage
}

func (i fsItem) Key() string {
	return i.name
}

func (i fsItem) PublicURL() string {
	if i.storage.url == "" {
		return ""
	}
	return i.storage.url + "/" + i.name
}

func (i fsItem) Contents() (io.ReadCloser, error) {
	p, err := i.storage.Path(i.name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Path returns the file of a key, rejecting keys leaving the storage directory
func (s *fsStorage) Path(key string) (string, error) {
	p := filepath.Join(s.fspath, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.fspath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return p, nil
}

func (s *fsStorage) Add(key string, r io.ReadSeeker) (Item, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, err
	}
	file, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err = io.Copy(file, r); err != nil {
		return nil, err
	}
	return &fsItem{name: key, storage: s}, nil
}

func (s *fsStorage) Get(key string) (Item, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		return nil, ErrNotFound
	}
	return &fsItem{name: key, storage: s}, nil
}

func (s *fsStorage) Remove(key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *fsStorage) List() ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(s.fspath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.fspath, p)
		if err != nil {
			return err
		}
		items = append(items, &fsItem{name: filepath.ToSlash(rel), storage: s})
		return nil
	})
	return items, err
}

// NewFileSystem returns a store of the files of a directory, created when missing
func NewFileSystem(dir, basePath string) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &fsStorage{fspath: dir, url: strings.TrimSuffix(basePath, "/")}, nil
}
