// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package storage

import (
	"io"
)

// void storage, used when archives are only opened from local paths

type noStorage struct {
}

func (s noStorage) Add(key string, r io.ReadSeeker) (Item, error) {
	return nil, ErrNoStorage
}

func (s noStorage) Get(key string) (Item, error) {
	return nil, ErrNotFound
}

func (s noStorage) Remove(key string) error {
	return ErrNotFound
}

func (s noStorage) List() ([]Item, error) {
	return nil, nil
}

// NoStorage creates a new void storage
func NoStorage() Store {
	return noStorage{}
}
