// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package container

// Comic is a comic book archive, a flat list of pages without a package document
type Comic struct {
	*Archive
}

func NewComic(path string) (*Comic, error) {
	a, err := NewArchive(path)
	if err != nil {
		return nil, err
	}
	a.rootFile.MimeType = MimeTypeCBZ
	return &Comic{Archive: a}, nil
}
