// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package parser opens a publication file, selecting the container and the package
// parser from the kind of file.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/readium/readium-streamer/cbz"
	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/epub"
	"github.com/readium/readium-streamer/license"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

// Box pairs a parsed publication with the container it reads from
type Box struct {
	Publication *rwpm.Publication
	Container   container.Container
}

type Options struct {
	Comics cbz.Options
	// Passphrases unlock protected publications, tried in order
	Passphrases []string
	Logger      logger.StdLogger
}

// Open parses the publication at path: an unpacked EPUB directory, a comic archive
// or an EPUB archive. The container is closed when parsing fails.
func Open(path string, opts Options) (*Box, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", epub.ErrParseFailed, err)
	}

	var (
		c   container.Container
		pub *rwpm.Publication
	)
	switch {
	case info.IsDir():
		if c, err = container.NewDirectory(path); err != nil {
			return nil, fmt.Errorf("%w: %w", epub.ErrParseFailed, err)
		}
		pub, err = epub.Parse(c, log)
	case isComic(path):
		comic, cerr := container.NewComic(path)
		if cerr != nil {
			return nil, fmt.Errorf("%w: %w", epub.ErrParseFailed, cerr)
		}
		c = comic
		pub, err = cbz.Parse(c, opts.Comics, log)
	default:
		archive, cerr := container.NewArchive(path)
		if cerr != nil {
			return nil, fmt.Errorf("%w: %w", epub.ErrParseFailed, cerr)
		}
		c = archive
		pub, err = epub.Parse(c, log)
	}
	if err != nil {
		c.Close()
		return nil, err
	}

	box := &Box{Publication: pub, Container: c}
	if c.DRM() != nil && len(opts.Passphrases) > 0 {
		if err := box.Unlock(opts.Passphrases...); err != nil {
			log.Warnf("%s stays locked: %v", path, err)
		}
	}
	return box, nil
}

func isComic(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbz":
		return true
	}
	return false
}

// Unlock attaches a license decipherer to the DRM of the container
func (b *Box) Unlock(passphrases ...string) error {
	d := b.Container.DRM()
	if d == nil {
		return nil
	}
	if err := license.Attach(d, passphrases...); err != nil {
		if hint := license.Hint(d.Document); hint != "" && errors.Is(err, license.ErrInvalidPassphrase) {
			return fmt.Errorf("%w (hint: %s)", err, hint)
		}
		return err
	}
	epub.FillEncryptionProfile(b.Publication, d)
	return nil
}

// Close releases the container
func (b *Box) Close() error {
	return b.Container.Close()
}
