// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package cbz builds the publication of a comic book archive: its reading order is
// the list of page images.
package cbz

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/pathrules"

	"github.com/readium/readium-streamer/container"
	"github.com/readium/readium-streamer/epub"
	"github.com/readium/readium-streamer/logger"
	"github.com/readium/readium-streamer/rwpm"
)

// Options selects the pages, patterns following gitignore rules. Exclusions win
// over inclusions.
type Options struct {
	Include []string
	Exclude []string
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

func newPageMatcher(opts Options) (*pathrules.Matcher, error) {
	rules := make([]pathrules.Rule, 0, len(opts.Include)+len(opts.Exclude))
	for _, p := range opts.Include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	for _, p := range opts.Exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
	}
	return pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
}

// Parse lists the pages of a comic container
func Parse(c container.Container, opts Options, log logger.StdLogger) (*rwpm.Publication, error) {
	if log == nil {
		log = logger.Discard()
	}
	matcher, err := newPageMatcher(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page rules: %w", epub.ErrParseFailed, err)
	}

	var pages []string
	for _, f := range c.Files() {
		if _, image := imageTypes[strings.ToLower(path.Ext(f))]; !image {
			continue
		}
		if !matcher.Included(f, false) {
			log.Debugf("skipping comic entry %s", f)
			continue
		}
		pages = append(pages, f)
	}
	root := c.RootFile()
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no page in %s", epub.ErrParseFailed, root.Path)
	}
	sort.SliceStable(pages, func(i, j int) bool { return naturalLess(pages[i], pages[j]) })

	root.MimeType = container.MimeTypeCBZ
	name := strings.TrimSuffix(filepath.Base(root.Path), filepath.Ext(root.Path))

	pub := &rwpm.Publication{
		Context: rwpm.MultiString{rwpm.ContextWebPub},
		Type:    rwpm.TypeCBZ,
		Metadata: rwpm.Metadata{
			Title:      rwpm.MultiLanguage{SingleString: name},
			Identifier: name,
			Direction:  "auto",
			Rendition:  &rwpm.Rendition{Layout: "fixed"},
		},
	}
	for i, p := range pages {
		link := rwpm.Link{Href: p, Type: imageTypes[strings.ToLower(path.Ext(p))]}
		if i == 0 {
			link.AddRel("cover")
		}
		pub.ReadingOrder = append(pub.ReadingOrder, link)
		pub.Resources = append(pub.Resources, link)
	}

	d, err := container.ScanForDRM(c)
	if err != nil {
		log.Warnf("ignoring license of %s: %v", root.Path, err)
		d = nil
	}
	c.SetDRM(d)
	epub.ParseEncryption(c, pub, d, log)

	epub.SetLayoutStyle(pub)
	epub.FillEncryptionProfile(pub, d)
	return pub, nil
}

// naturalLess orders strings with digit runs compared by value: "p2" < "p10"
func naturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, ra := digitRun(a)
			nb, rb := digitRun(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
